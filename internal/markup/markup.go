// Package markup builds the HTML an ad slot shows: two invisible tracking
// pixels followed by the creative body. The body crosses into the page only
// through a Policy, which is where sanitisation would live.
package markup

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/adserve"
)

// PixelClass marks tracking-pixel images so the pixel stylesheet can hide them.
const PixelClass = "emp-placeholder"

// StyleID identifies the pixel stylesheet in a document head.
const StyleID = "emp-placeholder-styles"

// PixelStylesheet moves pixel images off-screen and makes them invisible.
const PixelStylesheet = `
.emp-placeholder {
  width: 1px !important;
  height: 1px !important;
  position: absolute !important;
  left: -9999px !important;
  top: -9999px !important;
  visibility: hidden !important;
  opacity: 0 !important;
}
`

var slotTemplate = template.Must(template.New("slot").Parse(
	`<img {{.EligibleSrc}} width="1" height="1" class="` + PixelClass + `" alt="" />` +
		`<img {{.ViewableSrc}} width="1" height="1" class="` + PixelClass + `" alt="" />` +
		`{{.Body}}`,
))

type slotData struct {
	EligibleSrc template.HTMLAttr
	ViewableSrc template.HTMLAttr
	Body        template.HTML
}

// Render produces the slot markup for p. The pixels always precede the body,
// and the same placement and policy always give byte-identical output.
// Pixel URLs reach the page exactly as the policy admits them.
func Render(p adserve.Placement, policy Policy) (template.HTML, error) {
	if policy == nil {
		policy = Trusted{}
	}
	var sb strings.Builder
	err := slotTemplate.Execute(&sb, slotData{
		EligibleSrc: policy.Source(p.EligibleURL),
		ViewableSrc: policy.Source(p.ViewableURL),
		Body:        policy.Admit(p.Body),
	})
	if err != nil {
		return "", fmt.Errorf("rendering slot markup: %w", err)
	}
	return template.HTML(sb.String()), nil
}
