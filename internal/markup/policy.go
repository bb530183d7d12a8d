package markup

import (
	"html"
	"html/template"
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// Policy decides how an ad body and its pixel URLs from the network enter
// the page.
type Policy interface {
	Admit(body string) template.HTML
	// Source returns the complete src attribute for a pixel image.
	Source(rawURL string) template.HTMLAttr
}

// invalidSource replaces pixel URLs a policy refuses.
const invalidSource = "about:invalid"

// Trusted passes the ad network's body through verbatim, scripts included.
// The network is treated as a fully trusted source of markup.
type Trusted struct{}

func (Trusted) Admit(body string) template.HTML {
	return template.HTML(body)
}

// Source keeps the URL byte for byte. Cache-buster macros such as
// {CACHEBUSTER} must reach the network unencoded.
func (Trusted) Source(rawURL string) template.HTMLAttr {
	return srcAttr(rawURL)
}

// Sanitized strips the body down to bluemonday's user-generated-content
// allowlist. Scripts and event handlers are removed, which breaks most
// third-party creatives, so it is opt-in.
type Sanitized struct {
	policy *bluemonday.Policy
}

func NewSanitized() *Sanitized {
	return &Sanitized{policy: bluemonday.UGCPolicy()}
}

func (s *Sanitized) Admit(body string) template.HTML {
	return template.HTML(s.policy.Sanitize(body))
}

// Source admits relative and http(s) URLs. Anything else, javascript: and
// data: included, is replaced with about:invalid.
func (s *Sanitized) Source(rawURL string) template.HTMLAttr {
	u, err := url.Parse(rawURL)
	if err != nil {
		return srcAttr(invalidSource)
	}
	switch u.Scheme {
	case "", "http", "https":
		return srcAttr(rawURL)
	default:
		return srcAttr(invalidSource)
	}
}

func srcAttr(u string) template.HTMLAttr {
	return template.HTMLAttr(`src="` + html.EscapeString(u) + `"`)
}
