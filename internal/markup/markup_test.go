package markup

import (
	"html/template"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/adserve"
)

// topLevel parses a slot fragment and returns its top-level nodes.
func topLevel(t *testing.T, fragment template.HTML) []*html.Node {
	t.Helper()
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(string(fragment)), ctx)
	require.NoError(t, err)
	return nodes
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func TestRenderPixelsPrecedeBody(t *testing.T) {
	p := adserve.Placement{
		EligibleURL: "https://t.example/eligible?z=1&k=article",
		ViewableURL: "https://t.example/viewable?z=1",
		Body:        `<div id="creative"><script>window.x=1</script><a href="https://adv.example">Buy</a></div>`,
	}

	out, err := Render(p, Trusted{})
	require.NoError(t, err)

	nodes := topLevel(t, out)
	require.Len(t, nodes, 3)

	for i, want := range []string{p.EligibleURL, p.ViewableURL} {
		assert.Equal(t, atom.Img, nodes[i].DataAtom)
		assert.Equal(t, want, attr(nodes[i], "src"))
		assert.Equal(t, PixelClass, attr(nodes[i], "class"))
		assert.Equal(t, "1", attr(nodes[i], "width"))
		assert.Equal(t, "1", attr(nodes[i], "height"))
	}
	assert.Equal(t, "creative", attr(nodes[2], "id"))
	assert.True(t, strings.HasSuffix(string(out), p.Body), "body must be appended verbatim")
}

func TestRenderLargeBodyStaysAfterPixels(t *testing.T) {
	body := strings.Repeat(`<p>filler</p>`, 5000)
	out, err := Render(adserve.Placement{EligibleURL: "e", ViewableURL: "v", Body: body}, nil)
	require.NoError(t, err)

	nodes := topLevel(t, out)
	require.Len(t, nodes, 2+5000)
	assert.Equal(t, atom.Img, nodes[0].DataAtom)
	assert.Equal(t, atom.Img, nodes[1].DataAtom)
	assert.Equal(t, atom.P, nodes[2].DataAtom)
}

func TestRenderIsDeterministic(t *testing.T) {
	p := adserve.Placement{EligibleURL: "https://e", ViewableURL: "https://v", Body: "<i>same</i>"}
	a, err := Render(p, Trusted{})
	require.NoError(t, err)
	b, err := Render(p, Trusted{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSanitizedPolicyStripsScripts(t *testing.T) {
	p := adserve.Placement{
		EligibleURL: "e",
		ViewableURL: "v",
		Body:        `<p onclick="steal()">hi<script>alert(1)</script></p>`,
	}
	out, err := Render(p, NewSanitized())
	require.NoError(t, err)

	assert.NotContains(t, string(out), "<script>")
	assert.NotContains(t, string(out), "onclick")
	assert.Contains(t, string(out), "<p>hi</p>")
	assert.Equal(t, 2, strings.Count(string(out), `class="`+PixelClass+`"`))
}

func TestTrustedPolicyIsVerbatim(t *testing.T) {
	body := `<script src="https://adnet.example/tag.js"></script>`
	assert.Equal(t, template.HTML(body), Trusted{}.Admit(body))
}

func TestPixelSourceKeptVerbatim(t *testing.T) {
	p := adserve.Placement{
		EligibleURL: "https://px.example/e?cb={CACHEBUSTER}&z=1",
		ViewableURL: "https://px.example/v/é?a=b|c",
		Body:        "<i>ad</i>",
	}
	out, err := Render(p, Trusted{})
	require.NoError(t, err)

	nodes := topLevel(t, out)
	require.Len(t, nodes, 3)
	assert.Equal(t, p.EligibleURL, attr(nodes[0], "src"))
	assert.Equal(t, p.ViewableURL, attr(nodes[1], "src"))
	assert.NotContains(t, string(out), "%7b")
	assert.NotContains(t, string(out), "%7c")
}

func TestSanitizedPolicySources(t *testing.T) {
	s := NewSanitized()
	p := adserve.Placement{
		EligibleURL: "https://px.example/e?cb={CACHEBUSTER}",
		ViewableURL: `javascript:alert("x")`,
	}
	out, err := Render(p, s)
	require.NoError(t, err)

	nodes := topLevel(t, out)
	require.Len(t, nodes, 2)
	assert.Equal(t, p.EligibleURL, attr(nodes[0], "src"))
	assert.Equal(t, "about:invalid", attr(nodes[1], "src"))
}
