// Package page models the document ad slots are mounted into: a head holding
// stylesheets and a body holding one container element per slot.
package page

import (
	"fmt"
	"html/template"
	"io"
	"sync"
)

// Style is a <style> element in the document head.
type Style struct {
	ID  string
	CSS string
}

// Document is safe for concurrent use by the slots mounted into it.
type Document struct {
	mu         sync.Mutex
	title      string
	styles     []Style
	styleIndex map[string]struct{}
	containers []*Container
}

func NewDocument(title string) *Document {
	return &Document{
		title:      title,
		styleIndex: make(map[string]struct{}),
	}
}

// EnsureStyle inserts a stylesheet under id unless one is already present.
// Check and insert happen under one lock, so exactly one caller per id sees
// true no matter how many race.
func (d *Document) EnsureStyle(id, css string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.styleIndex[id]; ok {
		return false
	}
	d.styleIndex[id] = struct{}{}
	d.styles = append(d.styles, Style{ID: id, CSS: css})
	return true
}

// Styles returns a copy of the head stylesheets in insertion order.
func (d *Document) Styles() []Style {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Style(nil), d.styles...)
}

// NewContainer appends an empty container element to the body.
func (d *Document) NewContainer(className string) *Container {
	c := &Container{className: className}
	d.mu.Lock()
	d.containers = append(d.containers, c)
	d.mu.Unlock()
	return c
}

var templates = template.Must(template.New("page").Parse(`
{{- define "styles"}}{{range .Styles}}<style id="{{.ID}}">{{.CSS}}</style>
{{end}}{{end -}}

{{- define "document"}}<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
{{template "styles" .}}</head>
<body>
{{range .Containers}}{{.}}
{{end}}</body>
</html>
{{end -}}

{{- define "fragment"}}{{template "styles" .}}{{range .Containers}}{{.}}{{end}}{{end -}}
`))

type documentData struct {
	Title      string
	Styles     []styleData
	Containers []template.HTML
}

type styleData struct {
	ID  string
	CSS template.CSS
}

// Render writes the whole document.
func (d *Document) Render(w io.Writer) error {
	if err := templates.ExecuteTemplate(w, "document", d.snapshot()); err != nil {
		return fmt.Errorf("rendering document: %w", err)
	}
	return nil
}

// RenderFragment writes the head stylesheets followed by the containers,
// without the surrounding document. Pages that embed slots themselves
// insert it as is.
func (d *Document) RenderFragment(w io.Writer) error {
	if err := templates.ExecuteTemplate(w, "fragment", d.snapshot()); err != nil {
		return fmt.Errorf("rendering fragment: %w", err)
	}
	return nil
}

func (d *Document) snapshot() documentData {
	d.mu.Lock()
	data := documentData{Title: d.title}
	for _, s := range d.styles {
		data.Styles = append(data.Styles, styleData{ID: s.ID, CSS: template.CSS(s.CSS)})
	}
	containers := append([]*Container(nil), d.containers...)
	d.mu.Unlock()

	for _, c := range containers {
		data.Containers = append(data.Containers, c.HTML())
	}
	return data
}
