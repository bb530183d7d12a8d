package page

import (
	"fmt"
	"html/template"
	"sync"
)

// Container is the element a slot splices its markup into.
type Container struct {
	mu        sync.RWMutex
	className string
	inner     template.HTML
	swaps     int
}

// Replace swaps the inner markup wholesale. Earlier markup is discarded,
// never merged.
func (c *Container) Replace(inner template.HTML) {
	c.mu.Lock()
	c.inner = inner
	c.swaps++
	c.mu.Unlock()
}

// SetClass changes the container's class attribute without touching its content.
func (c *Container) SetClass(className string) {
	c.mu.Lock()
	c.className = className
	c.mu.Unlock()
}

// Inner returns the current inner markup.
func (c *Container) Inner() template.HTML {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inner
}

// Swaps counts how many times the content was replaced.
func (c *Container) Swaps() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.swaps
}

// HTML renders the container element with its current content.
func (c *Container) HTML() template.HTML {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.className == "" {
		return template.HTML(fmt.Sprintf("<div>%s</div>", c.inner))
	}
	return template.HTML(fmt.Sprintf(`<div class="%s">%s</div>`, template.HTMLEscapeString(c.className), c.inner))
}
