// Package templates embeds and parses the HTML pages served by the router.
package templates

import (
	"embed"
	"html/template"
)

//go:embed *.gohtml
var pages embed.FS

// New parses every embedded page into a single template set. Pages are
// rendered by file name, e.g. "urls_index.gohtml".
func New() (*template.Template, error) {
	return template.ParseFS(pages, "*.gohtml")
}
