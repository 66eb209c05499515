// Package web embeds the HTML templates so the binary runs from any
// working directory.
package web

import "embed"

// Templates holds templates/*.html. base.html defines the page shell and
// each page file defines "title" and "content".
//
//go:embed templates/*.html
var Templates embed.FS
