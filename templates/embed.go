// Package templates ships the default invoice templates and their images.
package templates

import (
	"embed"
	"io/fs"
)

//go:embed template-*.html template-*.css images/*
var content embed.FS

// FS returns the embedded template tree rooted at the template directory.
func FS() fs.FS {
	return content
}
