package templates

import (
	"embed"
	"io/fs"
)

//go:embed *.tmpl
var files embed.FS

// FS returns the embedded page and fragment templates.
func FS() fs.FS {
	return files
}
