package public

import (
	"embed"
	"io/fs"
)

//go:embed assets
var assets embed.FS

// AssetsFS returns the embedded stylesheet, script and image files.
func AssetsFS() (fs.FS, error) {
	return fs.Sub(assets, "assets")
}
