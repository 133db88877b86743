// Package static embeds the browser client served at "/".
package static

import (
	"embed"
	"io/fs"
)

//go:embed index.html app.js
var files embed.FS

// FS returns the embedded client assets.
func FS() fs.FS {
	return files
}
