// Package assets embeds the default manifests and sequence catalogs. They
// serve as the last source tier when neither a base URL nor an artifacts
// directory provides a document.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed all:artifacts
var files embed.FS

// FS returns the embedded artifacts rooted so that paths match the on-disk
// artifacts directory layout.
func FS() fs.FS {
	sub, err := fs.Sub(files, "artifacts")
	if err != nil {
		panic(err)
	}
	return sub
}
