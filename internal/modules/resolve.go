package modules

import (
	"path"
	"strings"

	"github.com/nfrund/sequencer/internal/source"
)

// Ref is a resolved specifier.
type Ref struct {
	// Specifier as written by the catalog or manifest.
	Specifier string
	// Bare is true for package-style specifiers.
	Bare bool
	// Path is the slash-separated document path the dynamic loaders read.
	Path string
}

// IsBare reports whether specifier is a package-style name rather than a path.
func IsBare(specifier string) bool {
	return !strings.HasPrefix(specifier, "./") &&
		!strings.HasPrefix(specifier, "../") &&
		!strings.HasPrefix(specifier, "/")
}

// Resolve turns a specifier into a Ref. Relative specifiers are joined to
// baseDir; in the browser environment bare specifiers are rewritten to the
// served modules directory.
func Resolve(specifier, baseDir string, env source.Environment) Ref {
	ref := Ref{Specifier: specifier, Bare: IsBare(specifier)}
	switch {
	case ref.Bare && env.IsBrowser():
		ref.Path = path.Join("modules", specifier)
	case ref.Bare:
		ref.Path = specifier
	case strings.HasPrefix(specifier, "/"):
		ref.Path = strings.TrimPrefix(path.Clean(specifier), "/")
	default:
		ref.Path = path.Join(baseDir, specifier)
	}
	return ref
}
