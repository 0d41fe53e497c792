package source

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// HTTPSource fetches documents from a base URL.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource returns nil when baseURL is empty so callers can pass it to
// NewChain unconditionally.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if baseURL == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSource{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (s *HTTPSource) Name() string { return "http" }

// ReadFile performs a GET. Non-2xx responses are errors.
func (s *HTTPSource) ReadFile(ctx context.Context, p string) ([]byte, error) {
	url := s.baseURL + "/" + strings.TrimLeft(p, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// FSSource reads from a directory on an afero filesystem.
type FSSource struct {
	fs   afero.Fs
	root string
}

// NewFSSource returns nil when root is empty.
func NewFSSource(fsys afero.Fs, root string) *FSSource {
	if root == "" {
		return nil
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &FSSource{fs: fsys, root: root}
}

func (s *FSSource) Name() string { return "fs" }

// Root returns the artifacts directory the source is rooted at.
func (s *FSSource) Root() string { return s.root }

// ReadFile reads root/p.
func (s *FSSource) ReadFile(ctx context.Context, p string) ([]byte, error) {
	return afero.ReadFile(s.fs, filepath.Join(s.root, filepath.FromSlash(p)))
}

// ListDirs returns the names of the subdirectories of root/p.
func (s *FSSource) ListDirs(ctx context.Context, p string) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, filepath.Join(s.root, filepath.FromSlash(p)))
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, info := range infos {
		if info.IsDir() {
			dirs = append(dirs, info.Name())
		}
	}
	return dirs, nil
}

// EmbeddedSource reads from an fs.FS compiled into the binary.
type EmbeddedSource struct {
	fsys fs.FS
}

// NewEmbeddedSource wraps fsys.
func NewEmbeddedSource(fsys fs.FS) *EmbeddedSource {
	if fsys == nil {
		return nil
	}
	return &EmbeddedSource{fsys: fsys}
}

func (s *EmbeddedSource) Name() string { return "embedded" }

func (s *EmbeddedSource) ReadFile(ctx context.Context, p string) ([]byte, error) {
	return fs.ReadFile(s.fsys, path.Clean(strings.TrimLeft(p, "/")))
}

func (s *EmbeddedSource) ListDirs(ctx context.Context, p string) ([]string, error) {
	entries, err := fs.ReadDir(s.fsys, path.Clean(strings.TrimLeft(p, "/")))
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}
