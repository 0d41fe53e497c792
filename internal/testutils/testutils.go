// Package testutils holds fixtures shared by package tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/nfrund/sequencer/internal/config"
	"github.com/nfrund/sequencer/internal/source"
)

// ConfigForTests loads .env.test from the module root, when present, into the
// test's environment and returns the resulting config.
func ConfigForTests(t *testing.T) *config.Config {
	t.Helper()

	path, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			break
		}
		if path == filepath.Dir(path) {
			t.Fatalf("could not find project root with go.mod")
		}
		path = filepath.Dir(path)
	}

	env, err := godotenv.Read(filepath.Join(path, ".env.test"))
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("failed to load .env.test file: %v", err)
	}
	for key, value := range env {
		t.Setenv(key, value)
	}
	return config.FromEnv()
}

// EmbeddedTier serves files as embedded resources.
func EmbeddedTier(files map[string]string) *source.EmbeddedSource {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return source.NewEmbeddedSource(fsys)
}

// EmbeddedSource builds an embedded-only source chain over files.
func EmbeddedSource(files map[string]string) *source.Chain {
	return source.NewChain(source.EnvEmbedded, nil, EmbeddedTier(files))
}

// MemFS writes files into a fresh in-memory filesystem under root.
func MemFS(t *testing.T, root string, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, body := range files {
		if err := afero.WriteFile(fs, filepath.Join(root, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return fs
}
