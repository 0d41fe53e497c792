// Package source abstracts where manifests and sequence catalogs are read from.
//
// Three tiers exist: an HTTP tier that plays the role of a browser fetch against a
// dev server, a filesystem tier rooted at the artifacts directory, and the
// resources embedded in the binary. The tiers are chained once at startup
// according to the detected Environment and injected into every loader.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
)

// Environment selects which tiers a Chain consults.
type Environment int

const (
	// EnvNode reads from the artifacts directory, then embedded resources.
	EnvNode Environment = iota
	// EnvBrowser fetches over HTTP first, then falls back like EnvNode.
	EnvBrowser
	// EnvEmbedded reads embedded resources only.
	EnvEmbedded
)

func (e Environment) String() string {
	switch e {
	case EnvBrowser:
		return "browser"
	case EnvEmbedded:
		return "embedded"
	default:
		return "node"
	}
}

// IsBrowser reports whether network reads are the primary tier.
func (e Environment) IsBrowser() bool { return e == EnvBrowser }

// Detect picks the environment. force ("browser", "node", "embedded") wins when
// set; otherwise a configured base URL means browser and anything else is node.
func Detect(force, baseURL string) Environment {
	switch force {
	case "browser":
		return EnvBrowser
	case "node":
		return EnvNode
	case "embedded":
		return EnvEmbedded
	}
	if baseURL != "" {
		return EnvBrowser
	}
	return EnvNode
}

// ErrNotFound is returned when no tier produced the requested document.
var ErrNotFound = errors.New("source: not found")

// Source reads a document by slash-separated path relative to the artifacts root,
// e.g. "json-sequences/library/index.json".
type Source interface {
	Name() string
	ReadFile(ctx context.Context, path string) ([]byte, error)
}

// DirLister is implemented by tiers that can enumerate subdirectories.
type DirLister interface {
	ListDirs(ctx context.Context, path string) ([]string, error)
}

// Chain tries each tier in order and returns the first successful read.
type Chain struct {
	env    Environment
	tiers  []Source
	logger *slog.Logger
}

// NewChain builds a chain over the given tiers. Nil tiers are skipped.
func NewChain(env Environment, logger *slog.Logger, tiers ...Source) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{env: env, logger: logger.With("component", "source")}
	for _, t := range tiers {
		if isNilSource(t) {
			continue
		}
		c.tiers = append(c.tiers, t)
	}
	return c
}

// Build assembles the tiers for env: browser reads HTTP, then the artifacts
// directory, then embedded resources; node skips HTTP; embedded uses only the
// embedded resources.
func Build(env Environment, logger *slog.Logger, httpTier *HTTPSource, fsTier *FSSource, embedded *EmbeddedSource) *Chain {
	switch env {
	case EnvBrowser:
		return NewChain(env, logger, httpTier, fsTier, embedded)
	case EnvEmbedded:
		return NewChain(env, logger, embedded)
	default:
		return NewChain(env, logger, fsTier, embedded)
	}
}

func isNilSource(s Source) bool {
	switch v := s.(type) {
	case nil:
		return true
	case *HTTPSource:
		return v == nil
	case *FSSource:
		return v == nil
	case *EmbeddedSource:
		return v == nil
	case *Chain:
		return v == nil
	}
	return false
}

// Environment returns the environment the chain was built for.
func (c *Chain) Environment() Environment { return c.env }

// Name lists the tier names.
func (c *Chain) Name() string {
	names := ""
	for i, t := range c.tiers {
		if i > 0 {
			names += ">"
		}
		names += t.Name()
	}
	return names
}

// ReadFile returns the first tier's document. A tier that errors is treated as
// absent and the next one is tried.
func (c *Chain) ReadFile(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for _, t := range c.tiers {
		data, err := t.ReadFile(ctx, path)
		if err == nil {
			return data, nil
		}
		lastErr = err
		c.logger.Debug("Source tier miss", "tier", t.Name(), "path", path, "error", err)
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no tiers configured")
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, path, lastErr)
}

// DecodeFunc consumes one tier's copy of a document. Returning an error marks
// that copy unusable and the chain moves on.
type DecodeFunc func(path string, data []byte) error

// ReadDecoded walks the tiers in order and, within a tier, the candidate paths
// in order. The first copy decode accepts wins. A tier that misses or holds a
// copy decode rejects is treated as absent.
func (c *Chain) ReadDecoded(ctx context.Context, decode DecodeFunc, paths ...string) error {
	paths = uniquePaths(paths)
	var rejected error
	for _, t := range c.tiers {
		for _, p := range paths {
			data, err := t.ReadFile(ctx, p)
			if err != nil {
				c.logger.Debug("Source tier miss", "tier", t.Name(), "path", p, "error", err)
				if ctx.Err() != nil {
					return fmt.Errorf("%w: %s: %v", ErrNotFound, p, ctx.Err())
				}
				continue
			}
			if err := decode(p, data); err != nil {
				c.logger.Warn("Source tier document unusable, trying next", "tier", t.Name(), "path", p, "error", err)
				rejected = err
				continue
			}
			return nil
		}
	}
	if rejected != nil {
		return fmt.Errorf("%w: no usable copy of %v: %w", ErrNotFound, paths, rejected)
	}
	return fmt.Errorf("%w: %v", ErrNotFound, paths)
}

// ReadDecoded is Chain.ReadDecoded for any Source; a plain Source is a
// single-tier chain.
func ReadDecoded(ctx context.Context, src Source, decode DecodeFunc, paths ...string) error {
	c, ok := src.(*Chain)
	if !ok {
		c = NewChain(EnvNode, nil, src)
	}
	return c.ReadDecoded(ctx, decode, paths...)
}

func uniquePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// ListDirs unions the subdirectory names reported by every listing tier.
func (c *Chain) ListDirs(ctx context.Context, path string) []string {
	seen := make(map[string]struct{})
	for _, t := range c.tiers {
		lister, ok := t.(DirLister)
		if !ok {
			continue
		}
		dirs, err := lister.ListDirs(ctx, path)
		if err != nil {
			c.logger.Debug("Source tier listing failed", "tier", t.Name(), "path", path, "error", err)
			continue
		}
		for _, d := range dirs {
			seen[d] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
