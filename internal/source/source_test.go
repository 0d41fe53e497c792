package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		force   string
		baseURL string
		want    Environment
	}{
		{"no base url", "", "", EnvNode},
		{"base url means browser", "", "http://localhost:5173", EnvBrowser},
		{"forced node beats base url", "node", "http://localhost:5173", EnvNode},
		{"forced browser", "browser", "", EnvBrowser},
		{"forced embedded", "embedded", "", EnvEmbedded},
		{"unknown force ignored", "jsdom", "", EnvNode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.force, tt.baseURL))
		})
	}
}

func TestChain_FallsThroughTiers(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/only-http.json":
			w.Write([]byte(`"http"`))
		case "/broken.json":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/artifacts/broken.json", []byte(`"fs"`), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/artifacts/json-sequences/library/index.json", []byte(`{}`), 0o644))

	embedded := fstest.MapFS{
		"only-embedded.json":               {Data: []byte(`"embedded"`)},
		"json-sequences/header/index.json": {Data: []byte(`{}`)},
	}

	chain := Build(EnvBrowser, nil,
		NewHTTPSource(srv.URL, srv.Client()),
		NewFSSource(mem, "/artifacts"),
		NewEmbeddedSource(embedded),
	)
	assert.Equal(t, "http>fs>embedded", chain.Name())

	data, err := chain.ReadFile(ctx, "only-http.json")
	require.NoError(t, err)
	assert.Equal(t, `"http"`, string(data))

	data, err = chain.ReadFile(ctx, "broken.json")
	require.NoError(t, err, "a non-OK response falls through to the filesystem")
	assert.Equal(t, `"fs"`, string(data))

	data, err = chain.ReadFile(ctx, "only-embedded.json")
	require.NoError(t, err)
	assert.Equal(t, `"embedded"`, string(data))

	_, err = chain.ReadFile(ctx, "missing.json")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Equal(t, []string{"header", "library"}, chain.ListDirs(ctx, "json-sequences"))
}

func TestBuild_SkipsUnconfiguredTiers(t *testing.T) {
	node := Build(EnvNode, nil, NewHTTPSource("http://unused", nil), NewFSSource(nil, ""), NewEmbeddedSource(fstest.MapFS{}))
	assert.Equal(t, "embedded", node.Name())
	assert.False(t, node.Environment().IsBrowser())

	embedded := Build(EnvEmbedded, nil, nil, NewFSSource(afero.NewMemMapFs(), "/x"), nil)
	assert.Equal(t, "", embedded.Name())
	_, err := embedded.ReadFile(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChain_ReadDecoded(t *testing.T) {
	ctx := context.Background()

	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/artifacts/bad.json", []byte(`{"broken": `), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/artifacts/override.yaml", []byte(`tier: fs`), 0o644))
	embedded := fstest.MapFS{
		"bad.json":      {Data: []byte(`{"tier": "embedded"}`)},
		"override.json": {Data: []byte(`{"tier": "embedded"}`)},
		"worse.json":    {Data: []byte(`not json`)},
	}
	chain := NewChain(EnvNode, nil, NewFSSource(mem, "/artifacts"), NewEmbeddedSource(embedded))

	decodeJSON := func(got *string) DecodeFunc {
		return func(p string, data []byte) error {
			var doc struct{ Tier string }
			if err := json.Unmarshal(data, &doc); err != nil {
				return err
			}
			*got = p + "@" + doc.Tier
			return nil
		}
	}

	t.Run("undecodable tier is skipped", func(t *testing.T) {
		var got string
		require.NoError(t, chain.ReadDecoded(ctx, decodeJSON(&got), "bad.json"))
		assert.Equal(t, "bad.json@embedded", got)
	})

	t.Run("earlier tier wins across candidate paths", func(t *testing.T) {
		var got string
		err := chain.ReadDecoded(ctx, func(p string, data []byte) error {
			if strings.HasSuffix(p, ".yaml") {
				got = p + "@" + strings.TrimPrefix(string(data), "tier: ")
				return nil
			}
			return decodeJSON(&got)(p, data)
		}, "override.json", "override.yaml")
		require.NoError(t, err)
		assert.Equal(t, "override.yaml@fs", got)
	})

	t.Run("every copy rejected", func(t *testing.T) {
		var got string
		err := chain.ReadDecoded(ctx, decodeJSON(&got), "worse.json")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Empty(t, got)
	})

	t.Run("missing everywhere", func(t *testing.T) {
		var got string
		err := ReadDecoded(ctx, NewEmbeddedSource(embedded), decodeJSON(&got), "nope.json")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
