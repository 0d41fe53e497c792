package script

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"path"
	"time"

	"github.com/nfrund/sequencer/internal/modules"
	"github.com/nfrund/sequencer/internal/sequence"
	"github.com/nfrund/sequencer/internal/source"
)

// Extension marks a specifier as a Tengo handler module.
const Extension = ".tengo"

// ModuleLoader serves *.tengo specifiers to the module registry.
type ModuleLoader struct {
	src    source.Source
	engine *TengoEngine
	logger *slog.Logger
}

var _ modules.DynamicLoader = (*ModuleLoader)(nil)

// NewModuleLoader creates a loader reading scripts through src.
func NewModuleLoader(src source.Source, engine *TengoEngine, logger *slog.Logger) *ModuleLoader {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = NewTengoEngine(logger)
	}
	return &ModuleLoader{src: src, engine: engine, logger: logger.With("component", "script_loader")}
}

func (l *ModuleLoader) Name() string { return "tengo" }

// CanLoad accepts paths ending in .tengo.
func (l *ModuleLoader) CanLoad(p string) bool {
	return path.Ext(p) == Extension
}

// Load reads and compiles the script, runs it once to discover its exports,
// and returns a module whose handlers export has one handler per name.
func (l *ModuleLoader) Load(ctx context.Context, p string) (*modules.Module, error) {
	data, err := l.src.ReadFile(ctx, p)
	if err != nil {
		return nil, NewScriptError(ErrorTypeNotFound, p, "", "script not found", err)
	}

	sum := sha256.Sum256(data)
	s := &Script{
		Path:     p,
		Content:  string(data),
		Checksum: hex.EncodeToString(sum[:]),
		LoadedAt: time.Now(),
	}

	compiled, err := l.engine.Compile(s)
	if err != nil {
		return nil, err
	}

	out, err := l.engine.Execute(ctx, compiled, map[string]any{VarHandler: "", VarData: map[string]any{}})
	if err != nil {
		return nil, err
	}
	if len(out.Exports) == 0 {
		return nil, NewScriptError(ErrorTypeNotFound, p, "", "script declares no exports", nil)
	}

	handlers := make(sequence.Handlers, len(out.Exports))
	for _, name := range out.Exports {
		handlers[name] = l.handler(compiled, name)
	}

	l.logger.Debug("Loaded Tengo module", "path", p, "handlers", handlers.Names(), "checksum", s.Checksum[:12])
	return &modules.Module{
		Specifier: p,
		Exports:   map[string]any{modules.HandlersExport: handlers},
	}, nil
}

func (l *ModuleLoader) handler(compiled *CompiledScript, name string) sequence.Handler {
	return func(ctx context.Context, data map[string]any) (any, error) {
		if data == nil {
			data = map[string]any{}
		}
		out, err := l.engine.Execute(ctx, compiled, map[string]any{VarHandler: name, VarData: data})
		if err != nil {
			return nil, err
		}
		return out.Result, nil
	}
}
