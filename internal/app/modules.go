package app

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/nfrund/sequencer/internal/modules"
	"github.com/nfrund/sequencer/internal/plugins"
	"github.com/nfrund/sequencer/internal/script"
	"github.com/nfrund/sequencer/internal/source"
)

// provideModules builds the module registry: the builtin Go modules form the
// static loader table and Tengo scripts are the dynamic fallback.
func provideModules(i do.Injector) (*modules.Registry, error) {
	logger := do.MustInvoke[*slog.Logger](i)
	src := do.MustInvoke[*source.Chain](i)

	reg := modules.NewRegistry(logger)
	if err := plugins.Register(reg, logger); err != nil {
		return nil, err
	}
	reg.AddDynamic(script.NewModuleLoader(src, script.NewTengoEngine(logger), logger))
	return reg, nil
}
