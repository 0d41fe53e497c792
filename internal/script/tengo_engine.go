package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// Variables every handler module run sees.
const (
	VarHandler = "handler"
	VarData    = "data"
	VarResult  = "result"
	VarExports = "exports"
)

// TengoEngine compiles and runs handler module scripts
type TengoEngine struct {
	limits SecurityLimits
	logger *slog.Logger
}

// NewTengoEngine creates a new Tengo engine with default security limits
func NewTengoEngine(logger *slog.Logger) *TengoEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &TengoEngine{
		limits: GetDefaultSecurityLimits(),
		logger: logger.With("component", "tengo"),
	}
}

// SetSecurityLimits configures resource and security constraints
func (e *TengoEngine) SetSecurityLimits(limits SecurityLimits) {
	e.limits = limits
}

// Compile checks the script's syntax against the handler module variables.
func (e *TengoEngine) Compile(s *Script) (*CompiledScript, error) {
	ts, err := e.prepare(s, map[string]any{VarHandler: "", VarData: map[string]any{}})
	if err != nil {
		return nil, err
	}
	if _, err := ts.Compile(); err != nil {
		return nil, NewScriptError(ErrorTypeCompilation, s.Path, "", "failed to compile Tengo script", err)
	}
	return &CompiledScript{Script: s}, nil
}

// Execute runs the script with vars defined and returns its result and exports.
// Variables must be added before compilation, so each run compiles afresh.
func (e *TengoEngine) Execute(ctx context.Context, compiled *CompiledScript, vars map[string]any) (*Output, error) {
	start := time.Now()
	s := compiled.Script
	handler, _ := vars[VarHandler].(string)

	ts, err := e.prepare(s, vars)
	if err != nil {
		return nil, err
	}
	c, err := ts.Compile()
	if err != nil {
		return nil, NewScriptError(ErrorTypeCompilation, s.Path, handler, "failed to compile Tengo script with variables", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, e.limits.MaxExecutionTime)
	defer cancel()

	if err := c.RunContext(execCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewScriptError(ErrorTypeTimeout, s.Path, handler, "script execution timed out", err)
		}
		return nil, NewScriptError(ErrorTypeExecution, s.Path, handler, "script execution failed", err)
	}

	out := &Output{
		Result:        c.Get(VarResult).Value(),
		Exports:       extractExports(c),
		ExecutionTime: time.Since(start),
	}
	e.logger.Debug("Tengo script executed", "path", s.Path, "handler", handler, "execution_time", out.ExecutionTime)
	return out, nil
}

func (e *TengoEngine) prepare(s *Script, vars map[string]any) (*tengo.Script, error) {
	ts := tengo.NewScript([]byte(s.Content))
	ts.SetImports(stdlib.GetModuleMap(e.limits.AllowedPackages...))
	if e.limits.MaxAllocs > 0 {
		ts.SetMaxAllocs(e.limits.MaxAllocs)
	}

	for name, value := range vars {
		if err := ts.Add(name, value); err != nil {
			normalized, nerr := normalize(value)
			if nerr != nil {
				return nil, NewScriptError(ErrorTypeInput, s.Path, "", fmt.Sprintf("cannot pass variable %s", name), err)
			}
			if err := ts.Add(name, normalized); err != nil {
				return nil, NewScriptError(ErrorTypeInput, s.Path, "", fmt.Sprintf("cannot pass variable %s", name), err)
			}
		}
	}

	if err := ts.Add("log", e.logFunction(s.Path)); err != nil {
		return nil, NewScriptError(ErrorTypeInput, s.Path, "", "failed to add logging function", err)
	}
	return ts, nil
}

// logFunction exposes log(msg) to scripts, routed to the structured logger.
func (e *TengoEngine) logFunction(path string) *tengo.UserFunction {
	return &tengo.UserFunction{
		Name: "log",
		Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) != 1 {
				return nil, tengo.ErrWrongNumArguments
			}
			msg, ok := tengo.ToString(args[0])
			if !ok {
				msg = args[0].String()
			}
			e.logger.Info("Script log", "message", msg, "path", path)
			return tengo.UndefinedValue, nil
		},
	}
}

// normalize round-trips a value through JSON so nested Go types become the
// maps and slices Tengo can convert.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func extractExports(c *tengo.Compiled) []string {
	if !c.IsDefined(VarExports) {
		return nil
	}
	list, ok := c.Get(VarExports).Value().([]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(list))
	for _, v := range list {
		if name, ok := v.(string); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}
