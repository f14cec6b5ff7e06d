package app

import (
	"fmt"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modcell/internal/dispatch"
	"github.com/vk/modcell/internal/hostcfg"
	"github.com/vk/modcell/internal/loader"
	"github.com/vk/modcell/internal/resolve"
)

// ExecutePlan loads the host plan and carries it out: contexts first, then
// explicit loads, then calls. Paths in the plan are relative to the plan
// file's directory.
func (a *App) ExecutePlan() error {
	plan, err := hostcfg.LoadFile(a.ctx, a.config.HostPath)
	if err != nil {
		return err
	}
	baseDir := filepath.Dir(a.config.HostPath)

	if err := a.createContexts(plan, baseDir); err != nil {
		return err
	}
	if err := a.performLoads(plan, baseDir); err != nil {
		return err
	}
	return a.performCalls(plan)
}

func (a *App) createContexts(plan *hostcfg.Plan, baseDir string) error {
	for _, cp := range plan.Contexts {
		var opts []loader.ContextOption
		if cp.SearchPath != "" {
			hook := resolve.Directory(resolvePath(baseDir, cp.SearchPath), cp.Constraint)
			opts = append(opts, loader.WithResolvingHook(hook))
		}
		if !cp.DefaultFallback {
			opts = append(opts, loader.WithoutDefaultFallback())
		}
		if _, err := a.registry.NewContext(cp.Name, opts...); err != nil {
			return err
		}
		a.logger.Info("Context created.", "context", cp.Name,
			"search_path", cp.SearchPath, "default_fallback", cp.DefaultFallback)
	}
	return nil
}

func (a *App) performLoads(plan *hostcfg.Plan, baseDir string) error {
	for _, lp := range plan.Loads {
		target, ok := a.registry.Context(lp.Context)
		if !ok {
			return fmt.Errorf("app: load %q: unknown context %q", lp.Module, lp.Context)
		}
		src, err := resolve.FromFile(a.ctx, lp.Module, resolvePath(baseDir, lp.Payload))
		if err != nil {
			return err
		}
		d, err := target.Load(a.ctx, src.Identity, src.Payload)
		if err != nil {
			return err
		}
		a.logger.Info("Module loaded.", "context", lp.Context, "module", d.Identity().String())
	}
	return nil
}

func (a *App) performCalls(plan *hostcfg.Plan) error {
	for _, cp := range plan.Calls {
		target, ok := a.registry.Context(cp.Context)
		if !ok {
			return fmt.Errorf("app: call %q: unknown context %q", cp.Name, cp.Context)
		}
		d, err := target.Resolve(a.ctx, cp.Module)
		if err != nil {
			return fmt.Errorf("app: call %q: %w", cp.Name, err)
		}

		var inst *dispatch.Instance
		if cp.NewInstance {
			inst, err = d.Exports().NewInstance(cp.Type)
			if err != nil {
				return fmt.Errorf("app: call %q: %w", cp.Name, err)
			}
		}

		result, err := d.Exports().Invoke(a.ctx, cp.Type, cp.Member, inst, cp.Args)
		if err != nil {
			return fmt.Errorf("app: call %q: %w", cp.Name, err)
		}

		rendered := renderValue(result)
		a.logger.Info("Call completed.", "call", cp.Name, "context", cp.Context,
			"module", cp.Module, "member", cp.Member, "result", rendered)
		fmt.Fprintf(a.outW, "%s = %s\n", cp.Name, rendered)
	}
	return nil
}

// renderValue prints a boundary value the way a user wrote it in the plan.
// Only primitives cross the boundary, so three cases cover everything.
func renderValue(val cty.Value) string {
	if val == cty.NilVal || val.IsNull() {
		return "null"
	}
	switch val.Type() {
	case cty.String:
		return val.AsString()
	case cty.Number:
		return val.AsBigFloat().Text('f', -1)
	case cty.Bool:
		if val.True() {
			return "true"
		}
		return "false"
	}
	return val.GoString()
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
