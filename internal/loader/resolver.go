package loader

import (
	"context"
	"fmt"

	"github.com/vk/modcell/internal/ctxlog"
	"github.com/vk/modcell/internal/metrics"
	"github.com/vk/modcell/internal/module"
)

// Source is a hook's answer: an identity plus the payload to load it from.
type Source struct {
	Identity module.Identity
	Payload  []byte
}

// Hook supplies payloads for simple names a context cannot resolve on its
// own. Returning (nil, nil) means not handled; an error fails the resolution
// outright.
type Hook func(ctx context.Context, simpleName string) (*Source, error)

// Resolve satisfies a request for a simple name from within this context.
//
// A name already visible in the context's table wins immediately. Otherwise
// the delegation chain runs in strict order:
//
//  1. the context's own load hook; a hit is loaded into and owned by this
//     context,
//  2. the default context's table: a module already loaded there by the same
//     simple name, any version, is borrowed rather than reloaded,
//  3. the context's resolving hook, loaded as in step 1,
//  4. the default context's resolving hook; its hit is loaded into the
//     default context and then borrowed,
//  5. failure with *UnresolvedError.
func (c *Context) Resolve(ctx context.Context, simpleName string) (*module.Descriptor, error) {
	logger := ctxlog.FromContext(ctx)

	if c.State() == StateUnreferenced {
		return nil, ErrContextReleased
	}
	if simpleName == "" {
		return nil, fmt.Errorf("loader: module name must not be empty")
	}

	if d, ok := c.Loaded(simpleName); ok {
		metrics.ResolutionsTotal.WithLabelValues("cached").Inc()
		return d, nil
	}

	// Step 1: the context's own load override.
	if c.loadHook != nil {
		d, err := c.loadFromHook(ctx, c.loadHook, simpleName)
		if err != nil {
			return nil, err
		}
		if d != nil {
			logger.Debug("Resolved via load hook.", "context", c.name, "module", d.Identity().String())
			metrics.ResolutionsTotal.WithLabelValues("load_hook").Inc()
			return d, nil
		}
	}

	// Step 2: reuse a module the default context already holds under this
	// simple name, regardless of version.
	if c.defaultFallback && !c.isDefault {
		if d, ok := c.reg.defaultCtx.Loaded(simpleName); ok {
			borrowed, err := c.borrow(simpleName, d)
			if err != nil {
				return nil, err
			}
			logger.Debug("Resolved via default context.", "context", c.name, "module", borrowed.Identity().String())
			metrics.ResolutionsTotal.WithLabelValues("default").Inc()
			return borrowed, nil
		}
	}

	// Step 3: the context's resolving fallback.
	if c.resolvingHook != nil {
		d, err := c.loadFromHook(ctx, c.resolvingHook, simpleName)
		if err != nil {
			return nil, err
		}
		if d != nil {
			logger.Debug("Resolved via resolving hook.", "context", c.name, "module", d.Identity().String())
			metrics.ResolutionsTotal.WithLabelValues("resolving_hook").Inc()
			return d, nil
		}
	}

	// Step 4: the process-wide resolving fallback on the default context.
	if !c.isDefault && c.reg.defaultCtx.resolvingHook != nil {
		d, err := c.reg.defaultCtx.loadFromHook(ctx, c.reg.defaultCtx.resolvingHook, simpleName)
		if err != nil {
			return nil, err
		}
		if d != nil {
			borrowed, err := c.borrow(simpleName, d)
			if err != nil {
				return nil, err
			}
			logger.Debug("Resolved via default resolving hook.", "context", c.name, "module", borrowed.Identity().String())
			metrics.ResolutionsTotal.WithLabelValues("default_resolving_hook").Inc()
			return borrowed, nil
		}
	}

	metrics.ResolutionsTotal.WithLabelValues("unresolved").Inc()
	return nil, &UnresolvedError{Name: simpleName, Context: c.name}
}

// loadFromHook asks a hook for a payload and loads its answer into c. An
// answer that collides with an existing same-version load settles on the
// existing descriptor through the usual memoization.
func (c *Context) loadFromHook(ctx context.Context, hook Hook, simpleName string) (*module.Descriptor, error) {
	src, err := hook(ctx, simpleName)
	if err != nil {
		return nil, fmt.Errorf("loader: hook failed resolving %q in context %q: %w", simpleName, c.name, err)
	}
	if src == nil {
		return nil, nil
	}
	if src.Identity.Name != simpleName {
		return nil, fmt.Errorf("loader: hook answered %q for a request of %q in context %q",
			src.Identity.Name, simpleName, c.name)
	}
	return c.Load(ctx, src.Identity, src.Payload)
}
