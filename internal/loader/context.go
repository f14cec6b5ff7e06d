package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/modcell/internal/ctxlog"
	"github.com/vk/modcell/internal/dispatch"
	"github.com/vk/modcell/internal/manifest"
	"github.com/vk/modcell/internal/metrics"
	"github.com/vk/modcell/internal/module"
)

// State is the lifecycle state of a context.
type State int

const (
	// StateCreated marks a context that has not loaded anything yet.
	StateCreated State = iota
	// StateActive marks a context holding zero or more loaded modules and
	// accepting load and resolve calls.
	StateActive
	// StateUnreferenced marks a released context. Its loaded modules remain
	// resident; new operations against it fail fast.
	StateUnreferenced
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateUnreferenced:
		return "unreferenced"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Context is a named resolution scope owning a non-conflicting set of loaded
// modules.
type Context struct {
	name      string
	id        uint64
	reg       *Registry
	isDefault bool

	loadHook        Hook
	resolvingHook   Hook
	defaultFallback bool

	mu      sync.RWMutex
	state   State
	modules map[string]*module.Descriptor
}

// Name returns the context's name.
func (c *Context) Name() string {
	return c.name
}

// IsDefault reports whether this is the process's default context.
func (c *Context) IsDefault() bool {
	return c.isDefault
}

// State returns the context's lifecycle state.
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Modules returns the identities visible in this context, own loads and
// borrowed default-context modules alike.
func (c *Context) Modules() []module.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]module.Identity, 0, len(c.modules))
	for _, d := range c.modules {
		out = append(out, d.Identity())
	}
	return out
}

// Loaded looks up a simple name in this context's table without delegation.
func (c *Context) Loaded(simpleName string) (*module.Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.modules[simpleName]
	return d, ok
}

// Load loads a payload under the given identity into this context.
//
// A simple name already present at the same version returns the existing
// descriptor. A simple name present at a different version fails with
// *ConflictError and leaves the original load untouched. The payload's own
// manifest must agree with the claimed identity.
func (c *Context) Load(ctx context.Context, identity module.Identity, payload []byte) (*module.Descriptor, error) {
	logger := ctxlog.FromContext(ctx)

	if identity.Name == "" {
		metrics.LoadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("loader: module name must not be empty")
	}
	if identity.Version.IsZero() {
		metrics.LoadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("loader: module %q: version is required", identity.Name)
	}

	// Parse outside the table lock; only the winning parse is kept.
	mod, err := manifest.Parse(ctx, payload, identity.Name)
	if err != nil {
		metrics.LoadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if mod.Name != identity.Name {
		metrics.LoadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("loader: payload declares module %q, loaded as %q", mod.Name, identity.Name)
	}
	if !mod.Version.Equal(identity.Version) {
		metrics.LoadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("loader: payload of %q declares version %s, loaded as %s",
			identity.Name, mod.Version.String(), identity.Version.String())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateUnreferenced {
		metrics.LoadsTotal.WithLabelValues("error").Inc()
		return nil, ErrContextReleased
	}

	if existing, ok := c.modules[identity.Name]; ok {
		if existing.Identity().Version.Equal(identity.Version) {
			logger.Debug("Load memoized.", "context", c.name, "module", identity.String())
			metrics.LoadsTotal.WithLabelValues("memoized").Inc()
			return existing, nil
		}
		metrics.LoadsTotal.WithLabelValues("conflict").Inc()
		return nil, &ConflictError{
			Name:      identity.Name,
			Context:   c.name,
			Existing:  existing.Identity().Version,
			Requested: identity.Version,
		}
	}

	d := module.NewDescriptor(identity, payload, dispatch.Build(mod, c.reg.behaviors))
	c.modules[identity.Name] = d
	c.state = StateActive
	c.reg.recordOwner(d, c)

	logger.Debug("Module loaded.", "context", c.name, "module", identity.String(), "types", len(mod.Types))
	metrics.LoadsTotal.WithLabelValues("loaded").Inc()
	return d, nil
}

// Release marks a custom context unreferenced and removes it from the
// registry's name table. Modules it loaded are not reclaimed: owner lookups
// and existing descriptors keep working for the process lifetime. The default
// context cannot be released.
func (c *Context) Release() error {
	if c.isDefault {
		return fmt.Errorf("loader: the default context cannot be released")
	}

	c.mu.Lock()
	if c.state == StateUnreferenced {
		c.mu.Unlock()
		return nil
	}
	c.state = StateUnreferenced
	c.mu.Unlock()

	c.reg.dropContext(c.name)
	return nil
}

// borrow records a descriptor resolved from the default context into this
// context's table, so later resolutions hit locally. Ownership is not
// transferred. The entry is dropped again if a competing load won the slot.
func (c *Context) borrow(simpleName string, d *module.Descriptor) (*module.Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateUnreferenced {
		return nil, ErrContextReleased
	}
	if existing, ok := c.modules[simpleName]; ok {
		return existing, nil
	}
	c.modules[simpleName] = d
	c.state = StateActive
	return d, nil
}
