package loader

import (
	"fmt"
	"sync"

	"github.com/vk/modcell/internal/dispatch"
	"github.com/vk/modcell/internal/metrics"
	"github.com/vk/modcell/internal/module"
)

// DefaultContextName is the reserved name of the default context.
const DefaultContextName = "default"

// Registry is the process-wide context table. It is created once at host
// startup with the default context and lives for the process lifetime.
type Registry struct {
	behaviors *dispatch.Behaviors

	mu          sync.RWMutex
	contexts    map[string]*Context
	owners      map[*module.Descriptor]*Context
	defaultCtx  *Context
	nextContext uint64
}

// Option configures a Registry at creation time.
type Option func(*Registry)

// WithDefaultResolvingHook installs the process-wide resolving fallback on
// the default context. It is consulted last, for requests no other step could
// satisfy.
func WithDefaultResolvingHook(hook Hook) Option {
	return func(r *Registry) {
		r.defaultCtx.resolvingHook = hook
	}
}

// NewRegistry creates a registry holding only the default context. behaviors
// backs the dispatch tables of every module loaded through this registry.
func NewRegistry(behaviors *dispatch.Behaviors, opts ...Option) *Registry {
	if behaviors == nil {
		behaviors = dispatch.NewBehaviors()
	}
	r := &Registry{
		behaviors: behaviors,
		contexts:  make(map[string]*Context),
		owners:    make(map[*module.Descriptor]*Context),
	}
	r.defaultCtx = &Context{
		name:      DefaultContextName,
		id:        r.nextContextID(),
		reg:       r,
		isDefault: true,
		state:     StateActive,
		modules:   make(map[string]*module.Descriptor),
	}
	r.contexts[DefaultContextName] = r.defaultCtx
	metrics.ContextsLive.Inc()

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Default returns the default context.
func (r *Registry) Default() *Context {
	return r.defaultCtx
}

// ContextOption configures a custom context at creation time.
type ContextOption func(*Context)

// WithLoadHook installs the context's load override: it is consulted before
// any other resolution step, and its hits are loaded into and owned by the
// context.
func WithLoadHook(hook Hook) ContextOption {
	return func(c *Context) {
		c.loadHook = hook
	}
}

// WithResolvingHook installs the context's resolving fallback, consulted
// after the default-context lookup fails.
func WithResolvingHook(hook Hook) ContextOption {
	return func(c *Context) {
		c.resolvingHook = hook
	}
}

// WithoutDefaultFallback disables reuse of modules the default context has
// already loaded by the same simple name.
func WithoutDefaultFallback() ContextOption {
	return func(c *Context) {
		c.defaultFallback = false
	}
}

// NewContext creates a named isolation context. Names are unique among live
// contexts; the default context's name is reserved.
func (r *Registry) NewContext(name string, opts ...ContextOption) (*Context, error) {
	if name == "" {
		return nil, fmt.Errorf("loader: context name must not be empty")
	}
	if name == DefaultContextName {
		return nil, fmt.Errorf("loader: context name %q is reserved", DefaultContextName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.contexts[name]; exists {
		return nil, fmt.Errorf("loader: context %q already exists", name)
	}

	c := &Context{
		name:            name,
		id:              r.nextContextID(),
		reg:             r,
		state:           StateCreated,
		defaultFallback: true,
		modules:         make(map[string]*module.Descriptor),
	}
	for _, opt := range opts {
		opt(c)
	}

	r.contexts[name] = c
	metrics.ContextsLive.Inc()
	return c, nil
}

// Context looks up a live context by name.
func (r *Registry) Context(name string) (*Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contexts[name]
	return c, ok
}

// ContextNames returns the names of all live contexts.
func (r *Registry) ContextNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.contexts))
	for name := range r.contexts {
		names = append(names, name)
	}
	return names
}

// Owner reports the context a descriptor was loaded into. A descriptor
// reached through default-context fallback still reports the default context.
// Owner keeps answering for descriptors of released contexts: the loaded
// module stays resident even when its context does not.
func (r *Registry) Owner(d *module.Descriptor) (*Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.owners[d]
	return c, ok
}

func (r *Registry) recordOwner(d *module.Descriptor, c *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[d] = c
}

func (r *Registry) dropContext(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contexts[name]; ok {
		delete(r.contexts, name)
		metrics.ContextsLive.Dec()
	}
}

// nextContextID must be called with r.mu held, or before the registry is
// shared.
func (r *Registry) nextContextID() uint64 {
	r.nextContext++
	return r.nextContext
}
