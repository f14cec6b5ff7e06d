package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Func is the Go implementation of one manifest method. The Call carries the
// receiver type handle of the load being invoked, so behaviors keep per-load
// state in statics instead of package variables.
type Func func(ctx context.Context, call *Call) (cty.Value, error)

// Module is the interface built-in module packages implement to contribute
// their behaviors to a host.
type Module interface {
	Register(b *Behaviors)
}

type behaviorKey struct {
	module string
	typ    string
	member string
}

// Behaviors is the process-wide registry of Go callables backing manifest
// methods. It is shared by every isolation context: isolation applies to
// loaded state, not to compiled code.
type Behaviors struct {
	mu    sync.RWMutex
	funcs map[behaviorKey]Func
}

// NewBehaviors creates an empty behavior registry.
func NewBehaviors() *Behaviors {
	return &Behaviors{funcs: make(map[behaviorKey]Func)}
}

// Register binds a Go function to a manifest method.
func (b *Behaviors) Register(module, typeName, member string, fn Func) {
	if fn == nil {
		panic(fmt.Sprintf("nil behavior for '%s' '%s' '%s'", module, typeName, member))
	}
	key := behaviorKey{module: module, typ: typeName, member: member}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.funcs[key]; exists {
		panic(fmt.Sprintf("behavior for '%s' '%s' '%s' already registered", module, typeName, member))
	}
	slog.Debug("Registering behavior.", "module", module, "type", typeName, "member", member)
	b.funcs[key] = fn
}

func (b *Behaviors) lookup(module, typeName, member string) (Func, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn, ok := b.funcs[behaviorKey{module: module, typ: typeName, member: member}]
	return fn, ok
}
