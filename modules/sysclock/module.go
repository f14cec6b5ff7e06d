// Package sysclock is a built-in module exposing the host clock through the
// invocation boundary.
package sysclock

import (
	"context"
	_ "embed"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modcell/internal/dispatch"
)

//go:embed manifest.hcl
var payload []byte

// Module registers the sysclock behaviors and supplies the embedded payload.
type Module struct{}

func (Module) Payload() []byte {
	return payload
}

func (Module) Register(b *dispatch.Behaviors) {
	b.Register("Sysclock", "Sysclock.Clock", "UnixNow", unixNow)
}

func unixNow(_ context.Context, _ *dispatch.Call) (cty.Value, error) {
	return cty.NumberIntVal(time.Now().Unix()), nil
}
