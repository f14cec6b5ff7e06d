// Package tally is a built-in module whose whole point is static state: the
// counter lives in the load, so every context keeps its own tally.
package tally

import (
	"context"
	_ "embed"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modcell/internal/dispatch"
)

//go:embed manifest.hcl
var payload []byte

// Module registers the tally behaviors and supplies the embedded payload.
type Module struct{}

func (Module) Payload() []byte {
	return payload
}

func (Module) Register(b *dispatch.Behaviors) {
	b.Register("Tally", "Tally.Counter", "Bump", bump)
}

func bump(_ context.Context, call *dispatch.Call) (cty.Value, error) {
	current, err := call.Type.Static("count")
	if err != nil {
		return cty.NilVal, err
	}
	n, _ := current.AsBigFloat().Int64()
	next := cty.NumberIntVal(n + 1)
	if err := call.Type.SetStatic("count", next); err != nil {
		return cty.NilVal, err
	}
	return next, nil
}
