// Package widgets is the demo built-in module: one type with a method and a
// static usage counter.
package widgets

import (
	"context"
	_ "embed"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modcell/internal/dispatch"
)

//go:embed manifest.hcl
var payload []byte

// Module registers the widgets behaviors and supplies the embedded payload.
type Module struct{}

// Payload returns the manifest bytes loaded into the default context at
// host startup.
func (Module) Payload() []byte {
	return payload
}

// Register registers the behaviors backing the manifest's methods.
func (Module) Register(b *dispatch.Behaviors) {
	b.Register("Widgets", "Widgets.Widget", "Describe", describe)
}

func describe(_ context.Context, call *dispatch.Call) (cty.Value, error) {
	seen, err := call.Type.Static("described")
	if err != nil {
		return cty.NilVal, err
	}
	n, _ := seen.AsBigFloat().Int64()
	if err := call.Type.SetStatic("described", cty.NumberIntVal(n+1)); err != nil {
		return cty.NilVal, err
	}
	return cty.StringVal("a " + call.Args[0].AsString() + " widget"), nil
}
