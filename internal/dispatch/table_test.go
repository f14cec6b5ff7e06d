package dispatch

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modcell/internal/manifest"
)

const widgetPayload = `
	module "Widgets" {
		version = "1.0.0"
	}

	type "Widgets.Widget" {
		method "Describe" {
			params = [string]
			result = string
		}
		method "Orphan" {
			result = string
		}
		static "counter" {
			type    = number
			default = 0
		}
	}
`

func buildWidgetTable(t *testing.T, behaviors *Behaviors) *Table {
	t.Helper()
	mod, err := manifest.Parse(context.Background(), []byte(widgetPayload), "widgets.hcl")
	require.NoError(t, err)
	return Build(mod, behaviors)
}

func widgetBehaviors() *Behaviors {
	b := NewBehaviors()
	b.Register("Widgets", "Widgets.Widget", "Describe", func(_ context.Context, call *Call) (cty.Value, error) {
		return cty.StringVal("widget: " + call.Args[0].AsString()), nil
	})
	return b
}

func TestInvoke_Method(t *testing.T) {
	table := buildWidgetTable(t, widgetBehaviors())

	got, err := table.Invoke(context.Background(), "Widgets.Widget", "Describe", nil, []cty.Value{cty.StringVal("blue")})
	require.NoError(t, err)
	assert.Equal(t, "widget: blue", got.AsString())
}

func TestInvoke_MethodErrors(t *testing.T) {
	table := buildWidgetTable(t, widgetBehaviors())
	ctx := context.Background()

	t.Run("unknown type", func(t *testing.T) {
		_, err := table.Invoke(ctx, "Widgets.Gadget", "Describe", nil, nil)
		var invErr *InvocationError
		require.ErrorAs(t, err, &invErr)
		assert.Equal(t, "type not exported", invErr.Reason)
	})

	t.Run("unknown member", func(t *testing.T) {
		_, err := table.Invoke(ctx, "Widgets.Widget", "Vanish", nil, nil)
		var invErr *InvocationError
		require.ErrorAs(t, err, &invErr)
		assert.Equal(t, "member not exported", invErr.Reason)
	})

	t.Run("no behavior bound", func(t *testing.T) {
		_, err := table.Invoke(ctx, "Widgets.Widget", "Orphan", nil, nil)
		var invErr *InvocationError
		require.ErrorAs(t, err, &invErr)
		assert.Equal(t, "no behavior bound", invErr.Reason)
	})

	t.Run("wrong arity", func(t *testing.T) {
		_, err := table.Invoke(ctx, "Widgets.Widget", "Describe", nil, nil)
		var invErr *InvocationError
		require.ErrorAs(t, err, &invErr)
		assert.Equal(t, "wrong number of arguments", invErr.Reason)
	})

	t.Run("wrong argument type", func(t *testing.T) {
		_, err := table.Invoke(ctx, "Widgets.Widget", "Describe", nil, []cty.Value{cty.True})
		var invErr *InvocationError
		require.ErrorAs(t, err, &invErr)
		assert.Contains(t, invErr.Reason, "string expected")
	})

	t.Run("structural argument rejected", func(t *testing.T) {
		arg := cty.ListVal([]cty.Value{cty.StringVal("x")})
		_, err := table.Invoke(ctx, "Widgets.Widget", "Describe", nil, []cty.Value{arg})
		var invErr *InvocationError
		require.ErrorAs(t, err, &invErr)
		assert.Contains(t, invErr.Reason, "not marshalable")
	})
}

func TestInvoke_StaticReadWrite(t *testing.T) {
	table := buildWidgetTable(t, widgetBehaviors())
	ctx := context.Background()

	got, err := table.Invoke(ctx, "Widgets.Widget", "counter", nil, nil)
	require.NoError(t, err)
	assert.True(t, got.RawEquals(cty.NumberIntVal(0)))

	_, err = table.Invoke(ctx, "Widgets.Widget", "counter", nil, []cty.Value{cty.NumberIntVal(7)})
	require.NoError(t, err)

	got, err = table.Invoke(ctx, "Widgets.Widget", "counter", nil, nil)
	require.NoError(t, err)
	assert.True(t, got.RawEquals(cty.NumberIntVal(7)))

	_, err = table.Invoke(ctx, "Widgets.Widget", "counter", nil, []cty.Value{cty.StringVal("x")})
	var invErr *InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Contains(t, invErr.Reason, "number expected")
}

func TestInvoke_StaticStateIsPerTable(t *testing.T) {
	behaviors := widgetBehaviors()
	a := buildWidgetTable(t, behaviors)
	b := buildWidgetTable(t, behaviors)
	ctx := context.Background()

	_, err := a.Invoke(ctx, "Widgets.Widget", "counter", nil, []cty.Value{cty.NumberIntVal(42)})
	require.NoError(t, err)

	got, err := b.Invoke(ctx, "Widgets.Widget", "counter", nil, nil)
	require.NoError(t, err)
	assert.True(t, got.RawEquals(cty.NumberIntVal(0)), "static state leaked between tables")
}

func TestInvoke_InstanceFromAnotherTableRejected(t *testing.T) {
	behaviors := widgetBehaviors()
	a := buildWidgetTable(t, behaviors)
	b := buildWidgetTable(t, behaviors)

	inst, err := a.NewInstance("Widgets.Widget")
	require.NoError(t, err)

	_, err = b.Invoke(context.Background(), "Widgets.Widget", "Describe", inst, []cty.Value{cty.StringVal("x")})
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "Widgets.Widget", mismatch.TypeName)

	// The same instance is fine through its own table.
	_, err = a.Invoke(context.Background(), "Widgets.Widget", "Describe", inst, []cty.Value{cty.StringVal("x")})
	assert.NoError(t, err)
}

func TestTableIntrospection(t *testing.T) {
	table := buildWidgetTable(t, widgetBehaviors())

	assert.Equal(t, "Widgets", table.Module())
	assert.Equal(t, []string{"Widgets.Widget"}, table.TypeNames())

	members, err := table.MemberNames("Widgets.Widget")
	require.NoError(t, err)
	assert.Equal(t, []string{"Describe", "Orphan", "counter"}, members)

	_, err = table.MemberNames("Widgets.Gadget")
	assert.Error(t, err)
}

func TestBehaviors_DuplicateRegistrationPanics(t *testing.T) {
	b := NewBehaviors()
	fn := func(context.Context, *Call) (cty.Value, error) { return cty.NilVal, nil }
	b.Register("M", "M.T", "Do", fn)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		assert.True(t, strings.Contains(r.(string), "already registered"))
	}()
	b.Register("M", "M.T", "Do", fn)
}

func TestInvoke_BehaviorKeepsStateInStatics(t *testing.T) {
	b := NewBehaviors()
	b.Register("Widgets", "Widgets.Widget", "Describe", func(_ context.Context, call *Call) (cty.Value, error) {
		seen, err := call.Type.Static("counter")
		if err != nil {
			return cty.NilVal, err
		}
		n, _ := seen.AsBigFloat().Int64()
		if err := call.Type.SetStatic("counter", cty.NumberIntVal(n+1)); err != nil {
			return cty.NilVal, err
		}
		return cty.StringVal(call.Args[0].AsString()), nil
	})

	table := buildWidgetTable(t, b)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := table.Invoke(ctx, "Widgets.Widget", "Describe", nil, []cty.Value{cty.StringVal("x")})
		require.NoError(t, err)
	}

	got, err := table.Invoke(ctx, "Widgets.Widget", "counter", nil, nil)
	require.NoError(t, err)
	assert.True(t, got.RawEquals(cty.NumberIntVal(3)))
}
