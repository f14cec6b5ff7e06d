package dispatch

import (
	"context"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modcell/internal/manifest"
)

// Table is one load's dispatch surface: every exported type of the payload,
// with methods bound to behaviors and statics holding per-load state.
type Table struct {
	module string
	types  map[string]*Type
}

// Type is a per-load type handle. Pointer identity is load identity: the
// "same" type from another load is a different *Type.
type Type struct {
	name    string
	methods map[string]*boundMethod
	statics *staticSet
}

type boundMethod struct {
	decl *manifest.Method
	fn   Func // nil when no behavior is registered
}

type staticSet struct {
	mu     sync.RWMutex
	decls  map[string]*manifest.Static
	values map[string]cty.Value
}

// Instance is an object created from one load's type handle. It may only be
// used through the table that created it.
type Instance struct {
	typ *Type
}

// Call is the invocation a behavior receives: the receiver type handle of
// this particular load, the instance if one was passed, and the checked
// arguments.
type Call struct {
	Type     *Type
	Instance *Instance
	Args     []cty.Value
}

// Build constructs the dispatch table for a parsed payload, binding manifest
// methods to registered behaviors.
func Build(mod *manifest.Module, behaviors *Behaviors) *Table {
	t := &Table{
		module: mod.Name,
		types:  make(map[string]*Type, len(mod.Types)),
	}

	for name, declared := range mod.Types {
		typ := &Type{
			name:    name,
			methods: make(map[string]*boundMethod, len(declared.Methods)),
			statics: &staticSet{
				decls:  make(map[string]*manifest.Static, len(declared.Statics)),
				values: make(map[string]cty.Value, len(declared.Statics)),
			},
		}
		for memberName, decl := range declared.Methods {
			fn, _ := behaviors.lookup(mod.Name, name, memberName)
			typ.methods[memberName] = &boundMethod{decl: decl, fn: fn}
		}
		for memberName, decl := range declared.Statics {
			typ.statics.decls[memberName] = decl
			typ.statics.values[memberName] = decl.Default
		}
		t.types[name] = typ
	}

	return t
}

// Module returns the simple name of the module this table was built for.
func (t *Table) Module() string {
	return t.module
}

// TypeNames returns the exported type names in lexical order.
func (t *Table) TypeNames() []string {
	names := make([]string, 0, len(t.types))
	for name := range t.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MemberNames returns the member names of one exported type in lexical order.
func (t *Table) MemberNames(typeName string) ([]string, error) {
	typ, ok := t.types[typeName]
	if !ok {
		return nil, &InvocationError{TypeName: typeName, Reason: "type not exported"}
	}
	names := make([]string, 0, len(typ.methods)+len(typ.statics.decls))
	for name := range typ.methods {
		names = append(names, name)
	}
	for name := range typ.statics.decls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// NewInstance constructs an instance of an exported type. The instance is
// bound to this table and is rejected by any other.
func (t *Table) NewInstance(typeName string) (*Instance, error) {
	typ, ok := t.types[typeName]
	if !ok {
		return nil, &InvocationError{TypeName: typeName, Reason: "type not exported"}
	}
	return &Instance{typ: typ}, nil
}

// Invoke dispatches a member by name. For methods, args are checked against
// the declared parameter list and passed to the bound behavior. For statics,
// zero args reads the current value and one arg writes it.
func (t *Table) Invoke(ctx context.Context, typeName, memberName string, inst *Instance, args []cty.Value) (cty.Value, error) {
	typ, ok := t.types[typeName]
	if !ok {
		return cty.NilVal, &InvocationError{TypeName: typeName, Member: memberName, Reason: "type not exported"}
	}
	if inst != nil && inst.typ != typ {
		return cty.NilVal, &TypeMismatchError{TypeName: typeName}
	}

	if m, ok := typ.methods[memberName]; ok {
		return typ.invokeMethod(ctx, memberName, m, inst, args)
	}
	if _, ok := typ.statics.decls[memberName]; ok {
		return typ.accessStatic(memberName, args)
	}
	return cty.NilVal, &InvocationError{TypeName: typeName, Member: memberName, Reason: "member not exported"}
}

func (typ *Type) invokeMethod(ctx context.Context, memberName string, m *boundMethod, inst *Instance, args []cty.Value) (cty.Value, error) {
	if m.fn == nil {
		return cty.NilVal, &InvocationError{TypeName: typ.name, Member: memberName, Reason: "no behavior bound"}
	}
	if len(args) != len(m.decl.Params) {
		return cty.NilVal, &InvocationError{
			TypeName: typ.name,
			Member:   memberName,
			Reason:   "wrong number of arguments",
		}
	}
	for i, arg := range args {
		if err := checkMarshalable(typ.name, memberName, arg); err != nil {
			return cty.NilVal, err
		}
		if !arg.IsNull() && !arg.Type().Equals(m.decl.Params[i]) {
			return cty.NilVal, &InvocationError{
				TypeName: typ.name,
				Member:   memberName,
				Reason:   "argument " + m.decl.Params[i].FriendlyName() + " expected, got " + arg.Type().FriendlyName(),
			}
		}
	}

	result, err := m.fn(ctx, &Call{Type: typ, Instance: inst, Args: args})
	if err != nil {
		return cty.NilVal, err
	}
	if m.decl.Result == cty.NilType {
		return cty.NilVal, nil
	}
	if err := checkMarshalable(typ.name, memberName, result); err != nil {
		return cty.NilVal, err
	}
	if !result.IsNull() && !result.Type().Equals(m.decl.Result) {
		return cty.NilVal, &InvocationError{
			TypeName: typ.name,
			Member:   memberName,
			Reason:   "result " + m.decl.Result.FriendlyName() + " expected, got " + result.Type().FriendlyName(),
		}
	}
	return result, nil
}

func (typ *Type) accessStatic(memberName string, args []cty.Value) (cty.Value, error) {
	switch len(args) {
	case 0:
		return typ.Static(memberName)
	case 1:
		if err := typ.SetStatic(memberName, args[0]); err != nil {
			return cty.NilVal, err
		}
		return args[0], nil
	default:
		return cty.NilVal, &InvocationError{
			TypeName: typ.name,
			Member:   memberName,
			Reason:   "statics take zero args to read or one to write",
		}
	}
}

// Name returns the exported type's name.
func (typ *Type) Name() string {
	return typ.name
}

// Static reads a static member's current value for this load.
func (typ *Type) Static(memberName string) (cty.Value, error) {
	typ.statics.mu.RLock()
	defer typ.statics.mu.RUnlock()
	if _, ok := typ.statics.decls[memberName]; !ok {
		return cty.NilVal, &InvocationError{TypeName: typ.name, Member: memberName, Reason: "static not exported"}
	}
	return typ.statics.values[memberName], nil
}

// SetStatic writes a static member's value for this load.
func (typ *Type) SetStatic(memberName string, val cty.Value) error {
	decl, ok := typ.statics.decls[memberName]
	if !ok {
		return &InvocationError{TypeName: typ.name, Member: memberName, Reason: "static not exported"}
	}
	if err := checkMarshalable(typ.name, memberName, val); err != nil {
		return err
	}
	if !val.IsNull() && !val.Type().Equals(decl.Type) {
		return &InvocationError{
			TypeName: typ.name,
			Member:   memberName,
			Reason:   "value " + decl.Type.FriendlyName() + " expected, got " + val.Type().FriendlyName(),
		}
	}
	typ.statics.mu.Lock()
	defer typ.statics.mu.Unlock()
	typ.statics.values[memberName] = val
	return nil
}

// checkMarshalable rejects values that may not cross the boundary. Null is
// always allowed.
func checkMarshalable(typeName, memberName string, val cty.Value) error {
	if val == cty.NilVal || val.IsNull() {
		return nil
	}
	if !val.Type().IsPrimitiveType() {
		return &InvocationError{
			TypeName: typeName,
			Member:   memberName,
			Reason:   val.Type().FriendlyName() + " values are not marshalable across contexts",
		}
	}
	return nil
}
