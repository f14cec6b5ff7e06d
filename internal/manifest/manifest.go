// Package manifest defines the payload format of a loadable module.
//
// A payload is an HCL document with exactly one 'module' block naming the
// module and its version, and any number of 'type' blocks declaring the
// members reachable through the invocation boundary:
//
//	module "Widgets" {
//	  version = "1.0.0.0"
//	}
//
//	type "Widgets.Widget" {
//	  method "Describe" {
//	    params = [string]
//	    result = string
//	  }
//	  static "counter" {
//	    type    = number
//	    default = 0
//	  }
//	}
//
// Member types are restricted to the primitive kinds (string, number, bool)
// because only primitive values may cross the invocation boundary.
package manifest

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/modcell/internal/ctxlog"
	"github.com/vk/modcell/internal/version"
)

// Module is the decoded export surface of a payload.
type Module struct {
	Name    string
	Version version.Version
	Types   map[string]*Type
}

// Type declares one exported type and its members.
type Type struct {
	Name    string
	Methods map[string]*Method
	Statics map[string]*Static
}

// Method declares a callable member.
type Method struct {
	Name   string
	Params []cty.Type
	Result cty.Type
}

// Static declares a mutable static member with an optional default value.
type Static struct {
	Name    string
	Type    cty.Type
	Default cty.Value
}

// moduleRootSchema expects one 'module' block plus 'type' blocks.
type moduleRootSchema struct {
	Modules []*hclModule `hcl:"module,block"`
	Types   []*hclType   `hcl:"type,block"`
}

type hclModule struct {
	Name    string `hcl:"name,label"`
	Version string `hcl:"version"`
}

type hclType struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// Parse decodes a payload into its export surface.
func Parse(ctx context.Context, payload []byte, filename string) (*Module, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing module payload.", "file", filename)

	file, diags := hclparse.NewParser().ParseHCL(payload, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("manifest: parse %s: %w", filename, diags)
	}

	schema := &moduleRootSchema{}
	if diags := gohcl.DecodeBody(file.Body, nil, schema); diags.HasErrors() {
		return nil, fmt.Errorf("manifest: decode %s: %w", filename, diags)
	}
	if len(schema.Modules) != 1 {
		return nil, fmt.Errorf("manifest: %s must contain exactly one 'module' block, found %d", filename, len(schema.Modules))
	}

	v, err := version.Parse(schema.Modules[0].Version)
	if err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", filename, err)
	}

	mod := &Module{
		Name:    schema.Modules[0].Name,
		Version: v,
		Types:   make(map[string]*Type, len(schema.Types)),
	}
	if mod.Name == "" {
		return nil, fmt.Errorf("manifest: %s: module name must not be empty", filename)
	}

	for _, raw := range schema.Types {
		if _, exists := mod.Types[raw.Name]; exists {
			return nil, fmt.Errorf("manifest: %s: duplicate type %q", filename, raw.Name)
		}
		typ, err := parseType(raw)
		if err != nil {
			return nil, fmt.Errorf("manifest: %s: %w", filename, err)
		}
		mod.Types[raw.Name] = typ
	}

	logger.Debug("Parsed module payload.", "module", mod.Name, "version", mod.Version.String(), "types", len(mod.Types))
	return mod, nil
}

var typeBodySchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "method", LabelNames: []string{"name"}},
		{Type: "static", LabelNames: []string{"name"}},
	},
}

func parseType(raw *hclType) (*Type, error) {
	content, diags := raw.Body.Content(typeBodySchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("type %q: %w", raw.Name, diags)
	}

	typ := &Type{
		Name:    raw.Name,
		Methods: make(map[string]*Method),
		Statics: make(map[string]*Static),
	}

	for _, block := range content.Blocks {
		name := block.Labels[0]
		switch block.Type {
		case "method":
			if _, exists := typ.Methods[name]; exists {
				return nil, fmt.Errorf("type %q: duplicate method %q", raw.Name, name)
			}
			m, err := parseMethod(name, block.Body)
			if err != nil {
				return nil, fmt.Errorf("type %q: %w", raw.Name, err)
			}
			typ.Methods[name] = m
		case "static":
			if _, exists := typ.Statics[name]; exists {
				return nil, fmt.Errorf("type %q: duplicate static %q", raw.Name, name)
			}
			s, err := parseStatic(name, block.Body)
			if err != nil {
				return nil, fmt.Errorf("type %q: %w", raw.Name, err)
			}
			typ.Statics[name] = s
		}
	}

	return typ, nil
}

var methodBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "params"},
		{Name: "result"},
	},
}

func parseMethod(name string, body hcl.Body) (*Method, error) {
	content, diags := body.Content(methodBodySchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("method %q: %w", name, diags)
	}

	m := &Method{Name: name, Result: cty.NilType}

	if attr, exists := content.Attributes["params"]; exists {
		exprs, diags := hcl.ExprList(attr.Expr)
		if diags.HasErrors() {
			return nil, fmt.Errorf("method %q: params must be a list of type keywords: %w", name, diags)
		}
		for i, expr := range exprs {
			t, err := primitiveTypeExpr(expr)
			if err != nil {
				return nil, fmt.Errorf("method %q: param %d: %w", name, i, err)
			}
			m.Params = append(m.Params, t)
		}
	}

	if attr, exists := content.Attributes["result"]; exists {
		t, err := primitiveTypeExpr(attr.Expr)
		if err != nil {
			return nil, fmt.Errorf("method %q: result: %w", name, err)
		}
		m.Result = t
	}

	return m, nil
}

var staticBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type", Required: true},
		{Name: "default"},
	},
}

func parseStatic(name string, body hcl.Body) (*Static, error) {
	content, diags := body.Content(staticBodySchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("static %q: %w", name, diags)
	}

	t, err := primitiveTypeExpr(content.Attributes["type"].Expr)
	if err != nil {
		return nil, fmt.Errorf("static %q: %w", name, err)
	}

	s := &Static{Name: name, Type: t, Default: cty.NullVal(t)}

	if attr, exists := content.Attributes["default"]; exists {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("static %q: default: %w", name, diags)
		}
		converted, err := convert.Convert(val, t)
		if err != nil {
			return nil, fmt.Errorf("static %q: default does not fit declared type %s: %w", name, t.FriendlyName(), err)
		}
		s.Default = converted
	}

	return s, nil
}
