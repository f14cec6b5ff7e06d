// Package hostcfg decodes the host plan: an HCL file telling the demo host
// which isolation contexts to create, which payloads to load where, and
// which members to invoke once everything is loaded.
//
//	context "plugins" {
//	  search_path      = "payloads"
//	  constraint       = ">=1.0.0"
//	  default_fallback = true
//	}
//
//	load "Widgets" {
//	  context = "plugins"
//	  payload = "payloads/widgets.hcl"
//	}
//
//	call "describe" {
//	  context      = "plugins"
//	  module       = "Widgets"
//	  type         = "Widgets.Widget"
//	  member       = "Describe"
//	  args         = ["blue"]
//	  new_instance = true
//	}
package hostcfg

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/modcell/internal/ctxlog"
	"github.com/vk/modcell/internal/version"
)

// Plan is the decoded host plan.
type Plan struct {
	Contexts []*ContextPlan
	Loads    []*LoadPlan
	Calls    []*CallPlan
}

// ContextPlan describes one isolation context to create.
type ContextPlan struct {
	Name            string
	SearchPath      string
	Constraint      version.Constraint
	DefaultFallback bool
}

// LoadPlan describes one explicit payload load.
type LoadPlan struct {
	Module  string
	Context string
	Payload string
}

// CallPlan describes one invocation to perform after loading.
type CallPlan struct {
	Name        string
	Context     string
	Module      string
	Type        string
	Member      string
	Args        []cty.Value
	NewInstance bool
}

type planRoot struct {
	Contexts []*planContext `hcl:"context,block"`
	Loads    []*planLoad    `hcl:"load,block"`
	Calls    []*planCall    `hcl:"call,block"`
}

type planContext struct {
	Name            string  `hcl:"name,label"`
	SearchPath      *string `hcl:"search_path,optional"`
	Constraint      *string `hcl:"constraint,optional"`
	DefaultFallback *bool   `hcl:"default_fallback,optional"`
}

type planLoad struct {
	Module  string  `hcl:"module,label"`
	Context *string `hcl:"context,optional"`
	Payload string  `hcl:"payload"`
}

type planCall struct {
	Name        string    `hcl:"name,label"`
	Context     *string   `hcl:"context,optional"`
	Module      string    `hcl:"module"`
	Type        string    `hcl:"type"`
	Member      string    `hcl:"member"`
	Args        cty.Value `hcl:"args,optional"`
	NewInstance *bool     `hcl:"new_instance,optional"`
}

// LoadFile reads and decodes a host plan from disk.
func LoadFile(ctx context.Context, path string) (*Plan, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hostcfg: read %s: %w", path, err)
	}
	return Parse(ctx, src, path)
}

// Parse decodes a host plan from source bytes.
func Parse(ctx context.Context, src []byte, filename string) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("hostcfg: parse %s: %w", filename, diags)
	}
	root := &planRoot{}
	if diags := gohcl.DecodeBody(file.Body, nil, root); diags.HasErrors() {
		return nil, fmt.Errorf("hostcfg: decode %s: %w", filename, diags)
	}

	plan := &Plan{}
	seen := map[string]struct{}{}

	for _, raw := range root.Contexts {
		if _, dup := seen[raw.Name]; dup {
			return nil, fmt.Errorf("hostcfg: %s: duplicate context %q", filename, raw.Name)
		}
		seen[raw.Name] = struct{}{}

		cp := &ContextPlan{Name: raw.Name, DefaultFallback: true}
		if raw.SearchPath != nil {
			cp.SearchPath = *raw.SearchPath
		}
		if raw.Constraint != nil {
			c, err := version.ParseConstraint(*raw.Constraint)
			if err != nil {
				return nil, fmt.Errorf("hostcfg: %s: context %q: %w", filename, raw.Name, err)
			}
			if cp.SearchPath == "" {
				return nil, fmt.Errorf("hostcfg: %s: context %q: constraint requires search_path", filename, raw.Name)
			}
			cp.Constraint = c
		}
		if raw.DefaultFallback != nil {
			cp.DefaultFallback = *raw.DefaultFallback
		}
		plan.Contexts = append(plan.Contexts, cp)
	}

	for _, raw := range root.Loads {
		lp := &LoadPlan{Module: raw.Module, Context: contextOrDefault(raw.Context), Payload: raw.Payload}
		if lp.Payload == "" {
			return nil, fmt.Errorf("hostcfg: %s: load %q: payload is required", filename, raw.Module)
		}
		plan.Loads = append(plan.Loads, lp)
	}

	for _, raw := range root.Calls {
		cp := &CallPlan{
			Name:    raw.Name,
			Context: contextOrDefault(raw.Context),
			Module:  raw.Module,
			Type:    raw.Type,
			Member:  raw.Member,
		}
		if raw.NewInstance != nil {
			cp.NewInstance = *raw.NewInstance
		}
		args, err := callArgs(raw.Args)
		if err != nil {
			return nil, fmt.Errorf("hostcfg: %s: call %q: %w", filename, raw.Name, err)
		}
		cp.Args = args
		plan.Calls = append(plan.Calls, cp)
	}

	logger.Debug("Host plan decoded.", "file", filename,
		"contexts", len(plan.Contexts), "loads", len(plan.Loads), "calls", len(plan.Calls))
	return plan, nil
}

func contextOrDefault(name *string) string {
	if name == nil || *name == "" {
		return "default"
	}
	return *name
}

// callArgs flattens the decoded args value into a slice. The boundary only
// carries primitives, so anything else is rejected here rather than at
// invoke time.
func callArgs(val cty.Value) ([]cty.Value, error) {
	if val == cty.NilVal || val.IsNull() {
		return nil, nil
	}
	if !val.CanIterateElements() {
		return nil, fmt.Errorf("args must be a list")
	}
	var out []cty.Value
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if !elem.IsNull() && !elem.Type().IsPrimitiveType() {
			return nil, fmt.Errorf("argument of type %s is not marshalable", elem.Type().FriendlyName())
		}
		out = append(out, elem)
	}
	return out, nil
}
