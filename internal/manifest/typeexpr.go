package manifest

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// primitiveTypeExpr converts a bare type keyword (string, number, bool) into
// its cty.Type. Collection constructors are rejected: values declared here
// must be able to cross the invocation boundary, which carries primitives only.
func primitiveTypeExpr(expr hcl.Expression) (cty.Type, error) {
	traversal, ok := expr.(*hclsyntax.ScopeTraversalExpr)
	if !ok {
		return cty.NilType, fmt.Errorf("unsupported expression for member type: %T", expr)
	}
	if len(traversal.Traversal) != 1 {
		return cty.NilType, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
	}

	switch name := traversal.Traversal.RootName(); name {
	case "string":
		return cty.String, nil
	case "number":
		return cty.Number, nil
	case "bool":
		return cty.Bool, nil
	default:
		return cty.NilType, fmt.Errorf("unknown member type %q (only string, number and bool cross the boundary)", name)
	}
}
