package hostplan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/modcell/internal/loader"
)

const tallyPayload = `
module "Tally" {
  version = "2.1.0"
}

type "Tally.Counter" {
  method "Bump" {
    result = number
  }

  static "count" {
    type    = number
    default = 0
  }

  static "label" {
    type = string
  }
}
`

func TestHostPlan_CallsBuiltinInDefaultContext(t *testing.T) {
	files := map[string]string{
		"host.hcl": `
			call "first" {
				module       = "Tally"
				type         = "Tally.Counter"
				member       = "Bump"
			}

			call "second" {
				module       = "Tally"
				type         = "Tally.Counter"
				member       = "Bump"
			}
		`,
	}

	result := RunHostTest(t, files)

	require.NoError(t, result.Err)
	assert.Contains(t, result.Output, "first = 1")
	assert.Contains(t, result.Output, "second = 2")
}

func TestHostPlan_InstanceMethodWithArgs(t *testing.T) {
	files := map[string]string{
		"host.hcl": `
			call "describe" {
				module       = "Widgets"
				type         = "Widgets.Widget"
				member       = "Describe"
				args         = ["blue"]
				new_instance = true
			}
		`,
	}

	result := RunHostTest(t, files)

	require.NoError(t, result.Err)
	assert.Contains(t, result.Output, "describe = a blue widget")
}

// Loading the same payload into two plan-declared contexts gives each its own
// static state; the default context's copy is untouched by either.
func TestHostPlan_StaticsAreScopedPerContext(t *testing.T) {
	files := map[string]string{
		"payloads/tally.hcl": tallyPayload,
		"host.hcl": `
			context "left" {}
			context "right" {}

			load "Tally" {
				context = "left"
				payload = "payloads/tally.hcl"
			}

			load "Tally" {
				context = "right"
				payload = "payloads/tally.hcl"
			}

			call "left_bump" {
				context = "left"
				module  = "Tally"
				type    = "Tally.Counter"
				member  = "Bump"
			}

			call "right_bump" {
				context = "right"
				module  = "Tally"
				type    = "Tally.Counter"
				member  = "Bump"
			}

			call "default_bump" {
				module = "Tally"
				type   = "Tally.Counter"
				member = "Bump"
			}
		`,
	}

	result := RunHostTest(t, files)

	require.NoError(t, result.Err)
	assert.Contains(t, result.Output, "left_bump = 1")
	assert.Contains(t, result.Output, "right_bump = 1")
	assert.Contains(t, result.Output, "default_bump = 1")
}

func TestHostPlan_VersionConflictInDefaultContext(t *testing.T) {
	files := map[string]string{
		"payloads/widgets2.hcl": `
			module "Widgets" {
				version = "2.0.0.0"
			}

			type "Widgets.Widget" {
				method "Describe" {
					params = [string]
					result = string
				}
			}
		`,
		"host.hcl": `
			load "Widgets" {
				payload = "payloads/widgets2.hcl"
			}
		`,
	}

	result := RunHostTest(t, files)

	var conflict *loader.ConflictError
	require.ErrorAs(t, result.Err, &conflict)
	assert.Equal(t, "Widgets", conflict.Name)
	assert.Equal(t, "2.0.0.0", conflict.Requested.String())
}

// The conflicting version still loads if the plan routes it to its own
// context instead of default.
func TestHostPlan_ConflictingVersionLoadsInOwnContext(t *testing.T) {
	files := map[string]string{
		"payloads/widgets2.hcl": `
			module "Widgets" {
				version = "2.0.0.0"
			}

			type "Widgets.Widget" {
				method "Describe" {
					params = [string]
					result = string
				}

				static "described" {
					type    = number
					default = 0
				}
			}
		`,
		"host.hcl": `
			context "sandbox" {}

			load "Widgets" {
				context = "sandbox"
				payload = "payloads/widgets2.hcl"
			}

			call "describe" {
				context      = "sandbox"
				module       = "Widgets"
				type         = "Widgets.Widget"
				member       = "Describe"
				args         = ["red"]
				new_instance = true
			}
		`,
	}

	result := RunHostTest(t, files)

	require.NoError(t, result.Err)
	assert.Contains(t, result.Output, "describe = a red widget")

	sandbox, ok := result.App.Registry().Context("sandbox")
	require.True(t, ok)
	d, ok := sandbox.Loaded("Widgets")
	require.True(t, ok)
	assert.Equal(t, "2.0.0.0", d.Identity().Version.String())
}

func TestHostPlan_SearchPathResolvesHighestSatisfying(t *testing.T) {
	files := map[string]string{
		"payloads/tally_2_1_0.hcl": tallyPayload,
		"payloads/tally_3_0_0.hcl": strings.Replace(tallyPayload, `"2.1.0"`, `"3.0.0"`, 1),
		"host.hcl": `
			context "plugins" {
				search_path      = "payloads"
				default_fallback = false
			}

			call "bump" {
				context = "plugins"
				module  = "Tally"
				type    = "Tally.Counter"
				member  = "Bump"
			}
		`,
	}

	result := RunHostTest(t, files)

	require.NoError(t, result.Err)
	assert.Contains(t, result.Output, "bump = 1")

	plugins, ok := result.App.Registry().Context("plugins")
	require.True(t, ok)
	d, ok := plugins.Loaded("Tally")
	require.True(t, ok)
	assert.Equal(t, "3.0.0", d.Identity().Version.String())
}

func TestHostPlan_SearchPathConstraintPinsVersion(t *testing.T) {
	files := map[string]string{
		"payloads/tally_2_1_0.hcl": tallyPayload,
		"payloads/tally_3_0_0.hcl": strings.Replace(tallyPayload, `"2.1.0"`, `"3.0.0"`, 1),
		"host.hcl": `
			context "pinned" {
				search_path      = "payloads"
				constraint       = "^2.0"
				default_fallback = false
			}

			call "bump" {
				context = "pinned"
				module  = "Tally"
				type    = "Tally.Counter"
				member  = "Bump"
			}
		`,
	}

	result := RunHostTest(t, files)

	require.NoError(t, result.Err)

	pinned, ok := result.App.Registry().Context("pinned")
	require.True(t, ok)
	d, ok := pinned.Loaded("Tally")
	require.True(t, ok)
	assert.Equal(t, "2.1.0", d.Identity().Version.String())
}

func TestHostPlan_UnknownContextFailsTheLoad(t *testing.T) {
	files := map[string]string{
		"payloads/tally.hcl": tallyPayload,
		"host.hcl": `
			load "Tally" {
				context = "missing"
				payload = "payloads/tally.hcl"
			}
		`,
	}

	result := RunHostTest(t, files)

	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), `unknown context "missing"`)
}

func TestHostPlan_UnresolvableModuleFailsTheCall(t *testing.T) {
	files := map[string]string{
		"host.hcl": `
			context "sealed" {
				default_fallback = false
			}

			call "bump" {
				context = "sealed"
				module  = "Tally"
				type    = "Tally.Counter"
				member  = "Bump"
			}
		`,
	}

	result := RunHostTest(t, files)

	var unresolved *loader.UnresolvedError
	require.ErrorAs(t, result.Err, &unresolved)
	assert.Equal(t, "Tally", unresolved.Name)
}

func TestHostPlan_MissingPlanFile(t *testing.T) {
	result := RunHostTest(t, map[string]string{})

	require.Error(t, result.Err)
}
