package hostplan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/modcell/internal/app"
	"github.com/vk/modcell/internal/testutil"
)

// HarnessResult holds the outcomes of a host plan run.
type HarnessResult struct {
	Output string
	Err    error
	App    *app.App
}

// RunHostTest writes the given files into a temporary directory, then builds
// an App pointed at "host.hcl" within it and executes the plan. The files map
// must contain a "host.hcl" entry; payload files referenced by the plan use
// paths relative to it.
func RunHostTest(t *testing.T, files map[string]string, builtins ...app.Builtin) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	appConfig := &app.Config{
		HostPath:  filepath.Join(tmpDir, "host.hcl"),
		LogLevel:  "debug",
		LogFormat: "text",
	}

	outBuffer := &testutil.SafeBuffer{}

	var testApp *app.App
	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		testApp = app.NewApp(context.Background(), outBuffer, appConfig, builtins...)
	}()

	if panicErr != nil {
		return &HarnessResult{
			Output: outBuffer.String(),
			Err:    fmt.Errorf("host startup panicked | %v", panicErr),
		}
	}

	runErr := testApp.ExecutePlan()

	if os.Getenv("MODCELL_TEST_LOGS") == "true" {
		t.Logf("--- Full Output for %s ---\n%s", t.Name(), outBuffer.String())
	}

	return &HarnessResult{
		Output: outBuffer.String(),
		Err:    runErr,
		App:    testApp,
	}
}
