// Package testutil runs pipelines end to end for tests that exercise the
// loader, the builder, the executor and the modules together.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/app"
	"github.com/vk/slotflow/internal/config"
	"github.com/vk/slotflow/internal/executor"
	"github.com/vk/slotflow/internal/hcl"
	"github.com/vk/slotflow/internal/registry"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	// LogOutput holds the logs and everything print nodes wrote.
	LogOutput string
	// Result is nil when the run never started.
	Result *executor.Result
	Err    error
	App    *app.App
}

// Settings returns the settings the harness uses by default.
func Settings() config.Settings {
	s := app.TestSettings()
	s.LogFormat = "text"
	return s
}

// RunPipeline writes files into a temporary directory, loads it as one
// pipeline and runs it once. With no modules the core modules are
// registered.
func RunPipeline(t *testing.T, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunPipelineWithSettings(context.Background(), t, Settings(), files, modules...)
}

// RunPipelineWithSettings is RunPipeline with a caller-provided context and
// settings.
func RunPipelineWithSettings(ctx context.Context, t *testing.T, settings config.Settings, files map[string]string, modules ...registry.Module) *HarnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	logBuffer := &app.SafeBuffer{}
	res := &HarnessResult{}
	defer func() {
		res.LogOutput = logBuffer.String()
		if os.Getenv("SLOTFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), res.LogOutput)
		}
	}()

	cfg := &app.Config{PipelinePaths: []string{dir}, Settings: settings}
	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Err = fmt.Errorf("application startup panicked | %v", r)
			}
		}()
		res.App, res.Err = app.NewApp(ctx, logBuffer, cfg, hcl.NewLoader(), modules...)
	}()
	if res.Err != nil {
		return res
	}
	t.Cleanup(func() { res.App.Close() })

	res.Result, res.Err = res.App.Run(ctx)
	return res
}

// Rerun runs the app of a previous result again, sharing its cache.
func Rerun(ctx context.Context, t *testing.T, prev *HarnessResult) *HarnessResult {
	t.Helper()
	require.NotNil(t, prev.App, "previous run has no app")
	res := &HarnessResult{App: prev.App}
	res.Result, res.Err = prev.App.Run(ctx)
	return res
}
