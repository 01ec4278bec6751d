package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/slotflow/internal/config"
	"github.com/vk/slotflow/internal/hcl"
	"github.com/vk/slotflow/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// TestSettings returns default settings with debug logging and no health
// check server.
func TestSettings() config.Settings {
	s := config.Defaults()
	s.LogLevel = "debug"
	s.HealthcheckPort = 0
	return s
}

// SetupAppTest writes src to a pipeline file in a temporary directory and
// creates an app for it. With no modules the core modules are registered.
func SetupAppTest(t *testing.T, src string, settings config.Settings, modules ...registry.Module) (*App, *SafeBuffer, error) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pipeline.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	logBuffer := &SafeBuffer{}
	cfg := &Config{PipelinePaths: []string{path}, Settings: settings}
	testApp, err := NewApp(context.Background(), logBuffer, cfg, hcl.NewLoader(), modules...)

	t.Cleanup(func() {
		if testApp != nil {
			testApp.Close()
		}
		if os.Getenv("SLOTFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer, err
}
