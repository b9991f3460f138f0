package app

import (
	"os"
	"testing"

	"github.com/vk/assetpipe/internal/registry"
	"github.com/vk/assetpipe/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing.
func SetupAppTest(t *testing.T, appConfig *Config, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	appConfig.LogLevel = "debug"
	testApp, err := NewApp(logBuffer, appConfig, Loaders(), modules...)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	t.Cleanup(func() {
		if os.Getenv("ASSETPIPE_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
