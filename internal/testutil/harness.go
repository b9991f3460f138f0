// Package testutil holds shared helpers for package and system tests.
package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/ctxlog"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Context returns a context carrying a debug logger that writes into the
// returned buffer. Set ASSETPIPE_TEST_LOGS=true to dump it after the test.
func Context(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()

	logBuffer := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logBuffer, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx, cancel := context.WithCancel(ctxlog.WithLogger(context.Background(), logger))

	t.Cleanup(func() {
		cancel()
		if os.Getenv("ASSETPIPE_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})
	return ctx, logBuffer
}

// WriteFiles creates each file below root. Keys are slash separated paths
// relative to root.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		filePath := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}
}

// ReadFile returns the content of a slash separated path below root.
func ReadFile(t *testing.T, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

// Project lays out files in a fresh temporary project root and returns the
// default configuration for it.
func Project(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	WriteFiles(t, root, files)

	cfg := config.Defaults("", "")
	cfg.Root = root
	cfg.Server.Open = false
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "cache")
	cfg.Normalize()
	require.NoError(t, cfg.Validate())
	return cfg
}
