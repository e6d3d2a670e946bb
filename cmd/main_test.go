// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/puppetcore/internal/config"
	"github.com/xkilldash9x/puppetcore/internal/observability"
)

// resetForTest silences the global logger and shortens the engine delays.
func resetForTest(t *testing.T) {
	t.Helper()
	observability.ResetForTest()
	observability.InitializeLogger(config.LoggerConfig{Level: "fatal", Format: "console", ServiceName: "test"})
	t.Cleanup(observability.ResetForTest)

	t.Setenv("PUPPET_ENGINE_SETTLE_DELAY", "10ms")
	t.Setenv("PUPPET_ENGINE_POLL_INTERVAL", "10ms")
	t.Setenv("CHROME_PATH", "")
	t.Setenv("PUPPET_CHROME_PATH", "")

	// Keep config discovery away from any config.yaml in the working directory.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// executeCommand runs a fresh command tree and returns its combined output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// writeHTML stores a fixture document and returns its path.
func writeHTML(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}
