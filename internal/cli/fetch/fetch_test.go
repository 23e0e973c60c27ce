package fetch_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/nightconcept/modelfetch/internal/cli/fetch"
	"github.com/nightconcept/modelfetch/internal/core/config"
)

// startMockHTTPServer serves body with the given status for every GET request.
func startMockHTTPServer(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Mock server: unexpected method %s", r.Method)
		}
		w.WriteHeader(status)
		_, err := w.Write(body)
		assert.NoError(t, err, "Mock server failed to write response body")
	}))
	t.Cleanup(server.Close)
	return server
}

// runFetchCommand runs the app with fetch as its root action and returns stdout.
func runFetchCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := &cli.App{
		Name:      "modelfetch-test",
		Flags:     fetch.Flags(),
		Action:    fetch.Action,
		Commands:  []*cli.Command{fetch.NewFetchCommand()},
		Writer:    &out,
		ErrWriter: &out,
		ExitErrHandler: func(context *cli.Context, err error) {
			// Do nothing, let test assertions handle errors
		},
	}
	err := app.Run(append([]string{"modelfetch-test"}, args...))
	return out.String(), err
}

func sequentialBytes() []byte {
	body := make([]byte, 256)
	for i := range body {
		body[i] = byte(i)
	}
	return body
}

func TestFetch_Success(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	body := sequentialBytes()
	server := startMockHTTPServer(t, http.StatusOK, body)
	dest := filepath.Join(t.TempDir(), "yolov8n.onnx")

	out, err := runFetchCommand(t, "--url", server.URL, "--output", dest)
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("File downloaded and saved successfully to %s.", dest))

	saved, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, saved)
}

func TestFetch_Subcommand(t *testing.T) {
	body := []byte("subcommand body")
	server := startMockHTTPServer(t, http.StatusOK, body)
	dest := filepath.Join(t.TempDir(), "out.bin")

	out, err := runFetchCommand(t, "fetch", "-u", server.URL, "-o", dest, "--chunk-size", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "saved successfully")

	saved, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, saved)
}

func TestFetch_HTTPForbidden(t *testing.T) {
	server := startMockHTTPServer(t, http.StatusForbidden, []byte("Forbidden"))
	dest := filepath.Join(t.TempDir(), "yolov8n.onnx")

	out, err := runFetchCommand(t, "--url", server.URL, "--output", dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error downloading the file:")
	assert.Contains(t, err.Error(), "403")
	assert.NotContains(t, out, "successfully")

	exitErr, ok := err.(cli.ExitCoder)
	require.True(t, ok, "Failures should be reported through cli.Exit")
	assert.Equal(t, 1, exitErr.ExitCode())

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "No file should be created on HTTP failure")
}

func TestFetch_IOFailure(t *testing.T) {
	server := startMockHTTPServer(t, http.StatusOK, sequentialBytes())
	dest := filepath.Join(t.TempDir(), "missing-dir", "yolov8n.onnx")

	_, err := runFetchCommand(t, "--url", server.URL, "--output", dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("Error writing the file to %s:", dest))
	assert.NotContains(t, err.Error(), "failed to write", "The inner error should not repeat the destination prefix")
	assert.Contains(t, err.Error(), "no such file or directory")

	_, statErr := os.Stat(filepath.Dir(dest))
	assert.True(t, os.IsNotExist(statErr), "The parent directory must not be created")
}

func TestFetch_ConfigFile(t *testing.T) {
	body := []byte("from config file")
	server := startMockHTTPServer(t, http.StatusOK, body)
	dir := t.TempDir()
	dest := filepath.Join(dir, "configured.bin")
	cfgPath := filepath.Join(dir, "custom.toml")
	cfgContent := fmt.Sprintf("url = %q\ndestination = %q\nchunk_size = 2\n", server.URL, dest)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgContent), 0644))

	_, err := runFetchCommand(t, "--config", cfgPath)
	require.NoError(t, err)

	saved, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, saved)
}

func TestFetch_FlagsOverrideConfigFile(t *testing.T) {
	server := startMockHTTPServer(t, http.StatusOK, []byte("flag wins"))
	dir := t.TempDir()
	configured := filepath.Join(dir, "configured.bin")
	overridden := filepath.Join(dir, "overridden.bin")
	cfgPath := filepath.Join(dir, "custom.toml")
	cfgContent := fmt.Sprintf("url = %q\ndestination = %q\n", server.URL, configured)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgContent), 0644))

	_, err := runFetchCommand(t, "--config", cfgPath, "--output", overridden)
	require.NoError(t, err)

	_, statErr := os.Stat(configured)
	assert.True(t, os.IsNotExist(statErr))
	saved, err := os.ReadFile(overridden)
	require.NoError(t, err)
	assert.Equal(t, []byte("flag wins"), saved)
}

func TestFetch_MissingConfigFile(t *testing.T) {
	_, err := runFetchCommand(t, "--config", filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Error: loading config")
}

func TestFetch_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "zero chunk size", args: []string{"--chunk-size", "0"}, wantErr: "chunk_size must be positive"},
		{name: "relative url", args: []string{"--url", "not-a-url"}, wantErr: "scheme must be http or https"},
		{name: "empty output", args: []string{"--output", ""}, wantErr: "destination must not be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runFetchCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "Error: ")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFetch_Verbose(t *testing.T) {
	server := startMockHTTPServer(t, http.StatusOK, []byte("v"))
	dest := filepath.Join(t.TempDir(), "v.bin")

	out, err := runFetchCommand(t, "--url", server.URL, "--output", dest, "--chunk-size", "16", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "Resolved configuration:")
	assert.Contains(t, out, "Source URL: "+server.URL)
	assert.Contains(t, out, "Destination: "+dest)
	assert.Contains(t, out, "Chunk Size: 16")
}

// TestFetch_DiscoversConfigInWorkingDirectory changes the working directory,
// so it must not run in parallel with other tests.
func TestFetch_DiscoversConfigInWorkingDirectory(t *testing.T) {
	body := []byte("discovered")
	server := startMockHTTPServer(t, http.StatusOK, body)
	dir := t.TempDir()
	cfgContent := fmt.Sprintf("url = %q\ndestination = \"found.bin\"\n", server.URL)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(cfgContent), 0644))

	originalWd, err := os.Getwd()
	require.NoError(t, err, "Failed to get current working directory")
	require.NoError(t, os.Chdir(dir))
	defer func() {
		require.NoError(t, os.Chdir(originalWd), "Failed to restore original working directory")
	}()

	_, err = runFetchCommand(t)
	require.NoError(t, err)

	saved, err := os.ReadFile(filepath.Join(dir, "found.bin"))
	require.NoError(t, err)
	assert.Equal(t, body, saved)
}
