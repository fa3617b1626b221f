package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordNotifier_Notify(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &payload))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := NewDiscordNotifier(server.URL)
	require.NoError(t, notifier.Notify(context.Background(), "Branch: main"))
	assert.Equal(t, "Branch: main", payload["content"])
	assert.NotContains(t, payload, "attachments")
}

func TestDiscordNotifier_Upload(t *testing.T) {
	dir := t.TempDir()
	chart := filepath.Join(dir, "graph.html")
	archive := filepath.Join(dir, "results.tar.gz")
	require.NoError(t, os.WriteFile(chart, []byte("<html></html>"), 0644))
	require.NoError(t, os.WriteFile(archive, []byte("tarball"), 0644))

	var (
		payload discordPayload
		files   = map[string]string{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("payload_json")), &payload))

		for field, headers := range r.MultipartForm.File {
			f, err := headers[0].Open()
			require.NoError(t, err)
			content, _ := io.ReadAll(f)
			f.Close()
			files[field+":"+headers[0].Filename] = string(content)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewDiscordNotifier(server.URL)
	require.NoError(t, notifier.Upload(context.Background(), "Results:", chart, archive))

	assert.Equal(t, "Results:", payload.Content)
	require.Len(t, payload.Attachments, 2)
	assert.Equal(t, "results.tar.gz", payload.Attachments[1].Filename)
	assert.Equal(t, "<html></html>", files["files[0]:graph.html"])
	assert.Equal(t, "tarball", files["files[1]:results.tar.gz"])
}

func TestDiscordNotifier_Upload_MissingFile(t *testing.T) {
	notifier := NewDiscordNotifier("http://127.0.0.1:1")
	err := notifier.Upload(context.Background(), "x", filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open attachment")
}

func TestDiscordNotifier_Notify_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := NewDiscordNotifier(server.URL).Notify(context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status: 500")
}

func TestDiscordNotifier_NotConfigured(t *testing.T) {
	err := NewDiscordNotifier("").Notify(context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
