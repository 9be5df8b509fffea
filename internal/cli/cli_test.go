package cli_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/medimentor/internal/cli"
	"github.com/davidbz/medimentor/internal/client"
)

type recordedRequest struct {
	Path        string
	ContentType string
	Body        string
}

// fakeAPI answers every route with a fixed field or an error envelope.
type fakeAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeAPI(t *testing.T, status int, body string) *fakeAPI {
	t.Helper()

	f := &fakeAPI{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)

		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        string(raw),
		})
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fakeAPI) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func decodeBody(t *testing.T, raw string) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	return body
}

func TestAgentCommand(t *testing.T) {
	t.Run("should print raw reply", func(t *testing.T) {
		api := newFakeAPI(t, http.StatusOK, `{"reply":"Gout is caused by urate crystals."}`)

		stdout, _, err := run(t, "", "--api-url", api.server.URL, "--raw", "agent", "What", "causes", "gout?")

		require.NoError(t, err)
		require.Equal(t, "Gout is caused by urate crystals.\n", stdout)

		requests := api.recorded()
		require.Len(t, requests, 1)
		require.Equal(t, "/api/agent-mode", requests[0].Path)
		require.Equal(t, "What causes gout?", decodeBody(t, requests[0].Body)["query"])
	})

	t.Run("should read question from stdin", func(t *testing.T) {
		api := newFakeAPI(t, http.StatusOK, `{"reply":"ok"}`)

		_, _, err := run(t, "Explain preload\n", "--api-url", api.server.URL, "--raw", "agent")

		require.NoError(t, err)
		require.Equal(t, "Explain preload", decodeBody(t, api.recorded()[0].Body)["query"])
	})

	t.Run("should render markdown", func(t *testing.T) {
		api := newFakeAPI(t, http.StatusOK, `{"reply":"# Diagnosis\n\n**Gout**"}`)

		stdout, _, err := run(t, "", "--api-url", api.server.URL, "--style", "dark", "agent", "q")

		require.NoError(t, err)
		require.Contains(t, stdout, "Diagnosis")
		require.Contains(t, stdout, "Gout")
		require.NotContains(t, stdout, "**Gout**")
	})
}

func TestFallbackOnFailure(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		api := newFakeAPI(t, http.StatusInternalServerError,
			`{"error":"Incorrect API key provided","kind":"UpstreamFailure","envCheck":{"apiKeySet":true,"organizationSet":false,"projectSet":false}}`)

		stdout, stderr, err := run(t, "", "--api-url", api.server.URL, "--raw", "case", "fever")

		require.ErrorIs(t, err, cli.ErrRequestFailed)
		require.Equal(t, client.FallbackText+"\n", stdout)
		require.Empty(t, stderr)
	})

	t.Run("verbose prints details", func(t *testing.T) {
		api := newFakeAPI(t, http.StatusBadRequest, `{"error":"No query provided.","kind":"InvalidInput"}`)

		stdout, stderr, err := run(t, "", "--api-url", api.server.URL, "--raw", "-v", "agent", " ")

		require.Error(t, err)
		require.Equal(t, client.FallbackText+"\n", stdout)
		require.Contains(t, stderr, "InvalidInput")
		require.Contains(t, stderr, "No query provided.")
	})

	t.Run("unreachable server", func(t *testing.T) {
		stdout, _, err := run(t, "", "--api-url", "http://127.0.0.1:1", "--timeout", "1", "--raw", "agent", "hi")

		require.ErrorIs(t, err, cli.ErrRequestFailed)
		require.Equal(t, client.FallbackText+"\n", stdout)
	})
}

func TestCaseCommand_FromFile(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"analysis":"- Most Likely Diagnosis: STEMI"}`)

	path := filepath.Join(t.TempDir(), "case.txt")
	require.NoError(t, os.WriteFile(path, []byte("58F with chest pain"), 0o600))

	stdout, _, err := run(t, "", "--api-url", api.server.URL, "--raw", "case", "--file", path)

	require.NoError(t, err)
	require.Equal(t, "- Most Likely Diagnosis: STEMI\n", stdout)
	require.Equal(t, "/api/case-learning", api.recorded()[0].Path)
	require.Equal(t, "58F with chest pain", decodeBody(t, api.recorded()[0].Body)["caseText"])
}

func TestMCQCommand(t *testing.T) {
	t.Run("should send options and selection", func(t *testing.T) {
		api := newFakeAPI(t, http.StatusOK, `{"result":"B is incorrect."}`)

		stdout, _, err := run(t, "", "--api-url", api.server.URL, "--raw",
			"mcq", "Anaphylaxis first line?", "-o", "A=Adrenaline", "-o", "B = Hydrocortisone", "--selected", "B")

		require.NoError(t, err)
		require.Equal(t, "B is incorrect.\n", stdout)

		body := decodeBody(t, api.recorded()[0].Body)
		require.Equal(t, "Anaphylaxis first line?", body["question"])
		require.Equal(t, "B", body["selected"])
		require.Equal(t, []any{
			map[string]any{"label": "A", "value": "Adrenaline"},
			map[string]any{"label": "B", "value": "Hydrocortisone"},
		}, body["options"])
	})

	t.Run("should reject malformed option", func(t *testing.T) {
		api := newFakeAPI(t, http.StatusOK, `{"result":"x"}`)

		_, _, err := run(t, "", "--api-url", api.server.URL, "mcq", "Q?", "-o", "Adrenaline")

		require.Error(t, err)
		require.Contains(t, err.Error(), "expected LABEL=TEXT")
		require.Empty(t, api.recorded())
	})
}

func TestDiscussCommand(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"reply":"What would you do next?"}`)

	stdout, _, err := run(t, "Pulmonary embolism\n\nCTPA\nexit\nignored\n",
		"--api-url", api.server.URL, "--raw", "discuss", "45M", "with", "dyspnea")

	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(stdout, "What would you do next?"))

	requests := api.recorded()
	require.Len(t, requests, 3)
	require.Equal(t, map[string]any{"caseText": "45M with dyspnea"}, decodeBody(t, requests[0].Body))
	require.Equal(t, map[string]any{"caseText": "45M with dyspnea", "userAnswer": "Pulmonary embolism"}, decodeBody(t, requests[1].Body))
	require.Equal(t, map[string]any{"caseText": "45M with dyspnea", "userAnswer": "CTPA"}, decodeBody(t, requests[2].Body))
}

func TestImageCommand(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"analysis":"No acute cardiopulmonary findings."}`)

	path := filepath.Join(t.TempDir(), "chest.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o600))

	stdout, _, err := run(t, "", "--api-url", api.server.URL, "--raw", "image", path)

	require.NoError(t, err)
	require.Equal(t, "No acute cardiopulmonary findings.\n", stdout)

	requests := api.recorded()
	require.Equal(t, "/api/analyze-file", requests[0].Path)
	require.True(t, strings.HasPrefix(requests[0].ContentType, "multipart/form-data"))
	require.Contains(t, requests[0].Body, "Content-Type: image/png")
	require.Contains(t, requests[0].Body, `filename="chest.png"`)
}
