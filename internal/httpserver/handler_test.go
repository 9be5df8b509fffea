package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/davidbz/medimentor/internal/config"
	"github.com/davidbz/medimentor/internal/domain"
	"github.com/davidbz/medimentor/internal/httpserver"
	"github.com/davidbz/medimentor/internal/httpserver/middleware"
	"github.com/davidbz/medimentor/internal/mocks"
	"github.com/davidbz/medimentor/internal/observability"
	"github.com/davidbz/medimentor/internal/provider/openai"
)

const testModel = "gpt-4o-mini"

var pngMagic = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testEnv struct {
	registry *mocks.MockProviderRegistry
	provider *mocks.MockProvider
	routes   http.Handler

	mu       sync.Mutex
	requests []*domain.CompletionRequest
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		registry: mocks.NewMockProviderRegistry(t),
		provider: mocks.NewMockProvider(t),
	}

	relay := domain.NewRelayService(env.registry, nil, nil, &domain.RelayConfig{
		Provider: "openai",
		Model:    testModel,
	})
	handler := httpserver.NewHandler(relay,
		&openai.Config{APIKey: "sk-test", OrgID: "org-test"},
		&config.UploadConfig{MaxJSONBytes: 1 << 16, MaxImageBytes: 1 << 16},
	)
	server := httpserver.NewServer(&config.ServerConfig{Port: 5000}, handler, middleware.Chain())
	env.routes = server.Routes()

	return env
}

// expectCompletion wires the registry and provider for n successful calls.
func (e *testEnv) expectCompletion(reply string, n int) {
	e.registry.EXPECT().Get(mock.Anything, "openai").Return(e.provider, nil).Times(n)
	e.provider.EXPECT().Name().Return("openai").Maybe()
	e.provider.EXPECT().
		Complete(mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, req *domain.CompletionRequest) (*domain.CompletionResult, error) {
			e.mu.Lock()
			e.requests = append(e.requests, req)
			e.mu.Unlock()
			return &domain.CompletionResult{
				ID:       "chatcmpl-1",
				Model:    req.Model,
				Provider: "openai",
				Reply:    reply,
				Usage:    domain.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			}, nil
		}).
		Times(n)
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.routes.ServeHTTP(w, req)
	return w
}

func postJSON(route, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, route, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func postImage(t *testing.T, contentType string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="scan"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-file", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) domain.ErrorResponse {
	t.Helper()

	var resp domain.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestHandleRelay_Success(t *testing.T) {
	tests := []struct {
		name          string
		route         string
		body          string
		responseField string
		lastMessage   string
	}{
		{
			name:          "agent mode",
			route:         "/api/agent-mode",
			body:          `{"query":"What causes gout?"}`,
			responseField: "reply",
			lastMessage:   "What causes gout?",
		},
		{
			name:          "case learning",
			route:         "/api/case-learning",
			body:          `{"caseText":"58F with crushing chest pain"}`,
			responseField: "analysis",
			lastMessage:   "58F with crushing chest pain",
		},
		{
			name:          "mcq tutor",
			route:         "/api/mcq-tutor",
			body:          `{"question":"Drug of choice?","options":[{"label":"A","value":"Aspirin"},{"label":"B","value":"Heparin"}],"selected":"A"}`,
			responseField: "result",
			lastMessage:   "Drug of choice?\nOptions:\nA. Aspirin\nB. Heparin\nUser selected: A",
		},
		{
			name:          "case discussion",
			route:         "/api/case-discussion",
			body:          `{"caseText":"45M with dyspnea","userAnswer":"Pulmonary embolism"}`,
			responseField: "reply",
			lastMessage:   "Student's answer: Pulmonary embolism",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.expectCompletion("model answer", 1)

			w := env.do(postJSON(tt.route, tt.body))

			require.Equal(t, http.StatusOK, w.Code)
			require.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			require.Equal(t, map[string]string{tt.responseField: "model answer"}, resp)

			require.Len(t, env.requests, 1)
			req := env.requests[0]
			require.Equal(t, testModel, req.Model)
			require.Contains(t, req.Messages[len(req.Messages)-1].Content, tt.lastMessage)
		})
	}
}

func TestHandleRelay_BlankInputNeverCallsProvider(t *testing.T) {
	tests := []struct {
		route   string
		body    string
		message string
	}{
		{route: "/api/agent-mode", body: `{"query":"   "}`, message: "No query provided."},
		{route: "/api/agent-mode", body: ``, message: "No query provided."},
		{route: "/api/case-learning", body: `{"caseText":""}`, message: "No case provided."},
		{route: "/api/case-learning", body: `{}`, message: "No case provided."},
		{route: "/api/mcq-tutor", body: `{"question":"\n\t"}`, message: "No question provided."},
		{route: "/api/case-discussion", body: `{"userAnswer":"PE"}`, message: "No case provided."},
	}

	for _, tt := range tests {
		t.Run(tt.route+" "+tt.body, func(t *testing.T) {
			// No expectations: any registry or provider call fails the test.
			env := newTestEnv(t)

			w := env.do(postJSON(tt.route, tt.body))

			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			require.Equal(t, domain.KindInvalidInput, resp.Kind)
			require.Equal(t, tt.message, resp.Error)
			require.Nil(t, resp.EnvCheck)
		})
	}
}

func TestHandleRelay_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(postJSON("/api/agent-mode", `{"query":`))

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	require.Equal(t, domain.KindInvalidInput, resp.Kind)
	require.Equal(t, "invalid request body", resp.Error)
}

func TestHandleRelay_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t)

	body := `{"query":"` + strings.Repeat("a", 1<<17) + `"}`
	w := env.do(postJSON("/api/agent-mode", body))

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "request body too large", decodeError(t, w).Error)
}

func TestHandleRelay_MethodNotAllowed(t *testing.T) {
	routes := []string{
		"/api/agent-mode",
		"/api/case-learning",
		"/api/mcq-tutor",
		"/api/case-discussion",
		"/api/analyze-file",
	}

	for _, route := range routes {
		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
			t.Run(method+" "+route, func(t *testing.T) {
				env := newTestEnv(t)

				w := env.do(httptest.NewRequest(method, route, nil))

				require.Equal(t, http.StatusMethodNotAllowed, w.Code)
				require.Equal(t, http.MethodPost, w.Header().Get("Allow"))
				resp := decodeError(t, w)
				require.Equal(t, domain.KindMethodNotAllowed, resp.Kind)
				require.Equal(t, "Method not allowed", resp.Error)
			})
		}
	}
}

func TestHandleRelay_ImageUpload(t *testing.T) {
	t.Run("should inline png as data uri", func(t *testing.T) {
		env := newTestEnv(t)
		env.expectCompletion("No acute findings.", 1)

		w := env.do(postImage(t, "image/png", pngMagic))

		require.Equal(t, http.StatusOK, w.Code)
		var resp map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Equal(t, "No acute findings.", resp["analysis"])

		require.Len(t, env.requests, 1)
		user := env.requests[0].Messages[1]
		require.True(t, user.IsMultimodal())
		require.True(t, strings.HasPrefix(user.Parts[1].ImageURL, "data:image/png;base64,"))
	})

	t.Run("should sniff type when part has none", func(t *testing.T) {
		env := newTestEnv(t)
		env.expectCompletion("ok", 1)

		w := env.do(postImage(t, "", pngMagic))

		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, strings.HasPrefix(env.requests[0].Messages[1].Parts[1].ImageURL, "data:image/png;base64,"))
	})

	t.Run("should reject gif before any network call", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(postImage(t, "image/gif", []byte("GIF89a")))

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, domain.KindUnsupportedMedia, decodeError(t, w).Kind)
	})

	t.Run("should reject missing file", func(t *testing.T) {
		env := newTestEnv(t)

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		require.NoError(t, writer.WriteField("note", "no file"))
		require.NoError(t, writer.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/analyze-file", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		w := env.do(req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		require.Equal(t, domain.KindInvalidInput, resp.Kind)
		require.Equal(t, "No file uploaded.", resp.Error)
	})

	t.Run("should reject non multipart body", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(postJSON("/api/analyze-file", `{"file":"x"}`))

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, "Upload error", decodeError(t, w).Error)
	})

	t.Run("should reject empty file", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(postImage(t, "image/jpeg", nil))

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Equal(t, domain.KindInvalidInput, decodeError(t, w).Kind)
	})
}

func TestHandleRelay_UpstreamFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	observability.SetLogger(zap.New(core))
	t.Cleanup(func() { observability.SetLogger(nil) })

	env := newTestEnv(t)
	env.registry.EXPECT().Get(mock.Anything, "openai").Return(env.provider, nil).Once()
	env.provider.EXPECT().Name().Return("openai").Maybe()
	env.provider.EXPECT().
		Complete(mock.Anything, mock.Anything).
		Return(nil, domain.UpstreamFailure(
			errors.New("401 Unauthorized"),
			&domain.Diagnostic{
				StatusCode: http.StatusUnauthorized,
				Type:       "invalid_request_error",
				Code:       "invalid_api_key",
				Raw:        `{"error":{"code":"invalid_api_key","message":"Incorrect API key provided: sk-***"}}`,
			},
			"Incorrect API key provided",
		)).
		Once()

	w := env.do(postJSON("/api/case-learning", `{"caseText":"fever and rash"}`))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	require.Equal(t, domain.KindUpstreamFailure, resp.Kind)
	require.Equal(t, "Incorrect API key provided", resp.Error)
	require.NotNil(t, resp.Details)
	require.Equal(t, http.StatusUnauthorized, resp.Details.StatusCode)
	require.Equal(t, "invalid_api_key", resp.Details.Code)
	require.Empty(t, resp.Details.Raw)
	require.Equal(t, &domain.EnvCheck{APIKeySet: true, OrganizationSet: true, ProjectSet: false}, resp.EnvCheck)
	require.NotContains(t, w.Body.String(), "sk-***")

	entries := logs.FilterMessage("relay request failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, string(domain.StageFailed), fields["stage"])
	require.Equal(t, "case-learning", fields["feature"])
	require.Contains(t, fields["raw_diagnostic"], "invalid_api_key")
}

func TestHandleRelay_ProviderNotConfigured(t *testing.T) {
	env := newTestEnv(t)
	env.registry.EXPECT().Get(mock.Anything, "openai").Return(nil, errors.New("provider not found")).Once()

	w := env.do(postJSON("/api/agent-mode", `{"query":"hello"}`))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	require.Equal(t, domain.KindConfigurationMissing, resp.Kind)
	require.NotNil(t, resp.EnvCheck)
}

func TestHandleRelay_IdenticalRequestsReachProviderEachTime(t *testing.T) {
	env := newTestEnv(t)
	env.expectCompletion("answer", 2)

	for range 2 {
		w := env.do(postJSON("/api/agent-mode", `{"query":"same question"}`))
		require.Equal(t, http.StatusOK, w.Code)
	}

	require.Len(t, env.requests, 2)
}

func TestHandleRelay_Timeout(t *testing.T) {
	env := newTestEnv(t)
	env.registry.EXPECT().Get(mock.Anything, "openai").Return(env.provider, nil).Once()
	env.provider.EXPECT().Name().Return("openai").Maybe()
	env.provider.EXPECT().
		Complete(mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, _ *domain.CompletionRequest) (*domain.CompletionResult, error) {
			<-ctx.Done()
			return nil, domain.UpstreamFailure(ctx.Err(), nil, "completion provider timed out")
		}).
		Once()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	w := env.do(postJSON("/api/agent-mode", `{"query":"slow"}`).WithContext(ctx))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	require.Equal(t, domain.KindUpstreamFailure, resp.Kind)
	require.Equal(t, "completion provider timed out", resp.Error)
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestFeatures(t *testing.T) {
	features := httpserver.Features(&config.UploadConfig{MaxJSONBytes: 1024, MaxImageBytes: 4096})

	fields := make(map[string]string, len(features))
	for _, f := range features {
		require.NotNil(t, f.Decode, f.Name)
		require.Positive(t, f.MaxBodyBytes, f.Name)
		fields[f.Route] = f.ResponseField
	}

	require.Equal(t, map[string]string{
		"/api/agent-mode":      "reply",
		"/api/case-learning":   "analysis",
		"/api/mcq-tutor":       "result",
		"/api/case-discussion": "reply",
		"/api/analyze-file":    "analysis",
	}, fields)
}
