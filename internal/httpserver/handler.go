package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/davidbz/medimentor/internal/config"
	"github.com/davidbz/medimentor/internal/domain"
	"github.com/davidbz/medimentor/internal/observability"
	"github.com/davidbz/medimentor/internal/provider/openai"
)

// Handler handles HTTP requests.
type Handler struct {
	relay    *domain.RelayService
	envCheck domain.EnvCheck
	features []Feature
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(relay *domain.RelayService, openaiConfig *openai.Config, uploads *config.UploadConfig) *Handler {
	return &Handler{
		relay:    relay,
		envCheck: openaiConfig.EnvCheck(),
		features: Features(uploads),
	}
}

// Features returns the relay routes this handler serves.
func (h *Handler) Features() []Feature {
	return h.features
}

// HandleRelay returns the handler for one feature: decode and validate the
// input, relay it with a single completion call, and answer with the
// feature's response field.
func (h *Handler) HandleRelay(feature Feature) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ctx := observability.WithFeature(r.Context(), feature.Name)

		logger := observability.FromContext(ctx)
		logger.Debug("relay request received", stageField(domain.StageReceived))

		// Early validation.
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			h.writeError(ctx, w, domain.NewError(domain.KindMethodNotAllowed, "Method not allowed"))
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, feature.MaxBodyBytes)

		input, err := feature.Decode(r)
		if err != nil {
			h.writeError(ctx, w, err)
			return
		}
		logger.Debug("relay request decoded", stageField(domain.StageValidated))

		result, err := h.relay.Relay(ctx, input)
		if err != nil {
			h.writeError(ctx, w, err)
			return
		}
		logger.Debug("relay completion received", stageField(domain.StageResponding))

		writeJSON(ctx, w, http.StatusOK, map[string]string{
			feature.ResponseField: result.Reply,
		})

		logger.Info("relay request completed",
			stageField(domain.StageDone),
			observability.String("model", result.Model),
			observability.Int("tokens", result.Usage.TotalTokens),
			observability.Float64("cost", result.Usage.Cost),
			observability.Duration("duration", time.Since(started)),
		)
	}
}

// writeError maps err to its status and envelope. Server-side failures
// carry the credential presence check and are logged with the raw
// provider diagnostic.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	domainErr := domain.AsError(err)
	status := domainErr.Kind.HTTPStatus()
	stage := domain.FailureStage(domainErr.Kind)

	resp := domain.NewErrorResponse(domainErr)

	logger := observability.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		envCheck := h.envCheck
		resp.EnvCheck = &envCheck

		raw := ""
		if domainErr.Diagnostic != nil {
			raw = domainErr.Diagnostic.Raw
		}

		logger.Error("relay request failed",
			stageField(stage),
			observability.String("kind", string(domainErr.Kind)),
			observability.Int("status", status),
			observability.Error(err),
			observability.String("raw_diagnostic", raw),
			observability.Any("env_check", envCheck),
		)
	} else {
		logger.Warn("relay request rejected",
			stageField(stage),
			observability.String("kind", string(domainErr.Kind)),
			observability.Int("status", status),
			observability.String("reason", domainErr.Message),
		)
	}

	writeJSON(ctx, w, status, resp)
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Already written status, can't change it, just log.
		observability.FromContext(ctx).Error("failed to encode response", observability.Error(err))
	}
}

func stageField(stage domain.Stage) observability.Field {
	return observability.String("stage", string(stage))
}
