package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatd/internal/generate"
	"chatd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() []types.Model
	Status() types.StatusResponse
	Ready() bool
	Stream(ctx context.Context, req types.ChatRequest) (generate.Stream, error)
	Complete(ctx context.Context, req types.ChatRequest) (types.ChatResponse, error)
	Cancel(sessionID string) int
	History(ctx context.Context) ([]types.HistorySession, error)
	ExportHistory(ctx context.Context, w io.Writer) error
}

type api struct {
	svc Service
}

func NewMux(svc Service) http.Handler {
	a := &api{svc: svc}
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	// JSON endpoints are compressed; streams are not, so every chunk reaches
	// the client as soon as it is flushed.
	r.Group(func(r chi.Router) {
		r.Use(MetricsMiddleware)
		r.Use(middleware.Compress(5))
		r.Get("/models", a.models)
		r.Get("/status", a.status)
		r.Post("/chat", a.chat)
		r.Post("/chat/cancel", a.cancel)
		r.Get("/history", a.history)
	})
	r.Group(func(r chi.Router) {
		r.Use(MetricsMiddleware)
		r.Get("/chat/stream", a.chatStream)
		r.Get("/chat/ws", a.chatWS)
		r.Get("/history/export", a.historyExport)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// decodeJSON enforces the content type and body limit and decodes into v.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Oversized bodies surface here too; report them as 400 without details.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// models godoc
// @Summary      List models
// @Description  Returns the model bundles found in the models directory.
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Router       /models [get]
func (a *api) models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, types.ModelsResponse{Models: a.svc.ListModels()})
}

// status godoc
// @Summary      Server status
// @Tags         status
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /status [get]
func (a *api) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.svc.Status())
}

// chat godoc
// @Summary      Generate a full reply
// @Description  Runs one turn to completion and returns the whole text.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      types.ChatRequest  true  "Chat request"
// @Success      200      {object}  types.ChatResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Failure      429      {object}  types.ErrorResponse
// @Failure      503      {object}  types.ErrorResponse
// @Failure      500      {object}  types.ErrorResponse
// @Router       /chat [post]
func (a *api) chat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rl := newReqLog(r, "/chat")
	start := time.Now()
	rl.event(LevelInfo).Str("session_id", req.SessionID).Int("max_tokens", req.MaxTokens).Msg("chat start")

	ctx, cancel := requestContext(r)
	defer cancel()
	if chatTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, chatTimeout)
		defer tcancel()
	}
	resp, err := a.svc.Complete(ctx, req)
	if err != nil {
		// Client is gone: nobody reads the response.
		if r.Context().Err() != nil {
			rl.event(LevelInfo).Str("session_id", req.SessionID).Dur("dur", time.Since(start)).Msg("chat client gone")
			return
		}
		if ctx.Err() != nil {
			writeJSONError(w, http.StatusGatewayTimeout, "chat timed out")
			return
		}
		status := writeServiceError(w, err)
		rl.event(LevelError).Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("chat end")
		return
	}
	writeJSON(w, resp)
	rl.event(LevelInfo).
		Str("session_id", req.SessionID).
		Str("stop_reason", resp.StopReason).
		Int("tokens", resp.Tokens).
		Dur("dur", time.Since(start)).
		Msg("chat end")
}

// cancel godoc
// @Summary      Cancel a session's runs
// @Description  Stops every in-flight run of the session. Partial text is still saved.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        request  body      types.CancelRequest  true  "Session to cancel"
// @Success      200      {object}  types.CancelResponse
// @Failure      400      {object}  types.ErrorResponse
// @Router       /chat/cancel [post]
func (a *api) cancel(w http.ResponseWriter, r *http.Request) {
	var req types.CancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeJSONError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	n := a.svc.Cancel(req.SessionID)
	newReqLog(r, "/chat/cancel").event(LevelInfo).Str("session_id", req.SessionID).Int("cancelled", n).Msg("cancel")
	writeJSON(w, types.CancelResponse{SessionID: req.SessionID, Cancelled: n})
}

// history godoc
// @Summary      Chat history
// @Description  All sessions, newest first, each with its messages oldest first.
// @Tags         history
// @Produce      json
// @Success      200  {object}  types.HistoryResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /history [get]
func (a *api) history(w http.ResponseWriter, r *http.Request) {
	sessions, err := a.svc.History(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if sessions == nil {
		sessions = []types.HistorySession{}
	}
	writeJSON(w, types.HistoryResponse{Sessions: sessions})
}

// historyExport godoc
// @Summary      Export history as Arrow
// @Description  Streams every message as an Apache Arrow IPC stream.
// @Tags         history
// @Produce      application/vnd.apache.arrow.stream
// @Success      200
// @Failure      503  {object}  types.ErrorResponse
// @Router       /history/export [get]
func (a *api) historyExport(w http.ResponseWriter, r *http.Request) {
	// Buffered so a failed export still gets a JSON error.
	var buf bytes.Buffer
	if err := a.svc.ExportHistory(r.Context(), &buf); err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.apache.arrow.stream")
	w.Header().Set("Content-Disposition", `attachment; filename="history.arrow"`)
	_, _ = buf.WriteTo(w)
}
