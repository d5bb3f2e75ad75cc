package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sessiond/internal/session"
	"sessiond/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Create(req types.CreateSessionRequest) (int64, *session.Session, error)
	Get(id int64) (*session.Session, bool)
	Release(id int64) error
	List() []types.SessionInfo
	Models() []types.Model
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(corsOptions()))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: svc.Models()})
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.SessionsResponse{Sessions: svc.List()})
	})

	r.Post("/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateSessionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		id, sess, err := svc.Create(req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, types.CreateSessionResponse{SessionID: id, Model: sess.ModelID()})
	})

	r.Delete("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		if err := svc.Release(id); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/sessions/{id}/chat", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(w, r, svc)
		if !ok {
			return
		}
		var req types.ChatRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			writeJSONError(w, http.StatusBadRequest, "text is required")
			return
		}
		streamReply(w, r, sess, func(ctx streamCtx) (*types.ContextStats, error) {
			return sess.Send(ctx.ctx, req.Text, ctx.onProgress)
		}, func() string {
			hist := sess.History()
			if n := len(hist); n > 0 && hist[n-1].Role == types.RoleAssistant {
				return hist[n-1].Text
			}
			return ""
		})
	})

	r.Post("/sessions/{id}/chat-history", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(w, r, svc)
		if !ok {
			return
		}
		var req types.ChatHistoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if len(req.Turns) == 0 {
			writeJSONError(w, http.StatusBadRequest, "turns are required")
			return
		}
		var collected strings.Builder
		streamReply(w, r, sess, func(ctx streamCtx) (*types.ContextStats, error) {
			inner := ctx.onProgress
			return sess.SendWithHistory(ctx.ctx, req.Turns, func(frag string, done bool) bool {
				if !done {
					collected.WriteString(frag)
				}
				return inner(frag, done)
			})
		}, collected.String)
	})

	r.Get("/sessions/{id}/history", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(w, r, svc)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, types.ChatHistoryRequest{Turns: sess.History()})
	})

	r.Post("/sessions/{id}/reset", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(w, r, svc)
		if !ok {
			return
		}
		sess.Reset()
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/sessions/{id}/history/clear", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(w, r, svc)
		if !ok {
			return
		}
		var req types.ClearHistoryRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Keep < 0 {
			writeJSONError(w, http.StatusBadRequest, "keep must not be negative")
			return
		}
		sess.Truncate(req.Keep)
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/sessions/{id}/max-tokens", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(w, r, svc)
		if !ok {
			return
		}
		var req types.MaxTokensRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.MaxNewTokens <= 0 {
			writeJSONError(w, http.StatusBadRequest, "max_new_tokens must be positive")
			return
		}
		sess.SetMaxNewTokens(req.MaxNewTokens)
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/sessions/{id}/system-prompt", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(w, r, svc)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, types.SystemPromptResponse{SystemPrompt: sess.SystemPrompt()})
	})

	r.Post("/sessions/{id}/system-prompt", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(w, r, svc)
		if !ok {
			return
		}
		var req types.SystemPromptRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		sess.SetSystemPrompt(req.SystemPrompt)
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/sessions/{id}/assistant-prompt", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(w, r, svc)
		if !ok {
			return
		}
		var req types.AssistantPromptRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := sess.SetAssistantPrompt(req.AssistantPrompt); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/sessions/{id}/config", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(w, r, svc)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var raw json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := sess.UpdateConfig(string(raw)); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/sessions/{id}/audio", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(w, r, svc)
		if !ok {
			return
		}
		var req types.AudioRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		sess.EnableAudioOutput(req.Enabled)
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/sessions/{id}/debug", func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionFor(w, r, svc)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, types.DebugInfoResponse{Debug: sess.DebugInfo()})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// sessionID parses the {id} route parameter; on failure it writes a 400.
func sessionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid session id")
		return 0, false
	}
	return id, true
}

// sessionFor resolves the {id} route parameter to a live session,
// writing a 400 or 404 on failure.
func sessionFor(w http.ResponseWriter, r *http.Request, svc Service) (*session.Session, bool) {
	id, ok := sessionID(w, r)
	if !ok {
		return nil, false
	}
	sess, ok := svc.Get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, session.ErrSessionNotFound(id).Error())
		return nil, false
	}
	return sess, true
}

// decodeJSON enforces the JSON content type and body limit, decoding into v.
// On failure it writes the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// streamCtx carries the joined request context and the per-fragment
// progress callback into a streaming send.
type streamCtx struct {
	ctx        context.Context
	onProgress session.ProgressFunc
}

// streamReply runs one generation and streams it as NDJSON chat events.
// finalText is consulted only after a successful send, for the done line.
func streamReply(w http.ResponseWriter, r *http.Request, sess *session.Session, send func(streamCtx) (*types.ContextStats, error), finalText func() string) {
	if !sess.Loaded() {
		writeJSONError(w, http.StatusServiceUnavailable, "session engine not loaded")
		return
	}
	lvl := requestLogLevel(r)
	start := time.Now()
	logChatStart(r, sess.ModelID(), lvl)

	w.Header().Set("Content-Type", "application/x-ndjson")
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	enc := json.NewEncoder(w)

	joined, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	if chatTimeout > 0 {
		var tcancel context.CancelFunc
		joined, tcancel = context.WithTimeout(joined, time.Duration(chatTimeout)*time.Second)
		defer tcancel()
	}

	streamed := 0
	onProgress := func(frag string, done bool) bool {
		if done {
			return false
		}
		if joined.Err() != nil {
			return true
		}
		if err := enc.Encode(types.ChatEvent{Delta: frag}); err != nil {
			return true
		}
		streamed += len(frag)
		if flush != nil {
			flush()
		}
		return false
	}

	stats, err := send(streamCtx{ctx: joined, onProgress: onProgress})
	observeGeneration(sess.ModelID(), statusOf(err), time.Since(start), streamed)
	if err != nil {
		// Client disconnect or shutdown: nothing sensible left to write.
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			logChatEnd(r, lvl, 0, start, err)
			return
		}
		status := errorStatus(err)
		if status == http.StatusConflict {
			IncrementBusy(sess.ModelID())
		}
		writeJSONError(w, status, err.Error())
		logChatEnd(r, lvl, status, start, err)
		return
	}
	if encErr := enc.Encode(types.ChatEvent{Done: true, Content: finalText(), Stats: stats}); encErr == nil && flush != nil {
		flush()
	}
	logChatEnd(r, lvl, http.StatusOK, start, nil)
}

func statusOf(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

// errorStatus maps well-known session errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case session.IsSessionNotFound(err):
		return http.StatusNotFound
	case session.IsModelNotFound(err):
		return http.StatusNotFound
	case session.IsBusy(err):
		return http.StatusConflict
	case session.IsEngineUnavailable(err):
		return http.StatusServiceUnavailable
	case session.IsMalformedConfig(err):
		return http.StatusBadRequest
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeJSONError(w, errorStatus(err), err.Error())
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}
