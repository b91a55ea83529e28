package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/chatrelay/internal/metrics"
	"github.com/kalambet/chatrelay/internal/relay"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds what the HTTP front door needs.
type Deps struct {
	Relay *relay.Relay
	// Metrics may be nil, in which case /metrics is not mounted.
	Metrics   *metrics.Collector
	StaticDir string
	Logger    *slog.Logger
}

// NewHandler returns the relay's HTTP surface: POST /chat, GET /health,
// GET /metrics and static files at the root.
func NewHandler(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Instrument(logger, deps.Metrics))
	r.Use(middleware.Recoverer)

	r.Post("/chat", handleChat(deps.Relay))
	r.Get("/health", handleHealth(deps.Relay))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	static := staticHandler(deps.StaticDir)
	r.Method(http.MethodGet, "/*", static)
	r.Method(http.MethodHead, "/*", static)

	return r
}

func handleChat(rl *relay.Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		in, err := relay.ParseChatInput(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, err.Error())
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		body, err := rl.Chat(r.Context(), in)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeRaw(w, http.StatusOK, body)
	}
}

func handleHealth(rl *relay.Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := rl.Health(r.Context())
		code := http.StatusOK
		if !res.Healthy() {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, res)
	}
}
