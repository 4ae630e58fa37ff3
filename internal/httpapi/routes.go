package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/slovoigra/spelling-backend/internal/hub"
	"github.com/slovoigra/spelling-backend/internal/store"
	"github.com/slovoigra/spelling-backend/internal/ws"
)

// SetupRoutes builds the router for the chat-platform collaborator. st may
// be nil when the snapshot store is disabled.
func SetupRoutes(h *hub.Hub, st *store.Store, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/channels/{channel}", func(r chi.Router) {
		r.Post("/start", StartGame(h))
		r.Post("/stop", StopGame(h))
		r.Post("/guess", SubmitGuess(h))
		r.Get("/progress", Progress(h))
		r.Get("/teams", Teams(h))
		r.Get("/letters", Letters(h))
		r.Get("/previous", PreviousGame(st, logger))
	})
	r.Get("/ws", ws.Handler(h, logger))
	r.Get("/healthz", Healthz)

	return r
}

func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Int64("duration_ms", time.Since(start).Milliseconds()),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
