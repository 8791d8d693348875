// Package web provides the JSON HTTP API: health, catalog validation,
// package processing and sender status.
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/artpar/sage/app"
	"github.com/artpar/sage/ports"
)

// Handler provides the API endpoints.
type Handler struct {
	specs     *app.SpecService
	processor *app.Processor
	senders   *app.SenderService
	reader    ports.DatasetReader
	clock     ports.Clock

	packagesDir string
	maxUpload   int64
	logger      zerolog.Logger
	startTime   time.Time
}

// Deps contains dependencies for the API handler.
type Deps struct {
	Specs       *app.SpecService
	Processor   *app.Processor
	Senders     *app.SenderService
	Reader      ports.DatasetReader
	Clock       ports.Clock
	PackagesDir string
	MaxUpload   int64 // bytes, 0 means 64 MiB
	Logger      zerolog.Logger
}

// NewHandler creates an API handler.
func NewHandler(deps Deps) *Handler {
	maxUpload := deps.MaxUpload
	if maxUpload == 0 {
		maxUpload = 64 << 20
	}
	return &Handler{
		specs:       deps.Specs,
		processor:   deps.Processor,
		senders:     deps.Senders,
		reader:      deps.Reader,
		clock:       deps.Clock,
		packagesDir: deps.PackagesDir,
		maxUpload:   maxUpload,
		logger:      deps.Logger.With().Str("component", "api").Logger(),
		startTime:   time.Now(),
	}
}

// Router builds the chi router for the API.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/catalogs/{name}/validate", h.ValidateCatalog)
		r.Post("/packages/{name}/process", h.ProcessPackage)
		r.Get("/senders/overdue", h.SendersOverdue)
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
