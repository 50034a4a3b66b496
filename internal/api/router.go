package api

import (
	"net/http"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/logging"
	"github.com/ding-dong-qiang/blockchain-storage-system/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// NewRouter builds the full HTTP handler: health checks, CORS for browser
// clients listed in origins, and the API mounted under /api.
func NewRouter(gate *services.Gate, origins []string, log logging.Logger) http.Handler {
	h := NewHandler(gate, log)

	api := chi.NewRouter()
	api.Post("/session", h.Login)
	api.Delete("/session", h.Logout)
	api.Post("/keys", h.GenerateKeys)

	api.Group(func(r chi.Router) {
		r.Use(h.RequireSession)

		r.Get("/files", h.ListFiles)
		r.Post("/files", h.CreateFile)
		r.Get("/files/{id}", h.GetFile)
		r.Put("/files/{id}", h.UpdateFile)
		r.Patch("/files/{id}", h.RenameFile)
		r.Delete("/files/{id}", h.DeleteFile)

		r.Post("/sync", h.Sync)
		r.Post("/restore", h.Restore)
		r.Get("/remote/exists", h.RemoteExists)
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Mount("/api", api)
	return r
}
