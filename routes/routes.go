package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/marcusvvm/chatbot-vertex-v2/app"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)

		// Configuration
		r.Route("/config", func(r chi.Router) {
			r.Get("/global", deps.CorpusConfigHandler.HandleGetGlobalConfig)

			r.Route("/corpus/{corpusID}", func(r chi.Router) {
				r.Get("/", deps.CorpusConfigHandler.HandleGetConfig)
				r.Put("/", deps.CorpusConfigHandler.HandleUpdateConfig)
				r.Delete("/", deps.CorpusConfigHandler.HandleResetConfig)
				r.Post("/apply-preset/{presetID}", deps.PresetHandler.HandleApplyPreset)
			})

			r.Route("/presets", func(r chi.Router) {
				r.Get("/", deps.PresetHandler.HandleListPresets)
				r.Post("/", deps.PresetHandler.HandleCreatePreset)
				r.Get("/{presetID}", deps.PresetHandler.HandleGetPreset)
				r.Put("/{presetID}", deps.PresetHandler.HandleUpdatePreset)
				r.Delete("/{presetID}", deps.PresetHandler.HandleDeletePreset)
			})
		})

		// Chat
		r.Post("/chat", deps.ChatHandler.HandleChat)

		// Corpus lifecycle
		r.Route("/corpus", func(r chi.Router) {
			r.Get("/", deps.CorpusHandler.HandleListCorpora)
			r.Post("/", deps.CorpusHandler.HandleCreateCorpus)
			r.Delete("/{corpusID}", deps.CorpusHandler.HandleDeleteCorpus)
		})

		// Corpus documents
		r.Route("/documents", func(r chi.Router) {
			r.Post("/upload", deps.DocumentHandler.HandleUploadDocument)
			r.Get("/{corpusID}/files/{fileID}", deps.DocumentHandler.HandleGetDocument)
			r.Delete("/{corpusID}/files/{fileID}", deps.DocumentHandler.HandleDeleteDocument)
		})

		// Operational endpoints (admin only)
		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAdmin)
			r.Post("/config/reload", deps.AdminHandler.HandleReloadConfig)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
