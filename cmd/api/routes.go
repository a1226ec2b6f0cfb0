package main

import (
	"log"
	"net/http"

	httphandlers "ledgerlink/internal/interfaces/http"
	"ledgerlink/internal/shared/config"
	"ledgerlink/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Linking sessions
	mux.HandleFunc("POST /api/link/sessions", deps.LinkHandler.HandleCreateSession)
	mux.HandleFunc("/api/link/sessions/{id}", deps.LinkHandler.HandleSession)
	mux.HandleFunc("POST /api/link/sessions/{id}/events", deps.LinkHandler.HandleEvents)

	// Flow navigation and actions
	mux.HandleFunc("POST /api/link/sessions/{id}/next", deps.LinkHandler.HandleNext)
	mux.HandleFunc("POST /api/link/sessions/{id}/back", deps.LinkHandler.HandleBack)
	mux.HandleFunc("POST /api/link/sessions/{id}/connect", deps.LinkHandler.HandleConnect)
	mux.HandleFunc("POST /api/link/sessions/{id}/continue", deps.LinkHandler.HandleContinue)
	mux.HandleFunc("POST /api/link/sessions/{id}/preview", deps.LinkHandler.HandlePreview)
	mux.HandleFunc("POST /api/link/sessions/{id}/selection", deps.LinkHandler.HandleSelection)
	mux.HandleFunc("POST /api/link/sessions/{id}/confirm", deps.LinkHandler.HandleConfirm)
	mux.HandleFunc("POST /api/link/sessions/{id}/exit", deps.LinkHandler.HandleExit)

	// Sync progress stream
	mux.HandleFunc("GET /api/link/sessions/{id}/progress", deps.LinkHandler.HandleProgress)

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux))

	// Apply telemetry middleware when enabled
	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(middleware.Tracing(handler))
	}

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
