package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nara.app/nara-gateway/internal/config"
	"nara.app/nara-gateway/internal/metrics"
)

type RouterConfig struct {
	AllowedOrigin string
	// JWTSecret protects the dashboard reads when set.
	JWTSecret string
}

func NewRouter(apiHandler *APIHandler, cfg RouterConfig) http.Handler {
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "*"
	}

	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(CORS(cfg.AllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)

		r.Post("/agents/{agent}/chat", apiHandler.ChatHandler)
		r.Post("/files", apiHandler.UploadFileHandler)
		r.Post("/contracts", apiHandler.SubmitContractHandler)

		// Dashboard reads
		r.Group(func(r chi.Router) {
			r.Use(JWTAuth(cfg.JWTSecret))

			r.Get("/contracts", apiHandler.ListContractsHandler)
			r.Get("/contracts/{contractID}", apiHandler.GetContractHandler)
			r.Get("/emails", apiHandler.ListEmailsHandler)
			r.Get("/emails/categories", apiHandler.EmailCategoriesHandler)
		})
	})

	// Routes the existing browser client still calls.
	r.Route("/.netlify/functions", func(r chi.Router) {
		r.Post("/dust-proxy", apiHandler.AgentChatHandler(config.AgentGuardians))
		r.Post("/dust-proxy-cashflow", apiHandler.AgentChatHandler(config.AgentCashflow))
		r.Post("/dust-upload", apiHandler.UploadFileHandler)
		r.Post("/contract-webhook", apiHandler.SubmitContractHandler)
	})

	return r
}
