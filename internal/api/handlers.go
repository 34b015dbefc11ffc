package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"nara.app/nara-gateway/internal/core"
)

const healthTimeout = 3 * time.Second

type APIHandler struct {
	agents       *core.AgentService
	uploads      *core.UploadService
	contracts    *core.ContractService
	dashboard    *core.DashboardService
	maxBodyBytes int64
}

type HandlerConfig struct {
	Agents       *core.AgentService
	Uploads      *core.UploadService
	Contracts    *core.ContractService
	Dashboard    *core.DashboardService
	MaxBodyBytes int64
}

func NewAPIHandler(cfg HandlerConfig) *APIHandler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 20 << 20
	}
	return &APIHandler{
		agents:       cfg.Agents,
		uploads:      cfg.Uploads,
		contracts:    cfg.Contracts,
		dashboard:    cfg.Dashboard,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// ChatHandler serves POST /api/agents/{agent}/chat.
func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	h.chat(w, r, chi.URLParam(r, "agent"))
}

// AgentChatHandler serves a fixed agent, for the legacy function routes.
func (h *APIHandler) AgentChatHandler(agent string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.chat(w, r, agent)
	}
}

func (h *APIHandler) chat(w http.ResponseWriter, r *http.Request, agent string) {
	req, ok := readJSON[core.ChatRequest](w, r, h.maxBodyBytes)
	if !ok {
		return
	}

	resp, err := h.agents.Chat(r.Context(), agent, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[core.UploadRequest](w, r, h.maxBodyBytes)
	if !ok {
		return
	}

	resp, err := h.uploads.Upload(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *APIHandler) SubmitContractHandler(w http.ResponseWriter, r *http.Request) {
	if !h.contracts.Enabled() {
		writeServiceError(w, r, core.Unavailable("contract intake is not configured"))
		return
	}
	if !isJSONContent(r) {
		writeError(w, http.StatusBadRequest, "Content-Type must be application/json with fileName and fileBase64", nil)
		return
	}

	req, ok := readJSON[core.ContractRequest](w, r, h.maxBodyBytes)
	if !ok {
		return
	}

	receipt, err := h.contracts.Submit(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *APIHandler) ListContractsHandler(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.dashboard.ListContracts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contracts)
}

func (h *APIHandler) GetContractHandler(w http.ResponseWriter, r *http.Request) {
	contract, err := h.dashboard.GetContract(r.Context(), chi.URLParam(r, "contractID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if subject, ok := SubjectFrom(r.Context()); ok {
		slog.InfoContext(r.Context(), "contract summary read", "contract_id", contract.ID, "subject", subject)
	}
	writeJSON(w, http.StatusOK, contract)
}

func (h *APIHandler) ListEmailsHandler(w http.ResponseWriter, r *http.Request) {
	view, err := core.ParseEmailView(r.URL.Query().Get("view"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	emails, err := h.dashboard.ListEmails(r.Context(), view)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emails)
}

func (h *APIHandler) EmailCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := h.dashboard.CategorizeEmails(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.dashboard.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
