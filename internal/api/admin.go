package api

import (
	"context"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"

	"github.com/znwiqn/anidao/internal/auth"
	"github.com/znwiqn/anidao/internal/bot"
	"github.com/znwiqn/anidao/internal/models"
	"github.com/znwiqn/anidao/internal/services"
)

const testMessage = "✅ Test message from ANI DAO website. Your webhook is working correctly!"

// StatsSource supplies the dashboard counters.
type StatsSource interface {
	Stats(ctx context.Context) (*models.SiteStats, error)
}

// ServiceMonitor exposes the background housekeeping services.
type ServiceMonitor interface {
	GetAllStatus() []services.ServiceStatus
	RunOnce(ctx context.Context, name string) error
	SetEnabled(name string, enabled bool) error
}

// AdminHandler handles admin dashboard operations
type AdminHandler struct {
	handler  *Handler
	stats    StatsSource
	services ServiceMonitor
}

// NewAdminHandler creates a new admin handler. services may be nil.
func NewAdminHandler(handler *Handler, stats StatsSource, services ServiceMonitor) *AdminHandler {
	return &AdminHandler{handler: handler, stats: stats, services: services}
}

// RegisterAdminRoutes registers admin routes under /admin of the API router,
// behind auth.RequireAdmin.
func (a *AdminHandler) RegisterAdminRoutes(api *mux.Router) {
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(auth.RequireAdmin)

	admin.HandleFunc("/stats", a.GetStatistics).Methods("GET")
	admin.HandleFunc("/set-telegram-webhook", a.SetTelegramWebhook).Methods("POST")
	admin.HandleFunc("/get-telegram-webhook", a.GetTelegramWebhook).Methods("GET")
	admin.HandleFunc("/test-telegram-message", a.TestTelegramMessage).Methods("POST")
	admin.HandleFunc("/services", a.ListServices).Methods("GET")
	admin.HandleFunc("/services/{name}/run", a.RunService).Methods("POST")
	admin.HandleFunc("/services/{name}", a.ToggleService).Methods("PUT")
}

// ListServices handles GET /api/admin/services
func (a *AdminHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	if a.services == nil {
		respondJSON(w, http.StatusOK, []services.ServiceStatus{})
		return
	}
	respondJSON(w, http.StatusOK, a.services.GetAllStatus())
}

// RunService handles POST /api/admin/services/{name}/run
func (a *AdminHandler) RunService(w http.ResponseWriter, r *http.Request) {
	if a.services == nil {
		respondError(w, http.StatusNotFound, "Service not found")
		return
	}
	name := mux.Vars(r)["name"]
	if err := a.services.RunOnce(r.Context(), name); err != nil {
		respondErr(w, r, err, "Service run failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "service": name})
}

type toggleServiceRequest struct {
	Enabled bool `json:"enabled"`
}

// ToggleService handles PUT /api/admin/services/{name}
func (a *AdminHandler) ToggleService(w http.ResponseWriter, r *http.Request) {
	if a.services == nil {
		respondError(w, http.StatusNotFound, "Service not found")
		return
	}
	var req toggleServiceRequest
	if err := a.handler.decode(r, &req); err != nil {
		respondErr(w, r, err, "")
		return
	}
	name := mux.Vars(r)["name"]
	if err := a.services.SetEnabled(name, req.Enabled); err != nil {
		respondErr(w, r, err, "")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"service": name, "enabled": req.Enabled})
}

// GetStatistics handles GET /api/admin/stats
func (a *AdminHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := a.stats.Stats(r.Context())
	if err != nil {
		respondErr(w, r, err, "Failed to load statistics")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

type webhookRequest struct {
	URL string `json:"url"`
}

// SetTelegramWebhook handles POST /api/admin/set-telegram-webhook. An empty
// url falls back to the configured public webhook address.
func (a *AdminHandler) SetTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if a.handler.Bot == nil {
		respondError(w, http.StatusInternalServerError, "Telegram bot token is not configured")
		return
	}

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.URL == "" {
		req.URL = a.handler.WebhookURL
	}
	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "Webhook URL is required")
		return
	}

	description, err := a.handler.Bot.SetWebhook(req.URL, a.handler.WebhookSecret)
	if err != nil {
		requestLogger(r).WithError(err).Error("failed to set webhook")
		respondError(w, http.StatusInternalServerError, "Telegram API error: "+err.Error())
		return
	}

	requestLogger(r).WithField("url", req.URL).Info("telegram webhook registered")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  map[string]interface{}{"ok": true, "description": description},
	})
}

// GetTelegramWebhook handles GET /api/admin/get-telegram-webhook
func (a *AdminHandler) GetTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if a.handler.Bot == nil {
		respondError(w, http.StatusInternalServerError, "Telegram bot token is not configured")
		return
	}

	info, err := a.handler.Bot.WebhookInfo()
	if err != nil {
		requestLogger(r).WithError(err).Error("failed to get webhook info")
		respondError(w, http.StatusInternalServerError, "Telegram API error: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "result": info})
}

// chatIDParam accepts a chat id sent either as a JSON number or a string.
type chatIDParam int64

func (c *chatIDParam) UnmarshalJSON(b []byte) error {
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*c = chatIDParam(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*c = 0
		return nil
	}
	id, err := bot.ParseChatID(s)
	if err != nil {
		return err
	}
	*c = chatIDParam(id)
	return nil
}

type testMessageRequest struct {
	ChatID chatIDParam `json:"chatId"`
}

// TestTelegramMessage handles POST /api/admin/test-telegram-message
func (a *AdminHandler) TestTelegramMessage(w http.ResponseWriter, r *http.Request) {
	if a.handler.Bot == nil {
		respondError(w, http.StatusInternalServerError, "Telegram bot token is not configured")
		return
	}

	var req testMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ChatID == 0 {
		respondError(w, http.StatusBadRequest, "Chat ID is required")
		return
	}

	if err := a.handler.Bot.Send(r.Context(), int64(req.ChatID), testMessage); err != nil {
		requestLogger(r).WithError(err).Error("failed to send test message")
		respondError(w, http.StatusInternalServerError, "Telegram API error: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// TelegramWebhook handles POST /api/telegram-webhook. Dialogue failures are
// answered inside the chat, so any decodable update is acknowledged.
func (h *Handler) TelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if !validWebhookSecret(r, h.WebhookSecret) {
		requestLogger(r).Warn("telegram webhook secret mismatch")
		respondError(w, http.StatusUnauthorized, "Invalid webhook secret")
		return
	}
	if h.Updates == nil {
		respondError(w, http.StatusServiceUnavailable, "Telegram bot is not configured")
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		requestLogger(r).WithError(err).Error("failed to decode telegram update")
		respondError(w, http.StatusInternalServerError, "Failed to process Telegram update")
		return
	}

	h.Updates.HandleUpdate(r.Context(), update)
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
