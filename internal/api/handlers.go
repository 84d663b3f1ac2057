package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/znwiqn/anidao/internal/apperr"
	"github.com/znwiqn/anidao/internal/auth"
	"github.com/znwiqn/anidao/internal/models"
	"github.com/znwiqn/anidao/internal/validation"
)

// The store interfaces are satisfied by the internal/database stores.

type AnimeStore interface {
	List(ctx context.Context, filter models.AnimeFilter) ([]models.AnimeSummary, int, error)
	Get(ctx context.Context, id int64) (*models.AnimeSummary, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Create(ctx context.Context, in models.AnimeInput) (*models.Anime, error)
	Update(ctx context.Context, id int64, in models.AnimeInput) (*models.Anime, error)
	Delete(ctx context.Context, id int64) error
	Genres(ctx context.Context) ([]string, error)
}

type EpisodeStore interface {
	ListByAnime(ctx context.Context, animeID int64) ([]models.Episode, error)
	Get(ctx context.Context, id int64) (*models.Episode, error)
	Exists(ctx context.Context, animeID int64, number int) (bool, error)
	Create(ctx context.Context, in models.EpisodeInput) (*models.Episode, error)
	Update(ctx context.Context, id int64, in models.EpisodeUpdate) (*models.Episode, error)
	Delete(ctx context.Context, id int64) error
}

type UserStore interface {
	Create(ctx context.Context, username, email, password string, telegramID *string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	UsernameOrEmailTaken(ctx context.Context, username, email string, excludeID int64) (bool, error)
	UpdateProfile(ctx context.Context, id int64, username, email string, telegramID *string) error
	UpdatePassword(ctx context.Context, id int64, current, next string) error
}

type CommentStore interface {
	Create(ctx context.Context, userID, animeID int64, episodeID *int64, content string) (*models.Comment, error)
	ListForAnime(ctx context.Context, animeID int64) ([]models.Comment, error)
	ListForEpisode(ctx context.Context, episodeID int64) ([]models.Comment, error)
	Get(ctx context.Context, id int64) (*models.Comment, error)
	Delete(ctx context.Context, id int64) error
}

type RatingStore interface {
	Get(ctx context.Context, userID, animeID int64) (*models.Rating, error)
	Upsert(ctx context.Context, userID, animeID int64, value int) (*models.Rating, error)
}

type FavoriteStore interface {
	IsFavorite(ctx context.Context, userID, animeID int64) (bool, error)
	List(ctx context.Context, userID int64) ([]models.Favorite, error)
	Add(ctx context.Context, userID, animeID int64) error
	Remove(ctx context.Context, userID, animeID int64) error
}

type HistoryStore interface {
	Record(ctx context.Context, userID, episodeID int64, percentage float64) error
	List(ctx context.Context, userID int64, animeID *int64, limit int) ([]models.WatchHistoryEntry, error)
}

// BotClient is the outbound side of the chat-bot used by the admin endpoints.
type BotClient interface {
	Send(ctx context.Context, chatID int64, text string) error
	SetWebhook(url, secret string) (string, error)
	WebhookInfo() (tgbotapi.WebhookInfo, error)
}

// UpdateHandler consumes webhook updates.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// Pinger reports database reachability.
type Pinger interface {
	Health(ctx context.Context) error
}

// Deps lists everything the JSON handlers need. Bot and Updates may be nil
// when no bot token is configured.
type Deps struct {
	DB        Pinger
	Anime     AnimeStore
	Episodes  EpisodeStore
	Users     UserStore
	Comments  CommentStore
	Ratings   RatingStore
	Favorites FavoriteStore
	History   HistoryStore

	Tokens    *auth.Tokens
	Validator *validation.Validator

	Bot           BotClient
	Updates       UpdateHandler
	WebhookSecret string
	WebhookURL    string
	SecureCookies bool
}

type Handler struct {
	Deps
}

func NewHandler(deps Deps) *Handler {
	if deps.Validator == nil {
		deps.Validator = validation.New()
	}
	return &Handler{Deps: deps}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps err through apperr. Unexpected failures are logged and
// answered with fallback so driver details stay server-side.
func respondErr(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := apperr.StatusOf(err)
	if status >= http.StatusInternalServerError {
		requestLogger(r).WithError(err).Error(fallback)
	}
	respondError(w, status, apperr.MessageOf(err, fallback))
}

// decode reads a JSON body into dst and validates it when it carries tags.
func (h *Handler) decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return h.Validator.Validate(dst)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid " + name)
	}
	return id, nil
}

// queryID parses an optional positive id parameter; ok is false when absent.
func queryID(r *http.Request, name string) (id int64, ok bool, err error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	id, err = strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, apperr.Validation("Invalid " + name)
	}
	return id, true, nil
}

// currentUser returns the claims attached by auth.Middleware. Routes using it
// sit behind auth.RequireUser.
func currentUser(r *http.Request) *auth.Claims {
	claims, _ := auth.GetUserFromContext(r.Context())
	return claims
}

// HealthCheck handles GET /api/health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.Health(ctx); err != nil {
		requestLogger(r).WithError(err).Warn("health check failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "unreachable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}
