// Package web serves the server-rendered pages. Interactive widgets on those
// pages talk to the JSON API with fetch.
package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/znwiqn/anidao/internal/api"
	"github.com/znwiqn/anidao/internal/auth"
	"github.com/znwiqn/anidao/internal/cache"
	"github.com/znwiqn/anidao/internal/models"
	"github.com/znwiqn/anidao/internal/ratelimit"
	"github.com/znwiqn/anidao/internal/services"
)

type Catalog interface {
	List(ctx context.Context, filter models.AnimeFilter) ([]models.AnimeSummary, int, error)
	Recent(ctx context.Context, n int) ([]models.AnimeSummary, error)
	Popular(ctx context.Context, n int) ([]models.AnimeSummary, error)
	Get(ctx context.Context, id int64) (*models.AnimeSummary, error)
	Genres(ctx context.Context) ([]string, error)
	Years(ctx context.Context) ([]int, error)
}

type Episodes interface {
	ListByAnime(ctx context.Context, animeID int64) ([]models.Episode, error)
	GetInAnime(ctx context.Context, animeID, episodeID int64) (*models.Episode, error)
	Neighbors(ctx context.Context, animeID int64, number int) (prev, next *models.EpisodeRef, err error)
}

type Comments interface {
	ListForAnime(ctx context.Context, animeID int64) ([]models.Comment, error)
	ListForEpisode(ctx context.Context, episodeID int64) ([]models.Comment, error)
}

type Ratings interface {
	Get(ctx context.Context, userID, animeID int64) (*models.Rating, error)
}

type Favorites interface {
	IsFavorite(ctx context.Context, userID, animeID int64) (bool, error)
	List(ctx context.Context, userID int64) ([]models.Favorite, error)
}

type History interface {
	List(ctx context.Context, userID int64, animeID *int64, limit int) ([]models.WatchHistoryEntry, error)
	Progress(ctx context.Context, userID, animeID int64) (map[int64]float64, error)
}

type Users interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

type Stats interface {
	Stats(ctx context.Context) (*models.SiteStats, error)
}

// Services reports the background housekeeping jobs.
type Services interface {
	GetAllStatus() []services.ServiceStatus
}

// Deps lists the stores and settings the pages read from.
type Deps struct {
	Catalog   Catalog
	Episodes  Episodes
	Comments  Comments
	Ratings   Ratings
	Favorites Favorites
	History   History
	Users     Users
	Stats     Stats
	Services  Services

	Tokens        *auth.Tokens
	WebhookURL    string
	MediaHost     string
	SecureCookies bool
}

// filterOptions are the genre and year choices of the catalog filter form.
type filterOptions struct {
	Genres []string
	Years  []int
}

const filterOptionsTTL = 5 * time.Minute

type Pages struct {
	Deps
	views   *views
	options *cache.Manager[string, filterOptions]
}

func New(deps Deps) (*Pages, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	return &Pages{
		Deps:    deps,
		views:   v,
		options: cache.NewManager[string, filterOptions]("filter_options", filterOptionsTTL),
	}, nil
}

// Register mounts every page on r. Sign-in attempts share limiter with the API.
func (p *Pages) Register(r *mux.Router, limiter *ratelimit.KeyedRateLimiter) {
	r.HandleFunc("/", p.home).Methods("GET")
	r.HandleFunc("/anime", p.animeList).Methods("GET")
	r.HandleFunc("/anime/{id:[0-9]+}", p.animeDetail).Methods("GET")
	r.HandleFunc("/anime/{id:[0-9]+}/episode/{episodeId:[0-9]+}", p.episode).Methods("GET")

	r.HandleFunc("/favorites", p.favorites).Methods("GET")
	r.HandleFunc("/history", p.history).Methods("GET")
	r.HandleFunc("/profile", p.profile).Methods("GET")

	r.HandleFunc("/auth/signin", p.signInForm).Methods("GET")
	r.Handle("/auth/signin", rateLimited(limiter, http.HandlerFunc(p.signIn))).Methods("POST")
	r.HandleFunc("/auth/register", p.registerForm).Methods("GET")
	r.HandleFunc("/auth/signout", p.signOut).Methods("GET", "POST")

	r.HandleFunc("/admin", p.adminDashboard).Methods("GET")
	r.HandleFunc("/admin/anime", p.adminAnime).Methods("GET")
	r.HandleFunc("/admin/anime/new", p.adminAnimeNew).Methods("GET")
	r.HandleFunc("/admin/telegram", p.adminTelegram).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(p.notFound)
}

// SweepCache drops stale filter options and returns how many were removed.
func (p *Pages) SweepCache() int {
	return p.options.Cleanup()
}

// CacheTTL is the lifetime of cached filter options.
func (p *Pages) CacheTTL() time.Duration {
	return filterOptionsTTL
}

func rateLimited(limiter *ratelimit.KeyedRateLimiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter != nil && !limiter.Allow(api.ClientIP(r)) {
			http.Redirect(w, r, "/auth/signin?error=rate_limited", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireUser returns the signed-in user, or redirects to the sign-in page
// with a callback to the current URL.
func requireUser(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/auth/signin?callbackUrl="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
		return nil, false
	}
	return claims, true
}

// requireAdmin sends anonymous visitors to sign in and other users home.
func requireAdmin(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}
	if !claims.IsAdmin {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, false
	}
	return claims, true
}

// safeCallback accepts only same-site absolute paths.
func safeCallback(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	return raw
}
