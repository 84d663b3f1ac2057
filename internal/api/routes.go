package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/znwiqn/anidao/internal/auth"
	"github.com/znwiqn/anidao/internal/ratelimit"
)

// NewRouter returns the root router shared by the JSON API and the pages.
// Every request is logged and carries the caller's claims when signed in.
func NewRouter(tokens *auth.Tokens) *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware)
	r.Use(tokens.Middleware)
	return r
}

// SetupRoutes configures all API routes on r.
func SetupRoutes(r *mux.Router, handler *Handler, admin *AdminHandler, limiter *ratelimit.KeyedRateLimiter) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(CORSMiddleware)

	user := func(f http.HandlerFunc) http.Handler { return auth.RequireUser(f) }
	adminOnly := func(f http.HandlerFunc) http.Handler { return auth.RequireAdmin(f) }
	limited := RateLimit(limiter)

	// Health check
	api.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Accounts
	api.Handle("/register", limited(http.HandlerFunc(handler.Register))).Methods("POST")
	api.Handle("/auth/login", limited(http.HandlerFunc(handler.Login))).Methods("POST")
	api.HandleFunc("/auth/logout", handler.Logout).Methods("POST")
	api.Handle("/auth/me", user(handler.Me)).Methods("GET")
	api.Handle("/user/profile", user(handler.UpdateProfile)).Methods("PUT")
	api.Handle("/user/password", user(handler.ChangePassword)).Methods("PUT")

	// Anime
	api.HandleFunc("/anime", handler.ListAnime).Methods("GET")
	api.Handle("/anime", adminOnly(handler.CreateAnime)).Methods("POST")
	api.HandleFunc("/anime/genres", handler.ListGenres).Methods("GET")
	api.HandleFunc("/anime/{id:[0-9]+}", handler.GetAnime).Methods("GET")
	api.Handle("/anime/{id:[0-9]+}", adminOnly(handler.UpdateAnime)).Methods("PUT")
	api.Handle("/anime/{id:[0-9]+}", adminOnly(handler.DeleteAnime)).Methods("DELETE")

	// Episodes
	api.HandleFunc("/episodes", handler.ListEpisodes).Methods("GET")
	api.Handle("/episodes", adminOnly(handler.CreateEpisode)).Methods("POST")
	api.HandleFunc("/episodes/{id:[0-9]+}", handler.GetEpisode).Methods("GET")
	api.Handle("/episodes/{id:[0-9]+}", adminOnly(handler.UpdateEpisode)).Methods("PUT")
	api.Handle("/episodes/{id:[0-9]+}", adminOnly(handler.DeleteEpisode)).Methods("DELETE")

	// Engagement
	api.Handle("/comments", user(handler.CreateComment)).Methods("POST")
	api.Handle("/comments", user(handler.DeleteComment)).Methods("DELETE")
	api.Handle("/comments/{id:[0-9]+}", user(handler.DeleteComment)).Methods("DELETE")
	api.Handle("/ratings", user(handler.GetRating)).Methods("GET")
	api.Handle("/ratings", user(handler.RateAnime)).Methods("POST")
	api.Handle("/favorites", user(handler.GetFavorites)).Methods("GET")
	api.Handle("/favorites", user(handler.AddFavorite)).Methods("POST")
	api.Handle("/favorites", user(handler.RemoveFavorite)).Methods("DELETE")
	api.Handle("/watch-history", user(handler.GetWatchHistory)).Methods("GET")
	api.Handle("/watch-history", user(handler.RecordWatch)).Methods("POST")

	// Telegram
	api.HandleFunc("/telegram-webhook", handler.TelegramWebhook).Methods("POST")
	admin.RegisterAdminRoutes(api)

	// Preflight requests are answered by CORSMiddleware.
	api.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})
}
