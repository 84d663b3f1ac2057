package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/znwiqn/anidao/internal/models"
)

type CommentRequest struct {
	AnimeID   int64  `json:"animeId" validate:"required,gt=0"`
	EpisodeID *int64 `json:"episodeId" validate:"omitempty,gt=0"`
	Content   string `json:"content" validate:"required,max=5000"`
}

type DeleteCommentRequest struct {
	CommentID int64 `json:"commentId" validate:"required,gt=0"`
}

type RatingRequest struct {
	AnimeID int64 `json:"animeId" validate:"required,gt=0"`
	Rating  int   `json:"rating" validate:"required"`
}

type FavoriteRequest struct {
	AnimeID int64 `json:"animeId" validate:"required,gt=0"`
}

type WatchRequest struct {
	EpisodeID         int64   `json:"episodeId" validate:"required,gt=0"`
	WatchedPercentage float64 `json:"watchedPercentage"`
}

const historyLimit = 50

// CreateComment handles POST /api/comments
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req CommentRequest
	if err := h.decode(r, &req); err != nil {
		respondErr(w, r, err, "Failed to create comment")
		return
	}

	exists, err := h.Anime.Exists(r.Context(), req.AnimeID)
	if err != nil {
		respondErr(w, r, err, "Failed to create comment")
		return
	}
	if !exists {
		respondError(w, http.StatusNotFound, "Anime not found")
		return
	}

	if req.EpisodeID != nil {
		episode, err := h.Episodes.Get(r.Context(), *req.EpisodeID)
		if err != nil {
			respondErr(w, r, err, "Failed to create comment")
			return
		}
		if episode.AnimeID != req.AnimeID {
			respondError(w, http.StatusNotFound, "Episode not found")
			return
		}
	}

	comment, err := h.Comments.Create(r.Context(), currentUser(r).UserID, req.AnimeID, req.EpisodeID, req.Content)
	if err != nil {
		respondErr(w, r, err, "Failed to create comment")
		return
	}
	comment.Username = currentUser(r).Username

	respondJSON(w, http.StatusCreated, comment)
}

// DeleteComment handles DELETE /api/comments and /api/comments/{id}.
// Authors may delete their own comments; admins may delete any.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	var id int64
	if _, ok := mux.Vars(r)["id"]; ok {
		var err error
		if id, err = pathID(r, "id"); err != nil {
			respondErr(w, r, err, "")
			return
		}
	} else {
		var req DeleteCommentRequest
		if err := h.decode(r, &req); err != nil {
			respondErr(w, r, err, "Failed to delete comment")
			return
		}
		id = req.CommentID
	}

	comment, err := h.Comments.Get(r.Context(), id)
	if err != nil {
		respondErr(w, r, err, "Failed to delete comment")
		return
	}

	claims := currentUser(r)
	if comment.UserID != claims.UserID && !claims.IsAdmin {
		respondError(w, http.StatusForbidden, "Unauthorized. You can only delete your own comments.")
		return
	}

	if err := h.Comments.Delete(r.Context(), id); err != nil {
		respondErr(w, r, err, "Failed to delete comment")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetRating handles GET /api/ratings?animeId=. It answers null when the
// user has not rated the title.
func (h *Handler) GetRating(w http.ResponseWriter, r *http.Request) {
	animeID, ok, err := queryID(r, "animeId")
	if err != nil {
		respondErr(w, r, err, "")
		return
	}
	if !ok {
		respondError(w, http.StatusBadRequest, "Anime ID is required")
		return
	}

	rating, err := h.Ratings.Get(r.Context(), currentUser(r).UserID, animeID)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch rating")
		return
	}
	if rating == nil {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"rating": rating.Rating})
}

// RateAnime handles POST /api/ratings
func (h *Handler) RateAnime(w http.ResponseWriter, r *http.Request) {
	var req RatingRequest
	if err := h.decode(r, &req); err != nil {
		respondErr(w, r, err, "Failed to rate anime")
		return
	}
	if req.Rating < models.MinRating || req.Rating > models.MaxRating {
		respondError(w, http.StatusBadRequest, "Rating must be between 1 and 10")
		return
	}

	exists, err := h.Anime.Exists(r.Context(), req.AnimeID)
	if err != nil {
		respondErr(w, r, err, "Failed to rate anime")
		return
	}
	if !exists {
		respondError(w, http.StatusNotFound, "Anime not found")
		return
	}

	if _, err := h.Ratings.Upsert(r.Context(), currentUser(r).UserID, req.AnimeID, req.Rating); err != nil {
		respondErr(w, r, err, "Failed to rate anime")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetFavorites handles GET /api/favorites. With animeId it reports
// membership instead of listing.
func (h *Handler) GetFavorites(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r).UserID

	animeID, ok, err := queryID(r, "animeId")
	if err != nil {
		respondErr(w, r, err, "")
		return
	}
	if ok {
		fav, err := h.Favorites.IsFavorite(r.Context(), userID, animeID)
		if err != nil {
			respondErr(w, r, err, "Failed to fetch favorites")
			return
		}
		respondJSON(w, http.StatusOK, map[string]bool{"isFavorite": fav})
		return
	}

	favorites, err := h.Favorites.List(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch favorites")
		return
	}
	if favorites == nil {
		favorites = []models.Favorite{}
	}
	respondJSON(w, http.StatusOK, favorites)
}

// AddFavorite handles POST /api/favorites
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteRequest
	if err := h.decode(r, &req); err != nil {
		respondErr(w, r, err, "Failed to add to favorites")
		return
	}

	exists, err := h.Anime.Exists(r.Context(), req.AnimeID)
	if err != nil {
		respondErr(w, r, err, "Failed to add to favorites")
		return
	}
	if !exists {
		respondError(w, http.StatusNotFound, "Anime not found")
		return
	}

	if err := h.Favorites.Add(r.Context(), currentUser(r).UserID, req.AnimeID); err != nil {
		respondErr(w, r, err, "Failed to add to favorites")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RemoveFavorite handles DELETE /api/favorites. Removing an absent favorite succeeds.
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteRequest
	if err := h.decode(r, &req); err != nil {
		respondErr(w, r, err, "Failed to remove from favorites")
		return
	}

	if err := h.Favorites.Remove(r.Context(), currentUser(r).UserID, req.AnimeID); err != nil {
		respondErr(w, r, err, "Failed to remove from favorites")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetWatchHistory handles GET /api/watch-history[?animeId=&limit=]
func (h *Handler) GetWatchHistory(w http.ResponseWriter, r *http.Request) {
	animeID, ok, err := queryID(r, "animeId")
	if err != nil {
		respondErr(w, r, err, "")
		return
	}
	var filter *int64
	if ok {
		filter = &animeID
	}

	limit := historyLimit
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 200 {
		limit = n
	}

	entries, err := h.History.List(r.Context(), currentUser(r).UserID, filter, limit)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch watch history")
		return
	}
	if entries == nil {
		entries = []models.WatchHistoryEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}

// RecordWatch handles POST /api/watch-history. The latest report overwrites
// the stored percentage.
func (h *Handler) RecordWatch(w http.ResponseWriter, r *http.Request) {
	var req WatchRequest
	if err := h.decode(r, &req); err != nil {
		respondErr(w, r, err, "Failed to update watch history")
		return
	}

	if err := h.History.Record(r.Context(), currentUser(r).UserID, req.EpisodeID, req.WatchedPercentage); err != nil {
		respondErr(w, r, err, "Failed to update watch history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
