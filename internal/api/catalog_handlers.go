package api

import (
	"net/http"

	"github.com/znwiqn/anidao/internal/models"
)

// AnimeListResponse is one page of the catalog.
type AnimeListResponse struct {
	Data       []models.AnimeSummary `json:"data"`
	Pagination models.Pagination     `json:"pagination"`
}

// EpisodeDetail is an episode with its comment thread.
type EpisodeDetail struct {
	models.Episode
	Comments []models.Comment `json:"comments"`
}

// ListAnime handles GET /api/anime
func (h *Handler) ListAnime(w http.ResponseWriter, r *http.Request) {
	filter := models.ParseAnimeFilter(r.URL.Query())

	anime, total, err := h.Anime.List(r.Context(), filter)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch anime")
		return
	}
	if anime == nil {
		anime = []models.AnimeSummary{}
	}

	respondJSON(w, http.StatusOK, AnimeListResponse{
		Data:       anime,
		Pagination: models.NewPagination(total, filter.Page, filter.Limit),
	})
}

// ListGenres handles GET /api/anime/genres
func (h *Handler) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.Anime.Genres(r.Context())
	if err != nil {
		respondErr(w, r, err, "Failed to fetch genres")
		return
	}
	if genres == nil {
		genres = []string{}
	}
	respondJSON(w, http.StatusOK, genres)
}

// GetAnime handles GET /api/anime/{id}
func (h *Handler) GetAnime(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondErr(w, r, err, "")
		return
	}

	detail, err := h.animeDetail(r, id)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch anime")
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// animeDetail assembles a title with its episodes and title-level comments.
func (h *Handler) animeDetail(r *http.Request, id int64) (*models.AnimeDetail, error) {
	summary, err := h.Anime.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	episodes, err := h.Episodes.ListByAnime(r.Context(), id)
	if err != nil {
		return nil, err
	}
	comments, err := h.Comments.ListForAnime(r.Context(), id)
	if err != nil {
		return nil, err
	}

	detail := &models.AnimeDetail{AnimeSummary: *summary, Episodes: episodes, Comments: comments}
	if detail.Episodes == nil {
		detail.Episodes = []models.Episode{}
	}
	if detail.Comments == nil {
		detail.Comments = []models.Comment{}
	}
	return detail, nil
}

// CreateAnime handles POST /api/anime
func (h *Handler) CreateAnime(w http.ResponseWriter, r *http.Request) {
	var in models.AnimeInput
	if err := h.decode(r, &in); err != nil {
		respondErr(w, r, err, "Failed to create anime")
		return
	}

	anime, err := h.Anime.Create(r.Context(), in)
	if err != nil {
		respondErr(w, r, err, "Failed to create anime")
		return
	}

	requestLogger(r).WithField("anime_id", anime.ID).Info("anime created")
	respondJSON(w, http.StatusCreated, anime)
}

// UpdateAnime handles PUT /api/anime/{id}
func (h *Handler) UpdateAnime(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondErr(w, r, err, "")
		return
	}

	var in models.AnimeInput
	if err := h.decode(r, &in); err != nil {
		respondErr(w, r, err, "Failed to update anime")
		return
	}

	anime, err := h.Anime.Update(r.Context(), id, in)
	if err != nil {
		respondErr(w, r, err, "Failed to update anime")
		return
	}
	respondJSON(w, http.StatusOK, anime)
}

// DeleteAnime handles DELETE /api/anime/{id}
func (h *Handler) DeleteAnime(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondErr(w, r, err, "")
		return
	}

	if err := h.Anime.Delete(r.Context(), id); err != nil {
		respondErr(w, r, err, "Failed to delete anime")
		return
	}

	requestLogger(r).WithField("anime_id", id).Info("anime deleted")
	respondJSON(w, http.StatusOK, map[string]string{"message": "Anime deleted successfully"})
}

// ListEpisodes handles GET /api/episodes?animeId=
func (h *Handler) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	animeID, ok, err := queryID(r, "animeId")
	if err != nil {
		respondErr(w, r, err, "")
		return
	}
	if !ok {
		respondError(w, http.StatusBadRequest, "Anime ID is required")
		return
	}

	episodes, err := h.Episodes.ListByAnime(r.Context(), animeID)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch episodes")
		return
	}
	if episodes == nil {
		episodes = []models.Episode{}
	}
	respondJSON(w, http.StatusOK, episodes)
}

// CreateEpisode handles POST /api/episodes
func (h *Handler) CreateEpisode(w http.ResponseWriter, r *http.Request) {
	var in models.EpisodeInput
	if err := h.decode(r, &in); err != nil {
		respondErr(w, r, err, "Failed to create episode")
		return
	}

	exists, err := h.Anime.Exists(r.Context(), in.AnimeID)
	if err != nil {
		respondErr(w, r, err, "Failed to create episode")
		return
	}
	if !exists {
		respondError(w, http.StatusNotFound, "Anime not found")
		return
	}

	taken, err := h.Episodes.Exists(r.Context(), in.AnimeID, in.EpisodeNumber)
	if err != nil {
		respondErr(w, r, err, "Failed to create episode")
		return
	}
	if taken {
		respondError(w, http.StatusConflict, "Episode number already exists for this anime")
		return
	}

	episode, err := h.Episodes.Create(r.Context(), in)
	if err != nil {
		respondErr(w, r, err, "Failed to create episode")
		return
	}

	requestLogger(r).WithField("episode_id", episode.ID).Info("episode created")
	respondJSON(w, http.StatusCreated, episode)
}

// GetEpisode handles GET /api/episodes/{id}
func (h *Handler) GetEpisode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondErr(w, r, err, "")
		return
	}

	episode, err := h.Episodes.Get(r.Context(), id)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch episode")
		return
	}
	comments, err := h.Comments.ListForEpisode(r.Context(), id)
	if err != nil {
		respondErr(w, r, err, "Failed to fetch episode")
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	respondJSON(w, http.StatusOK, EpisodeDetail{Episode: *episode, Comments: comments})
}

// UpdateEpisode handles PUT /api/episodes/{id}
func (h *Handler) UpdateEpisode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondErr(w, r, err, "")
		return
	}

	var in models.EpisodeUpdate
	if err := h.decode(r, &in); err != nil {
		respondErr(w, r, err, "Failed to update episode")
		return
	}

	episode, err := h.Episodes.Update(r.Context(), id, in)
	if err != nil {
		respondErr(w, r, err, "Failed to update episode")
		return
	}
	respondJSON(w, http.StatusOK, episode)
}

// DeleteEpisode handles DELETE /api/episodes/{id}
func (h *Handler) DeleteEpisode(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondErr(w, r, err, "")
		return
	}

	if err := h.Episodes.Delete(r.Context(), id); err != nil {
		respondErr(w, r, err, "Failed to delete episode")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Episode deleted successfully"})
}
