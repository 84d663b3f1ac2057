package web

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/znwiqn/anidao/internal/apperr"
	"github.com/znwiqn/anidao/internal/auth"
	"github.com/znwiqn/anidao/internal/models"
	"github.com/znwiqn/anidao/internal/player"
)

const homeShelfSize = 12

type HomeData struct {
	Recent  []models.AnimeSummary
	Popular []models.AnimeSummary
}

type AnimeListData struct {
	Filter     models.AnimeFilter
	Query      url.Values
	Anime      []models.AnimeSummary
	Pagination models.Pagination
	Genres     []string
	Years      []int
}

type AnimeDetailData struct {
	Anime      *models.AnimeDetail
	UserRating int
	Favorite   bool
	// Progress maps episode ids to the watched percentage.
	Progress map[int64]float64
}

type EpisodeData struct {
	Anime    *models.AnimeSummary
	Episode  *models.Episode
	Prev     *models.EpisodeRef
	Next     *models.EpisodeRef
	Comments []models.Comment
	Player   player.View
	// TrackProgress enables periodic watch reports for signed-in viewers.
	TrackProgress bool
	SkipStep      int
	HideAfterMs   int
}

func (p *Pages) home(w http.ResponseWriter, r *http.Request) {
	recent, err := p.Catalog.Recent(r.Context(), homeShelfSize)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	popular, err := p.Catalog.Popular(r.Context(), homeShelfSize)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "home", "ANI DAO", HomeData{Recent: recent, Popular: popular})
}

func (p *Pages) animeList(w http.ResponseWriter, r *http.Request) {
	filter := models.ParseAnimeFilter(r.URL.Query())

	anime, total, err := p.Catalog.List(r.Context(), filter)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	opts, err := p.filterOptions(r)
	if err != nil {
		p.fail(w, r, err)
		return
	}

	p.render(w, r, http.StatusOK, "anime_list", "Browse anime", AnimeListData{
		Filter:     filter,
		Query:      r.URL.Query(),
		Anime:      anime,
		Pagination: models.NewPagination(total, filter.Page, filter.Limit),
		Genres:     opts.Genres,
		Years:      opts.Years,
	})
}

// filterOptions serves genres and years from a short-lived cache.
func (p *Pages) filterOptions(r *http.Request) (filterOptions, error) {
	const key = "catalog"
	if opts, ok := p.options.Get(key); ok {
		return opts, nil
	}

	genres, err := p.Catalog.Genres(r.Context())
	if err != nil {
		return filterOptions{}, err
	}
	years, err := p.Catalog.Years(r.Context())
	if err != nil {
		return filterOptions{}, err
	}

	opts := filterOptions{Genres: genres, Years: years}
	p.options.Set(key, opts)
	return opts, nil
}

func (p *Pages) animeDetail(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	summary, err := p.Catalog.Get(r.Context(), id)
	if errors.Is(err, apperr.ErrNotFound) {
		p.notFound(w, r)
		return
	}
	if err != nil {
		p.fail(w, r, err)
		return
	}
	episodes, err := p.Episodes.ListByAnime(r.Context(), id)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	comments, err := p.Comments.ListForAnime(r.Context(), id)
	if err != nil {
		p.fail(w, r, err)
		return
	}

	data := AnimeDetailData{
		Anime: &models.AnimeDetail{AnimeSummary: *summary, Episodes: episodes, Comments: comments},
	}

	if claims, ok := auth.GetUserFromContext(r.Context()); ok {
		if err := p.loadViewerState(r, claims.UserID, id, &data); err != nil {
			p.fail(w, r, err)
			return
		}
	}

	p.render(w, r, http.StatusOK, "anime_detail", summary.Title, data)
}

func (p *Pages) loadViewerState(r *http.Request, userID, animeID int64, data *AnimeDetailData) error {
	rating, err := p.Ratings.Get(r.Context(), userID, animeID)
	if err != nil {
		return err
	}
	if rating != nil {
		data.UserRating = rating.Rating
	}
	if data.Favorite, err = p.Favorites.IsFavorite(r.Context(), userID, animeID); err != nil {
		return err
	}
	data.Progress, err = p.History.Progress(r.Context(), userID, animeID)
	return err
}

func (p *Pages) episode(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	animeID, _ := strconv.ParseInt(vars["id"], 10, 64)
	episodeID, _ := strconv.ParseInt(vars["episodeId"], 10, 64)

	ep, err := p.Episodes.GetInAnime(r.Context(), animeID, episodeID)
	if errors.Is(err, apperr.ErrNotFound) {
		p.notFound(w, r)
		return
	}
	if err != nil {
		p.fail(w, r, err)
		return
	}
	anime, err := p.Catalog.Get(r.Context(), animeID)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	prev, next, err := p.Episodes.Neighbors(r.Context(), animeID, ep.EpisodeNumber)
	if err != nil {
		p.fail(w, r, err)
		return
	}
	comments, err := p.Comments.ListForEpisode(r.Context(), episodeID)
	if err != nil {
		p.fail(w, r, err)
		return
	}

	poster := ""
	switch {
	case ep.Thumbnail != nil:
		poster = *ep.Thumbnail
	case anime.CoverImage != nil:
		poster = *anime.CoverImage
	}

	_, signedIn := auth.GetUserFromContext(r.Context())
	title := anime.Title + " – Episode " + strconv.Itoa(ep.EpisodeNumber)
	p.render(w, r, http.StatusOK, "episode", title, EpisodeData{
		Anime:         anime,
		Episode:       ep,
		Prev:          prev,
		Next:          next,
		Comments:      comments,
		Player:        player.NewView(ep.VideoURL, poster),
		TrackProgress: signedIn,
		SkipStep:      int(player.SkipStep.Seconds()),
		HideAfterMs:   int(player.HideControls.Milliseconds()),
	})
}
