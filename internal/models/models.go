package models

import (
	"net/url"
	"strconv"
	"time"
)

// Anime is a catalog title.
type Anime struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Year        *int      `json:"year"`
	Genres      []string  `json:"genres"`
	CoverImage  *string   `json:"cover_image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AnimeSummary is a title with the aggregates shown on cards and grids.
type AnimeSummary struct {
	Anime
	EpisodeCount  int      `json:"episode_count"`
	AverageRating *float64 `json:"average_rating"`
	FavoriteCount int      `json:"favorite_count"`
}

// AnimeDetail is the full title page payload.
type AnimeDetail struct {
	AnimeSummary
	Episodes []Episode `json:"episodes"`
	Comments []Comment `json:"comments"`
}

// AnimeTitle is the slim projection used for selection lists.
type AnimeTitle struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Year  *int   `json:"year"`
}

// AnimeInput carries the writable fields of a title.
type AnimeInput struct {
	Title       string   `json:"title" validate:"required,max=500"`
	Description *string  `json:"description"`
	Year        *int     `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	Genres      []string `json:"genres" validate:"omitempty,dive,required,max=100"`
	CoverImage  *string  `json:"cover_image"`
}

// AnimeFilter drives catalog listing.
type AnimeFilter struct {
	Search string
	Genre  string
	Year   int
	Sort   string
	Page   int
	Limit  int
}

const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortRating  = "rating"
	SortPopular = "popular"
)

// Normalize fills defaults and clamps paging values.
func (f *AnimeFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	switch f.Sort {
	case SortNewest, SortOldest, SortRating, SortPopular:
	default:
		f.Sort = SortNewest
	}
}

// ParseAnimeFilter reads catalog filters from query parameters and normalizes
// them. Unparseable numbers fall back to defaults.
func ParseAnimeFilter(q url.Values) AnimeFilter {
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	year, _ := strconv.Atoi(q.Get("year"))

	f := AnimeFilter{
		Search: q.Get("search"),
		Genre:  q.Get("genre"),
		Year:   year,
		Sort:   q.Get("sort"),
		Page:   page,
		Limit:  limit,
	}
	f.Normalize()
	return f
}

// Offset returns the row offset for the current page.
func (f AnimeFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Pagination describes a page of results.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPagination computes the page count for total rows.
func NewPagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, Page: page, Limit: limit, TotalPages: pages}
}

type Episode struct {
	ID            int64     `json:"id"`
	AnimeID       int64     `json:"anime_id"`
	EpisodeNumber int       `json:"episode_number"`
	Title         *string   `json:"title"`
	VideoURL      string    `json:"video_url"`
	Thumbnail     *string   `json:"thumbnail"`
	Duration      *int      `json:"duration"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	AnimeTitle    string    `json:"anime_title,omitempty"`
}

// EpisodeInput carries the writable fields of an episode.
type EpisodeInput struct {
	AnimeID       int64   `json:"anime_id" validate:"required,gt=0"`
	EpisodeNumber int     `json:"episode_number" validate:"required,gt=0"`
	Title         *string `json:"title"`
	VideoURL      string  `json:"video_url" validate:"required"`
	Thumbnail     *string `json:"thumbnail"`
	Duration      *int    `json:"duration" validate:"omitempty,gte=0"`
}

// EpisodeUpdate carries the fields an episode edit may change.
type EpisodeUpdate struct {
	Title     *string `json:"title"`
	VideoURL  string  `json:"video_url" validate:"required"`
	Thumbnail *string `json:"thumbnail"`
	Duration  *int    `json:"duration" validate:"omitempty,gte=0"`
}

// EpisodeRef points at a neighboring episode.
type EpisodeRef struct {
	ID            int64 `json:"id"`
	EpisodeNumber int   `json:"episode_number"`
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	TelegramID   *string   `json:"telegram_id"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Comment struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	AnimeID   int64     `json:"anime_id"`
	EpisodeID *int64    `json:"episode_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
}

type Rating struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	AnimeID   int64     `json:"anime_id"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	MinRating = 1
	MaxRating = 10
)

// Favorite is a favorited title joined with its card data.
type Favorite struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	AnimeID       int64     `json:"anime_id"`
	CreatedAt     time.Time `json:"created_at"`
	Title         string    `json:"title"`
	CoverImage    *string   `json:"cover_image"`
	Year          *int      `json:"year"`
	Genres        []string  `json:"genres"`
	EpisodeCount  int       `json:"episode_count"`
	AverageRating *float64  `json:"average_rating"`
}

// WatchHistoryEntry is the per (user, episode) progress row joined with display data.
type WatchHistoryEntry struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	EpisodeID         int64     `json:"episode_id"`
	WatchedPercentage float64   `json:"watched_percentage"`
	LastWatchedAt     time.Time `json:"last_watched_at"`
	AnimeID           int64     `json:"anime_id"`
	AnimeTitle        string    `json:"anime_title"`
	EpisodeNumber     int       `json:"episode_number"`
	EpisodeTitle      *string   `json:"episode_title"`
	Thumbnail         *string   `json:"thumbnail"`
}

// SiteStats are the row counts shown on the admin dashboard.
type SiteStats struct {
	Anime    int `json:"anime"`
	Episodes int `json:"episodes"`
	Users    int `json:"users"`
	Comments int `json:"comments"`
}
