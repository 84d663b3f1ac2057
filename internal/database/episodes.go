package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/znwiqn/anidao/internal/apperr"
	"github.com/znwiqn/anidao/internal/models"
)

const episodeColumns = `id, anime_id, episode_number, title, video_url, thumbnail, duration, created_at, updated_at`

type EpisodeStore struct {
	db *sql.DB
}

func NewEpisodeStore(db *sql.DB) *EpisodeStore {
	return &EpisodeStore{db: db}
}

// ListByAnime returns a title's episodes in sequence order.
func (e *EpisodeStore) ListByAnime(ctx context.Context, animeID int64) ([]models.Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE anime_id = $1 ORDER BY episode_number`

	rows, err := e.db.QueryContext(ctx, query, animeID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list episodes")
	}
	defer rows.Close()

	episodes := []models.Episode{}
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan episode")
		}
		episodes = append(episodes, *ep)
	}
	return episodes, rows.Err()
}

// Get returns an episode together with its owning title's name.
func (e *EpisodeStore) Get(ctx context.Context, id int64) (*models.Episode, error) {
	query := `
		SELECT e.id, e.anime_id, e.episode_number, e.title, e.video_url, e.thumbnail, e.duration,
		       e.created_at, e.updated_at, a.title
		FROM episodes e
		JOIN anime a ON e.anime_id = a.id
		WHERE e.id = $1`

	ep, err := scanEpisodeWithTitle(e.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("Episode not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get episode")
	}
	return ep, nil
}

// GetInAnime returns the episode only when it belongs to animeID.
func (e *EpisodeStore) GetInAnime(ctx context.Context, animeID, episodeID int64) (*models.Episode, error) {
	query := `
		SELECT e.id, e.anime_id, e.episode_number, e.title, e.video_url, e.thumbnail, e.duration,
		       e.created_at, e.updated_at, a.title
		FROM episodes e
		JOIN anime a ON e.anime_id = a.id
		WHERE e.id = $1 AND a.id = $2`

	ep, err := scanEpisodeWithTitle(e.db.QueryRowContext(ctx, query, episodeID, animeID))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("Episode not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get episode")
	}
	return ep, nil
}

// Neighbors returns the episodes immediately before and after number; either may be nil.
func (e *EpisodeStore) Neighbors(ctx context.Context, animeID int64, number int) (prev, next *models.EpisodeRef, err error) {
	prev, err = e.neighbor(ctx, `
		SELECT id, episode_number FROM episodes
		WHERE anime_id = $1 AND episode_number < $2
		ORDER BY episode_number DESC LIMIT 1`, animeID, number)
	if err != nil {
		return nil, nil, err
	}

	next, err = e.neighbor(ctx, `
		SELECT id, episode_number FROM episodes
		WHERE anime_id = $1 AND episode_number > $2
		ORDER BY episode_number ASC LIMIT 1`, animeID, number)
	if err != nil {
		return nil, nil, err
	}
	return prev, next, nil
}

func (e *EpisodeStore) neighbor(ctx context.Context, query string, animeID int64, number int) (*models.EpisodeRef, error) {
	var ref models.EpisodeRef
	err := e.db.QueryRowContext(ctx, query, animeID, number).Scan(&ref.ID, &ref.EpisodeNumber)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get neighboring episode")
	}
	return &ref, nil
}

// Exists reports whether the title already has an episode with this number.
func (e *EpisodeStore) Exists(ctx context.Context, animeID int64, number int) (bool, error) {
	var exists bool
	err := e.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM episodes WHERE anime_id = $1 AND episode_number = $2)`,
		animeID, number).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check episode")
	}
	return exists, nil
}

// Create inserts an episode. The (anime_id, episode_number) constraint turns a
// lost race against a concurrent insert into a conflict.
func (e *EpisodeStore) Create(ctx context.Context, in models.EpisodeInput) (*models.Episode, error) {
	query := `
		INSERT INTO episodes (anime_id, episode_number, title, video_url, thumbnail, duration)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + episodeColumns

	ep, err := scanEpisode(e.db.QueryRowContext(ctx, query,
		in.AnimeID, in.EpisodeNumber, in.Title, in.VideoURL, in.Thumbnail, in.Duration))
	switch {
	case isUniqueViolation(err):
		return nil, apperr.Conflict("Episode number already exists for this anime")
	case isForeignKeyViolation(err):
		return nil, apperr.NotFound("Anime not found")
	case err != nil:
		return nil, errors.Wrap(err, "failed to create episode")
	}
	return ep, nil
}

// Update rewrites the mutable fields of an episode; its title and number stay put.
func (e *EpisodeStore) Update(ctx context.Context, id int64, in models.EpisodeUpdate) (*models.Episode, error) {
	query := `
		UPDATE episodes
		SET title = $1, video_url = $2, thumbnail = $3, duration = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
		RETURNING ` + episodeColumns

	ep, err := scanEpisode(e.db.QueryRowContext(ctx, query, in.Title, in.VideoURL, in.Thumbnail, in.Duration, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("Episode not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update episode")
	}
	return ep, nil
}

func (e *EpisodeStore) Delete(ctx context.Context, id int64) error {
	result, err := e.db.ExecContext(ctx, `DELETE FROM episodes WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete episode")
	}

	return expectOne(result, "Episode not found")
}

func scanEpisode(row scanner) (*models.Episode, error) {
	var ep models.Episode
	err := row.Scan(&ep.ID, &ep.AnimeID, &ep.EpisodeNumber, &ep.Title, &ep.VideoURL,
		&ep.Thumbnail, &ep.Duration, &ep.CreatedAt, &ep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

func scanEpisodeWithTitle(row scanner) (*models.Episode, error) {
	var ep models.Episode
	err := row.Scan(&ep.ID, &ep.AnimeID, &ep.EpisodeNumber, &ep.Title, &ep.VideoURL,
		&ep.Thumbnail, &ep.Duration, &ep.CreatedAt, &ep.UpdatedAt, &ep.AnimeTitle)
	if err != nil {
		return nil, err
	}
	return &ep, nil
}
