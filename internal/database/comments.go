package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/znwiqn/anidao/internal/apperr"
	"github.com/znwiqn/anidao/internal/models"
)

const commentSelect = `
	SELECT c.id, c.user_id, c.anime_id, c.episode_id, c.content, c.created_at, u.username
	FROM comments c
	JOIN users u ON c.user_id = u.id`

type CommentStore struct {
	db *sql.DB
}

func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

// Create inserts a comment. A nil episodeID makes it a title-level comment.
// The returned row carries no username; callers fill it from the session.
func (s *CommentStore) Create(ctx context.Context, userID, animeID int64, episodeID *int64, content string) (*models.Comment, error) {
	c := models.Comment{UserID: userID, AnimeID: animeID, EpisodeID: episodeID, Content: content}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO comments (user_id, anime_id, episode_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		userID, animeID, episodeID, content).Scan(&c.ID, &c.CreatedAt)
	if isForeignKeyViolation(err) {
		return nil, apperr.NotFound("Anime or episode not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create comment")
	}
	return &c, nil
}

// ListForAnime returns the title-level comments, newest first.
func (s *CommentStore) ListForAnime(ctx context.Context, animeID int64) ([]models.Comment, error) {
	return s.list(ctx, commentSelect+`
		WHERE c.anime_id = $1 AND c.episode_id IS NULL
		ORDER BY c.created_at DESC, c.id DESC`, animeID)
}

// ListForEpisode returns an episode's comments, newest first.
func (s *CommentStore) ListForEpisode(ctx context.Context, episodeID int64) ([]models.Comment, error) {
	return s.list(ctx, commentSelect+`
		WHERE c.episode_id = $1
		ORDER BY c.created_at DESC, c.id DESC`, episodeID)
}

func (s *CommentStore) list(ctx context.Context, query string, arg int64) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list comments")
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan comment")
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

func (s *CommentStore) Get(ctx context.Context, id int64) (*models.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx, commentSelect+` WHERE c.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("Comment not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get comment")
	}
	return c, nil
}

func (s *CommentStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete comment")
	}
	return expectOne(result, "Comment not found")
}

func scanComment(row scanner) (*models.Comment, error) {
	var c models.Comment
	if err := row.Scan(&c.ID, &c.UserID, &c.AnimeID, &c.EpisodeID, &c.Content, &c.CreatedAt, &c.Username); err != nil {
		return nil, err
	}
	return &c, nil
}
