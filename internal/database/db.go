package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type DB struct {
	*sql.DB
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// Connect opens the Postgres pool and verifies it answers.
func Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return db, nil
}

// New creates a new database connection wrapped in DB
func New(dsn string) (*DB, error) {
	db, err := Connect(dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Health checks database health
func (db *DB) Health(ctx context.Context) error {
	return db.PingContext(ctx)
}

// pqCode extracts the SQLSTATE from a driver error, or "" when err is not a *pq.Error.
func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == pqForeignKeyViolation
}

// Stores bundles every store built on one connection pool.
type Stores struct {
	Anime     *AnimeStore
	Episodes  *EpisodeStore
	Users     *UserStore
	Admins    *AdminStore
	Comments  *CommentStore
	Ratings   *RatingStore
	Favorites *FavoriteStore
	History   *WatchHistoryStore
}

// NewStores wires all stores against db.
func NewStores(db *sql.DB) *Stores {
	return &Stores{
		Anime:     NewAnimeStore(db),
		Episodes:  NewEpisodeStore(db),
		Users:     NewUserStore(db),
		Admins:    NewAdminStore(db),
		Comments:  NewCommentStore(db),
		Ratings:   NewRatingStore(db),
		Favorites: NewFavoriteStore(db),
		History:   NewWatchHistoryStore(db),
	}
}
