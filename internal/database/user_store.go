package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/znwiqn/anidao/internal/apperr"
	"github.com/znwiqn/anidao/internal/models"
)

const userColumns = `id, username, email, password_hash, telegram_id, is_admin, created_at, updated_at`

// UserStore handles account database operations
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new user store
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Create hashes the password and inserts a new account.
func (s *UserStore) Create(ctx context.Context, username, email, password string, telegramID *string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	query := `
		INSERT INTO users (username, email, password_hash, telegram_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	user, err := scanUser(s.db.QueryRowContext(ctx, query, username, email, string(hashedPassword), telegramID))
	if isUniqueViolation(err) {
		return nil, apperr.Conflict("Username or email already exists")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}
	return user, nil
}

// GetByID retrieves an account by ID
func (s *UserStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}
	return user, nil
}

// GetByUsername retrieves an account by username
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get user")
	}
	return user, nil
}

// Authenticate checks the password against the stored hash. Unknown users and
// wrong passwords yield the same error.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthorized("Invalid username or password")
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("Invalid username or password")
	}
	return user, nil
}

// UsernameOrEmailTaken reports whether another account (other than excludeID) uses
// either value. Pass excludeID 0 when registering.
func (s *UserStore) UsernameOrEmailTaken(ctx context.Context, username, email string, excludeID int64) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE (username = $1 OR email = $2) AND id != $3)`,
		username, email, excludeID).Scan(&taken)
	if err != nil {
		return false, errors.Wrap(err, "failed to check username")
	}
	return taken, nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, id int64, username, email string, telegramID *string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET username = $1, email = $2, telegram_id = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4`, username, email, telegramID, id)
	if isUniqueViolation(err) {
		return apperr.Conflict("Username or email already exists")
	}
	if err != nil {
		return errors.Wrap(err, "failed to update profile")
	}
	return expectOne(result, "User not found")
}

// UpdatePassword verifies the current password before storing the new hash.
func (s *UserStore) UpdatePassword(ctx context.Context, id int64, current, next string) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return apperr.Unauthorized("Current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		string(hashedPassword), id)
	if err != nil {
		return errors.Wrap(err, "failed to update password")
	}
	return expectOne(result, "User not found")
}

// SetAdmin grants or revokes site administration for username.
func (s *UserStore) SetAdmin(ctx context.Context, username string, admin bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_admin = $1, updated_at = CURRENT_TIMESTAMP WHERE username = $2`,
		admin, username)
	if err != nil {
		return errors.Wrap(err, "failed to update admin flag")
	}
	return expectOne(result, "User not found")
}

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.TelegramID,
		&u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// expectOne maps a zero-row write to a not-found error with msg.
func expectOne(result sql.Result, msg string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return apperr.NotFound(msg)
	}
	return nil
}

// AdminStore answers whether a chat identity belongs to an operator.
type AdminStore struct {
	db *sql.DB
}

func NewAdminStore(db *sql.DB) *AdminStore {
	return &AdminStore{db: db}
}

// IsAdmin reports whether telegramID is registered in admins.
func (s *AdminStore) IsAdmin(ctx context.Context, telegramID string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM admins WHERE telegram_id = $1)`, telegramID).Scan(&ok)
	if err != nil {
		return false, errors.Wrap(err, "failed to check admin")
	}
	return ok, nil
}

// Add registers telegramID as an operator; adding twice is a no-op.
func (s *AdminStore) Add(ctx context.Context, telegramID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admins (telegram_id) VALUES ($1) ON CONFLICT (telegram_id) DO NOTHING`, telegramID)
	if err != nil {
		return errors.Wrap(err, "failed to add admin")
	}
	return nil
}

// Stats counts rows for the admin dashboard.
func (s *AdminStore) Stats(ctx context.Context) (*models.SiteStats, error) {
	var st models.SiteStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM anime),
			(SELECT COUNT(*) FROM episodes),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM comments)`).Scan(&st.Anime, &st.Episodes, &st.Users, &st.Comments)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load stats")
	}
	return &st, nil
}
