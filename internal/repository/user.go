package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ninthcircle/diceroller/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// ErrUserExists is returned by Create when the login is taken
var ErrUserExists = errors.New("user already exists")

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	u.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (login, password_hash, display_name, created_at)
		VALUES (?, ?, ?, ?)`,
		u.Login, u.PasswordHash, u.DisplayName, u.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("%w: %s", ErrUserExists, u.Login)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	return nil
}

// GetByLogin returns a user by login, including the password hash
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	return r.get(ctx, "login = ?", login)
}

// GetByID returns a user by ID, including the password hash
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.get(ctx, "id = ?", id)
}

func (r *UserRepository) get(ctx context.Context, where string, arg any) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, login, password_hash, COALESCE(display_name, ''), created_at
		FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Login, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// List returns all users
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, login, COALESCE(display_name, ''), created_at
		FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Login, &u.DisplayName, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// SetPassword replaces the password hash, reporting whether the user exists
func (r *UserRepository) SetPassword(ctx context.Context, login, hash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE login = ?", hash, login)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

// Delete deletes a user, reporting whether it existed
func (r *UserRepository) Delete(ctx context.Context, login string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE login = ?", login)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create opens a session for userID that expires after ttl
func (r *SessionRepository) Create(ctx context.Context, userID int64, ttl time.Duration) (*models.Session, error) {
	now := time.Now().UTC()
	s := &models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)",
		s.ID, s.UserID, s.ExpiresAt, s.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

// GetUser returns the user owning an unexpired session, or nil
func (r *SessionRepository) GetUser(ctx context.Context, sessionID string) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.login, COALESCE(u.display_name, ''), u.created_at
		FROM sessions s INNER JOIN users u ON u.id = s.user_id
		WHERE s.id = ? AND s.expires_at > ?`,
		sessionID, time.Now().UTC(),
	).Scan(&u.ID, &u.Login, &u.DisplayName, &u.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	return err
}

// DeleteExpired removes sessions that expired before now
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
