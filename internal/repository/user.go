package repository

import (
	"context"
	"time"

	"careops/backend/internal/db"

	"github.com/google/uuid"
)

// AppUser represents a local end user (an NDIS participant account)
type AppUser struct {
	ID        uuid.UUID `json:"id"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	FullName  *string   `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRepository handles app user and session lookups
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new user repository
func NewUserRepository(q Querier) *UserRepository {
	return &UserRepository{q: q}
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*AppUser, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, email, phone, full_name, created_at, updated_at
		FROM app_users
		WHERE id = $1`, id)

	var u AppUser
	if err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.FullName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetBySessionToken resolves a session token to its user. Expired sessions
// resolve to db.ErrNotFound the same as unknown tokens.
func (r *UserRepository) GetBySessionToken(ctx context.Context, token string) (*AppUser, error) {
	row := r.q.QueryRow(ctx, `
		SELECT u.id, u.email, u.phone, u.full_name, u.created_at, u.updated_at
		FROM app_users u
		JOIN sessions s ON s.user_id = u.id
		WHERE s.token = $1 AND s.expires_at > now()`, token)

	var u AppUser
	if err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.FullName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
