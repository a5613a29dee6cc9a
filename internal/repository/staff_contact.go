package repository

import (
	"context"
	"time"

	"careops/backend/internal/db"

	"github.com/google/uuid"
)

// DefaultStaffRole is assigned to staff contacts created during sync
const DefaultStaffRole = "Staff Member"

// StaffContact represents a local record for a Close staff user. Exactly one
// row exists per close_user_id, enforced by a unique constraint.
type StaffContact struct {
	ID          uuid.UUID `json:"id"`
	CloseUserID string    `json:"close_user_id"`
	Name        string    `json:"name"`
	Email       *string   `json:"email,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	Role        string    `json:"role"`
	IsStaff     bool      `json:"is_staff"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateStaffContactRequest holds parameters for creating a staff contact
type CreateStaffContactRequest struct {
	CloseUserID string  `json:"close_user_id"`
	Name        string  `json:"name"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Role        string  `json:"role,omitempty"`
}

// StaffContactRepository handles staff contact persistence
type StaffContactRepository struct {
	q Querier
}

// NewStaffContactRepository creates a new staff contact repository
func NewStaffContactRepository(q Querier) *StaffContactRepository {
	return &StaffContactRepository{q: q}
}

const staffContactColumns = `id, close_user_id, name, email, phone, role, is_staff, created_at, updated_at`

func scanStaffContact(row interface{ Scan(...any) error }) (*StaffContact, error) {
	var sc StaffContact
	err := row.Scan(&sc.ID, &sc.CloseUserID, &sc.Name, &sc.Email, &sc.Phone, &sc.Role, &sc.IsStaff, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &sc, nil
}

// GetByCloseUserID retrieves a staff contact by its external Close user id
func (r *StaffContactRepository) GetByCloseUserID(ctx context.Context, closeUserID string) (*StaffContact, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+staffContactColumns+`
		FROM staff_contacts
		WHERE close_user_id = $1`, closeUserID)
	return scanStaffContact(row)
}

// GetByID retrieves a staff contact by local id
func (r *StaffContactRepository) GetByID(ctx context.Context, id uuid.UUID) (*StaffContact, error) {
	row := r.q.QueryRow(ctx, `
		SELECT `+staffContactColumns+`
		FROM staff_contacts
		WHERE id = $1`, id)
	return scanStaffContact(row)
}

// Create inserts a new staff contact. A concurrent insert for the same
// close_user_id fails with a unique violation; callers treat that as a
// signal to re-read (see IsUniqueViolation).
func (r *StaffContactRepository) Create(ctx context.Context, req CreateStaffContactRequest) (*StaffContact, error) {
	role := req.Role
	if role == "" {
		role = DefaultStaffRole
	}

	row := r.q.QueryRow(ctx, `
		INSERT INTO staff_contacts (close_user_id, name, email, phone, role, is_staff)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING `+staffContactColumns,
		req.CloseUserID, req.Name, req.Email, req.Phone, role)
	return scanStaffContact(row)
}

// UpsertByCloseUserID inserts or refreshes a staff contact keyed by its
// Close user id. Used by the bulk directory sync; role and is_staff are
// preserved on update.
func (r *StaffContactRepository) UpsertByCloseUserID(ctx context.Context, req CreateStaffContactRequest) (*StaffContact, error) {
	role := req.Role
	if role == "" {
		role = DefaultStaffRole
	}

	row := r.q.QueryRow(ctx, `
		INSERT INTO staff_contacts (close_user_id, name, email, phone, role, is_staff)
		VALUES ($1, $2, $3, $4, $5, true)
		ON CONFLICT (close_user_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			updated_at = now()
		RETURNING `+staffContactColumns,
		req.CloseUserID, req.Name, req.Email, req.Phone, role)
	return scanStaffContact(row)
}

// List retrieves all staff contacts ordered by name
func (r *StaffContactRepository) List(ctx context.Context) ([]StaffContact, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+staffContactColumns+`
		FROM staff_contacts
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []StaffContact
	for rows.Next() {
		sc, err := scanStaffContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *sc)
	}
	return contacts, rows.Err()
}
