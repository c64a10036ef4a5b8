package types

import (
	"time"

	"github.com/google/uuid"
)

// User is the persisted user record. PasswordHash is write-only from the
// API's point of view and never serialized.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Firstname    *string    `json:"firstname"`
	Lastname     *string    `json:"lastname"`
	PhoneNumber  *string    `json:"phone_number"`
	AvatarURL    *string    `json:"avatar_url"`
	Language     *string    `json:"language"`
	IsActive     bool       `json:"is_active"`
	IsVerified   bool       `json:"is_verified"`
	CompanyID    *int       `json:"company_id"`
	RoleID       *int       `json:"role_id"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UserParams is a validated, normalized field set produced by the record
// validator. Pointers distinguish "not supplied" from zero values, which is
// what lets the merge engine tell a PATCH apart from a PUT.
type UserParams struct {
	ID           *uuid.UUID
	Email        *string
	Password     *string
	PasswordHash *string
	Firstname    *string
	Lastname     *string
	PhoneNumber  *string
	AvatarURL    *string
	Language     *string
	IsActive     *bool
	IsVerified   *bool
	CompanyID    *int
	RoleID       *int
	LastLoginAt  *time.Time
}

// IsEmpty reports whether no field at all was supplied.
func (p UserParams) IsEmpty() bool {
	return p.ID == nil && p.Email == nil && p.Password == nil &&
		p.PasswordHash == nil && p.Firstname == nil && p.Lastname == nil &&
		p.PhoneNumber == nil && p.AvatarURL == nil && p.Language == nil &&
		p.IsActive == nil && p.IsVerified == nil && p.CompanyID == nil &&
		p.RoleID == nil && p.LastLoginAt == nil
}

// VerifyResult is what the verify-password flow reports back to the internal
// auth service on success.
type VerifyResult struct {
	Valid     bool      `json:"valid"`
	UserID    uuid.UUID `json:"user_id"`
	CompanyID *int      `json:"company_id"`
}
