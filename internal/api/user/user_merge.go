package user

import (
	"time"

	"github.com/FACorreiaa/go-user-registry/internal/types"
)

// MergeEngine computes the next record state from an existing record and a
// validated field set. It is pure: callers resolve the existing record and
// persist the result. A password hash, when one is to change, is expected to
// already be in params.PasswordHash (the service hashes before merging).
type MergeEngine struct{}

func NewMergeEngine() *MergeEngine {
	return &MergeEngine{}
}

// Replace builds a full-replace state: every mutable field comes from
// params, omitted optional fields reset to their schema defaults. Identity,
// created_at and last_login_at are preserved; updated_at is recomputed.
func (m *MergeEngine) Replace(existing types.User, params types.UserParams) types.User {
	merged := types.User{
		ID:          existing.ID,
		CreatedAt:   existing.CreatedAt,
		LastLoginAt: existing.LastLoginAt,
		UpdatedAt:   time.Now().UTC(),
	}

	if params.Email != nil {
		merged.Email = *params.Email
	}
	if params.PasswordHash != nil {
		merged.PasswordHash = *params.PasswordHash
	} else {
		merged.PasswordHash = existing.PasswordHash
	}
	merged.Firstname = params.Firstname
	merged.Lastname = params.Lastname
	merged.PhoneNumber = params.PhoneNumber
	merged.AvatarURL = params.AvatarURL
	merged.Language = params.Language
	if params.IsActive != nil {
		merged.IsActive = *params.IsActive
	}
	if params.IsVerified != nil {
		merged.IsVerified = *params.IsVerified
	}
	merged.CompanyID = params.CompanyID
	merged.RoleID = params.RoleID

	return merged
}

// Patch overwrites only the fields present in params. An empty patch is a
// no-op on field values, but updated_at still advances: persisting a patch
// is a mutation even when it changes nothing.
func (m *MergeEngine) Patch(existing types.User, params types.UserParams) types.User {
	merged := existing
	merged.UpdatedAt = time.Now().UTC()

	if params.Email != nil {
		merged.Email = *params.Email
	}
	if params.PasswordHash != nil {
		merged.PasswordHash = *params.PasswordHash
	}
	if params.Firstname != nil {
		merged.Firstname = params.Firstname
	}
	if params.Lastname != nil {
		merged.Lastname = params.Lastname
	}
	if params.PhoneNumber != nil {
		merged.PhoneNumber = params.PhoneNumber
	}
	if params.AvatarURL != nil {
		merged.AvatarURL = params.AvatarURL
	}
	if params.Language != nil {
		merged.Language = params.Language
	}
	if params.IsActive != nil {
		merged.IsActive = *params.IsActive
	}
	if params.IsVerified != nil {
		merged.IsVerified = *params.IsVerified
	}
	if params.CompanyID != nil {
		merged.CompanyID = params.CompanyID
	}
	if params.RoleID != nil {
		merged.RoleID = params.RoleID
	}
	if params.LastLoginAt != nil {
		merged.LastLoginAt = params.LastLoginAt
	}

	return merged
}
