package user

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-user-registry/internal/types"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }

func existingUser() types.User {
	lastLogin := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return types.User{
		ID:           uuid.New(),
		Email:        "old@example.com",
		PasswordHash: "$2a$10$oldhash",
		Firstname:    strPtr("Old"),
		Lastname:     strPtr("Name"),
		PhoneNumber:  strPtr("12345"),
		Language:     strPtr("en"),
		IsActive:     true,
		IsVerified:   true,
		CompanyID:    intPtr(1),
		RoleID:       intPtr(2),
		LastLoginAt:  &lastLogin,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestReplace_ResetsOmittedOptionalFields(t *testing.T) {
	m := NewMergeEngine()
	existing := existingUser()

	merged := m.Replace(existing, types.UserParams{
		Email:        strPtr("new@example.com"),
		PasswordHash: strPtr("$2a$10$newhash"),
		Firstname:    strPtr("New"),
	})

	assert.Equal(t, existing.ID, merged.ID)
	assert.Equal(t, "new@example.com", merged.Email)
	assert.Equal(t, "$2a$10$newhash", merged.PasswordHash)
	assert.Equal(t, "New", *merged.Firstname)

	// Everything not supplied resets to its schema default.
	assert.Nil(t, merged.Lastname)
	assert.Nil(t, merged.PhoneNumber)
	assert.Nil(t, merged.Language)
	assert.Nil(t, merged.CompanyID)
	assert.Nil(t, merged.RoleID)
	assert.False(t, merged.IsActive)
	assert.False(t, merged.IsVerified)
}

func TestReplace_PreservesIdentityAndHistory(t *testing.T) {
	m := NewMergeEngine()
	existing := existingUser()

	merged := m.Replace(existing, types.UserParams{Email: strPtr("new@example.com")})

	assert.Equal(t, existing.ID, merged.ID)
	assert.Equal(t, existing.CreatedAt, merged.CreatedAt)
	assert.Equal(t, existing.LastLoginAt, merged.LastLoginAt)
	assert.True(t, merged.UpdatedAt.After(existing.UpdatedAt))
}

func TestReplace_KeepsHashWhenNoNewPassword(t *testing.T) {
	m := NewMergeEngine()
	existing := existingUser()

	merged := m.Replace(existing, types.UserParams{Email: strPtr("new@example.com")})

	assert.Equal(t, existing.PasswordHash, merged.PasswordHash)
}

func TestPatch_OverwritesOnlySuppliedFields(t *testing.T) {
	m := NewMergeEngine()
	existing := existingUser()

	merged := m.Patch(existing, types.UserParams{
		Firstname: strPtr("Patched"),
		IsActive:  boolPtr(false),
	})

	assert.Equal(t, "Patched", *merged.Firstname)
	assert.False(t, merged.IsActive)

	// Untouched fields survive.
	assert.Equal(t, existing.Email, merged.Email)
	assert.Equal(t, existing.PasswordHash, merged.PasswordHash)
	assert.Equal(t, existing.Lastname, merged.Lastname)
	assert.Equal(t, existing.CompanyID, merged.CompanyID)
	assert.True(t, merged.IsVerified)
}

func TestPatch_EmptyAdvancesOnlyUpdatedAt(t *testing.T) {
	m := NewMergeEngine()
	existing := existingUser()

	merged := m.Patch(existing, types.UserParams{})

	assert.True(t, merged.UpdatedAt.After(existing.UpdatedAt))

	merged.UpdatedAt = existing.UpdatedAt
	assert.Equal(t, existing, merged)
}

func TestPatch_CanSetLastLoginAt(t *testing.T) {
	m := NewMergeEngine()
	existing := existingUser()
	when := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)

	merged := m.Patch(existing, types.UserParams{LastLoginAt: &when})

	require.NotNil(t, merged.LastLoginAt)
	assert.Equal(t, when, *merged.LastLoginAt)
}
