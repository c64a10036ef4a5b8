package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-user-registry/internal/types"
)

// Ensure implementation satisfies the interface
var _ UserService = (*UserServiceImpl)(nil)

// Credentials is the slice of the credential manager the user service
// needs. Verification lives with the auth flow, not here: read paths never
// touch hash material.
type Credentials interface {
	HashPassword(password string) (string, error)
}

// UserService defines the business logic contract for user record operations.
type UserService interface {
	CreateUser(ctx context.Context, fields map[string]any) (*types.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
	ListUsers(ctx context.Context) ([]types.User, error)
	ReplaceUser(ctx context.Context, userID uuid.UUID, fields map[string]any) (*types.User, error)
	PatchUser(ctx context.Context, userID uuid.UUID, fields map[string]any) (*types.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// UserServiceImpl provides the implementation for UserService.
type UserServiceImpl struct {
	logger      *slog.Logger
	repo        UserRepo
	validator   *Validator
	merge       *MergeEngine
	credentials Credentials
}

// NewUserService creates a new user service instance.
func NewUserService(repo UserRepo, credentials Credentials, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger:      logger,
		repo:        repo,
		validator:   NewValidator(),
		merge:       NewMergeEngine(),
		credentials: credentials,
	}
}

// CreateUser validates the field set, hashes the password and persists a new
// record with a fresh id and timestamps.
func (s *UserServiceImpl) CreateUser(ctx context.Context, fields map[string]any) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "CreateUser")
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateUser"))
	l.DebugContext(ctx, "Creating user")

	params, err := s.validator.Validate(fields, ModeCreate)
	if err != nil {
		l.WarnContext(ctx, "User creation failed validation")
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	hash, err := s.credentials.HashPassword(*params.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		return nil, fmt.Errorf("error preparing credentials: %w", err)
	}

	now := time.Now().UTC()
	u := types.User{
		ID:           uuid.New(),
		Email:        *params.Email,
		PasswordHash: hash,
		Firstname:    params.Firstname,
		Lastname:     params.Lastname,
		PhoneNumber:  params.PhoneNumber,
		AvatarURL:    params.AvatarURL,
		Language:     params.Language,
		CompanyID:    params.CompanyID,
		RoleID:       params.RoleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if params.IsActive != nil {
		u.IsActive = *params.IsActive
	}
	if params.IsVerified != nil {
		u.IsVerified = *params.IsVerified
	}

	created, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create user")
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	l.InfoContext(ctx, "User created successfully", slog.String("userID", created.ID.String()))
	span.SetStatus(codes.Ok, "User created successfully")
	return created, nil
}

// GetUser retrieves a user record by ID.
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	l := s.logger.With(slog.String("method", "GetUser"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Fetching user")

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch user", slog.Any("error", err))
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return u, nil
}

// ListUsers retrieves all user records.
func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]types.User, error) {
	l := s.logger.With(slog.String("method", "ListUsers"))
	l.DebugContext(ctx, "Listing users")

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list users", slog.Any("error", err))
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	l.InfoContext(ctx, "Users listed successfully", slog.Int("count", len(users)))
	return users, nil
}

// ReplaceUser applies full-replace semantics: every mutable field is taken
// from the request, omitted optionals reset to schema defaults.
func (s *UserServiceImpl) ReplaceUser(ctx context.Context, userID uuid.UUID, fields map[string]any) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "ReplaceUser", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "ReplaceUser"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Replacing user")

	// Validation runs before the existence check so a bad payload never
	// reaches the merge engine.
	params, err := s.validator.Validate(fields, ModeReplace)
	if err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	existing, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, "user not found")
		return nil, fmt.Errorf("error fetching user for replace: %w", err)
	}

	if err := s.hashIntoParams(params); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		return nil, err
	}

	merged := s.merge.Replace(*existing, *params)
	updated, err := s.repo.UpdateUser(ctx, merged)
	if err != nil {
		l.ErrorContext(ctx, "Failed to replace user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to replace user")
		return nil, fmt.Errorf("error replacing user: %w", err)
	}

	l.InfoContext(ctx, "User replaced successfully")
	span.SetStatus(codes.Ok, "User replaced successfully")
	return updated, nil
}

// PatchUser applies partial-merge semantics: only supplied fields change.
// An empty patch still advances updated_at.
func (s *UserServiceImpl) PatchUser(ctx context.Context, userID uuid.UUID, fields map[string]any) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "PatchUser", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "PatchUser"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Patching user")

	params, err := s.validator.Validate(fields, ModePatch)
	if err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	existing, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		span.SetStatus(codes.Error, "user not found")
		return nil, fmt.Errorf("error fetching user for patch: %w", err)
	}

	if err := s.hashIntoParams(params); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "password hashing failed")
		return nil, err
	}

	merged := s.merge.Patch(*existing, *params)
	updated, err := s.repo.UpdateUser(ctx, merged)
	if err != nil {
		l.ErrorContext(ctx, "Failed to patch user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to patch user")
		return nil, fmt.Errorf("error patching user: %w", err)
	}

	l.InfoContext(ctx, "User patched successfully")
	span.SetStatus(codes.Ok, "User patched successfully")
	return updated, nil
}

// DeleteUser removes a user record permanently.
func (s *UserServiceImpl) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	l := s.logger.With(slog.String("method", "DeleteUser"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Deleting user")

	err := s.repo.DeleteUser(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to delete user", slog.Any("error", err))
		return fmt.Errorf("error deleting user: %w", err)
	}

	l.InfoContext(ctx, "User deleted successfully")
	return nil
}

// hashIntoParams swaps a validated plaintext password for its hash before
// the merge engine sees the field set.
func (s *UserServiceImpl) hashIntoParams(params *types.UserParams) error {
	if params.Password == nil {
		return nil
	}
	hash, err := s.credentials.HashPassword(*params.Password)
	if err != nil {
		return fmt.Errorf("error preparing credentials: %w", err)
	}
	params.PasswordHash = &hash
	params.Password = nil
	return nil
}
