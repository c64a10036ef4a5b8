package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-user-registry/app/observability/metrics"
	"github.com/FACorreiaa/go-user-registry/internal/api"
	"github.com/FACorreiaa/go-user-registry/internal/types"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo defines the contract for user record persistence. It is the only
// boundary the core talks to; uniqueness of email is enforced here (by the
// store's constraint), not by callers.
type UserRepo interface {
	// GetUserByID retrieves a user by their unique ID.
	// Returns api.ErrNotFound if the user doesn't exist.
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)

	// GetUserByEmail retrieves a user by their email.
	// Returns api.ErrNotFound if no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)

	// CreateUser inserts a new record.
	// Returns api.ErrConflict when the email is already taken.
	CreateUser(ctx context.Context, u types.User) (*types.User, error)

	// UpdateUser overwrites the full record identified by u.ID.
	// Returns api.ErrNotFound if the record is absent.
	UpdateUser(ctx context.Context, u types.User) (*types.User, error)

	// DeleteUser removes the record. Hard delete, no tombstone.
	// Returns api.ErrNotFound if the record is absent.
	DeleteUser(ctx context.Context, userID uuid.UUID) error

	// ListUsers returns all records in a stable order.
	ListUsers(ctx context.Context) ([]types.User, error)

	// StreamUsers invokes fn once per record, in the same stable order,
	// without materializing the whole set. Iteration stops on the first
	// error fn returns.
	StreamUsers(ctx context.Context, fn func(types.User) error) error
}

// PGXPool is the subset of pgxpool.Pool the repository uses. pgxmock
// satisfies it too, which is how the repository tests run without a
// database.
type PGXPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresUserRepo struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresUserRepo(pgpool PGXPool, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const userColumns = `id, email, password_hash, firstname, lastname, phone_number,
	       avatar_url, language, is_active, is_verified, company_id, role_id,
	       last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Firstname, &u.Lastname,
		&u.PhoneNumber, &u.AvatarURL, &u.Language, &u.IsActive, &u.IsVerified,
		&u.CompanyID, &u.RoleID, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// recordQuery feeds the db query duration and error instruments. Call it
// deferred with the named return error of the surrounding method.
func recordQuery(ctx context.Context, op string, start time.Time, err error) {
	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("operation", op))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil && !errors.Is(err, api.ErrNotFound) {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = $1", userColumns)
	u, err := scanUser(r.pgpool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s not found: %w", userID, api.ErrNotFound)
		}
		return nil, fmt.Errorf("fetch user by id: query failed: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE email = $1", userColumns)
	u, err := scanUser(r.pgpool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user with email not found: %w", api.ErrNotFound)
		}
		return nil, fmt.Errorf("fetch user by email: query failed: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) CreateUser(ctx context.Context, u types.User) (_ *types.User, err error) {
	start := time.Now()
	defer func() { recordQuery(ctx, "insert_user", start, err) }()

	ctx, span := otel.Tracer("UserRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreateUser"), slog.String("userID", u.ID.String()))

	query := `
		INSERT INTO users (id, email, password_hash, firstname, lastname, phone_number,
		                   avatar_url, language, is_active, is_verified, company_id, role_id,
		                   last_login_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err = r.pgpool.Exec(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.Firstname, u.Lastname, u.PhoneNumber,
		u.AvatarURL, u.Language, u.IsActive, u.IsVerified, u.CompanyID, u.RoleID,
		u.LastLoginAt, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			l.WarnContext(ctx, "Duplicate email on insert", slog.String("email", u.Email))
			span.SetStatus(codes.Error, "duplicate email")
			return nil, fmt.Errorf("email already in use: %w", api.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("create user: db insert failed: %w", err)
	}

	span.SetStatus(codes.Ok, "user created")
	return &u, nil
}

func (r *PostgresUserRepo) UpdateUser(ctx context.Context, u types.User) (_ *types.User, err error) {
	start := time.Now()
	defer func() { recordQuery(ctx, "update_user", start, err) }()

	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", u.ID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "UpdateUser"), slog.String("userID", u.ID.String()))

	query := `
		UPDATE users
		SET email = $2, password_hash = $3, firstname = $4, lastname = $5,
		    phone_number = $6, avatar_url = $7, language = $8, is_active = $9,
		    is_verified = $10, company_id = $11, role_id = $12,
		    last_login_at = $13, updated_at = $14
		WHERE id = $1`
	tag, err := r.pgpool.Exec(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.Firstname, u.Lastname, u.PhoneNumber,
		u.AvatarURL, u.Language, u.IsActive, u.IsVerified, u.CompanyID, u.RoleID,
		u.LastLoginAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			span.SetStatus(codes.Error, "duplicate email")
			return nil, fmt.Errorf("email already in use: %w", api.ErrConflict)
		}
		l.ErrorContext(ctx, "Failed to update user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("update user: db update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "user not found")
		return nil, fmt.Errorf("user %s not found for update: %w", u.ID, api.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "user updated")
	return &u, nil
}

func (r *PostgresUserRepo) DeleteUser(ctx context.Context, userID uuid.UUID) (err error) {
	start := time.Now()
	defer func() { recordQuery(ctx, "delete_user", start, err) }()

	l := r.logger.With(slog.String("method", "DeleteUser"), slog.String("userID", userID.String()))

	tag, err := r.pgpool.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to delete user", slog.Any("error", err))
		return fmt.Errorf("delete user: db delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found for delete: %w", userID, api.ErrNotFound)
	}
	return nil
}

func (r *PostgresUserRepo) ListUsers(ctx context.Context) ([]types.User, error) {
	users := make([]types.User, 0)
	err := r.StreamUsers(ctx, func(u types.User) error {
		users = append(users, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *PostgresUserRepo) StreamUsers(ctx context.Context, fn func(types.User) error) (err error) {
	start := time.Now()
	defer func() { recordQuery(ctx, "select_users", start, err) }()

	// Stable order keeps the CSV export deterministic across calls.
	query := fmt.Sprintf("SELECT %s FROM users ORDER BY created_at, id", userColumns)
	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("list users: query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return fmt.Errorf("list users: scan failed: %w", err)
		}
		if err := fn(*u); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list users: iteration failed: %w", err)
	}
	return nil
}
