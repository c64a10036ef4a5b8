package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-user-registry/app/observability/metrics"
	"github.com/FACorreiaa/go-user-registry/internal/api"
	"github.com/FACorreiaa/go-user-registry/internal/types"
)

var _ VerifyService = (*VerifyServiceImpl)(nil)

// UserFinder is the read slice of the user store the verify flow needs.
type UserFinder interface {
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
}

// VerifyService checks a credential against the stored hash on behalf of
// the external authentication service. It reports the associated identity
// on success and nothing else; token issuance happens elsewhere.
type VerifyService interface {
	VerifyUserPassword(ctx context.Context, email, password string) (*types.VerifyResult, error)
}

type VerifyServiceImpl struct {
	logger      *slog.Logger
	finder      UserFinder
	credentials *CredentialManager
}

func NewVerifyService(finder UserFinder, credentials *CredentialManager, logger *slog.Logger) *VerifyServiceImpl {
	return &VerifyServiceImpl{
		logger:      logger,
		finder:      finder,
		credentials: credentials,
	}
}

// VerifyUserPassword returns api.ErrNotFound when the email is unknown and
// api.ErrUnauthenticated when the password doesn't match. The two are kept
// distinct here; the handler decides how much of that to reveal.
func (s *VerifyServiceImpl) VerifyUserPassword(ctx context.Context, email, password string) (*types.VerifyResult, error) {
	ctx, span := otel.Tracer("VerifyService").Start(ctx, "VerifyUserPassword")
	defer span.End()

	// Never log the password itself, under any configuration.
	l := s.logger.With(slog.String("method", "VerifyUserPassword"), slog.String("email", email))
	l.DebugContext(ctx, "Verifying user password")

	u, err := s.finder.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			l.WarnContext(ctx, "Verification for unknown email")
			span.SetStatus(codes.Error, "user not found")
			return nil, err
		}
		l.ErrorContext(ctx, "Failed to fetch user for verification", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "store lookup failed")
		return nil, fmt.Errorf("error fetching user for verification: %w", err)
	}

	if !s.credentials.CheckPassword(password, u.PasswordHash) {
		l.InfoContext(ctx, "Password verification failed")
		span.SetStatus(codes.Error, "invalid credentials")
		metrics.Get().PasswordVerifyTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "mismatch")))
		return nil, fmt.Errorf("password mismatch for user %s: %w", u.ID, api.ErrUnauthenticated)
	}

	metrics.Get().PasswordVerifyTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "ok")))
	l.InfoContext(ctx, "Password verified", slog.String("userID", u.ID.String()))
	span.SetStatus(codes.Ok, "password verified")
	return &types.VerifyResult{
		Valid:     true,
		UserID:    u.ID,
		CompanyID: u.CompanyID,
	}, nil
}
