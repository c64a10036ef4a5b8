package transfer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-user-registry/app/observability/metrics"
	"github.com/FACorreiaa/go-user-registry/internal/api/user"
	"github.com/FACorreiaa/go-user-registry/internal/types"
)

// exportColumns is the fixed CSV column order. password_hash is deliberately
// absent; exported files are safe to hand outside the service.
var exportColumns = []string{
	"id", "email", "firstname", "lastname", "phone_number", "avatar_url",
	"language", "is_active", "is_verified", "company_id", "role_id",
	"last_login_at", "created_at", "updated_at",
}

// Exporter streams the full user table as CSV without buffering it in memory.
type Exporter struct {
	logger *slog.Logger
	repo   user.UserRepo
}

func NewExporter(repo user.UserRepo, logger *slog.Logger) *Exporter {
	return &Exporter{logger: logger, repo: repo}
}

// WriteCSV writes the header and one record per stored user, in the store's
// stable order, to w.
func (e *Exporter) WriteCSV(ctx context.Context, w io.Writer) error {
	ctx, span := otel.Tracer("Exporter").Start(ctx, "WriteCSV")
	defer span.End()

	l := e.logger.With(slog.String("method", "WriteCSV"))

	cw := csv.NewWriter(w)
	if err := cw.Write(exportColumns); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to write CSV header")
		return fmt.Errorf("writing CSV header: %w", err)
	}

	count := 0
	err := e.repo.StreamUsers(ctx, func(u types.User) error {
		count++
		return cw.Write(exportRecord(u))
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to stream users")
		return fmt.Errorf("streaming users to CSV: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to flush CSV")
		return fmt.Errorf("flushing CSV: %w", err)
	}

	span.SetStatus(codes.Ok, "Export complete")
	metrics.Get().ExportedRecordsTotal.Add(ctx, int64(count))
	l.InfoContext(ctx, "Exported users as CSV", slog.Int("count", count))
	return nil
}

func exportRecord(u types.User) []string {
	return []string{
		u.ID.String(),
		u.Email,
		stringOrEmpty(u.Firstname),
		stringOrEmpty(u.Lastname),
		stringOrEmpty(u.PhoneNumber),
		stringOrEmpty(u.AvatarURL),
		stringOrEmpty(u.Language),
		strconv.FormatBool(u.IsActive),
		strconv.FormatBool(u.IsVerified),
		intOrEmpty(u.CompanyID),
		intOrEmpty(u.RoleID),
		timeOrEmpty(u.LastLoginAt),
		u.CreatedAt.UTC().Format(time.RFC3339),
		u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
