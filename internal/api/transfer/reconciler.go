package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-user-registry/app/observability/metrics"
	"github.com/FACorreiaa/go-user-registry/internal/api"
	"github.com/FACorreiaa/go-user-registry/internal/api/user"
	"github.com/FACorreiaa/go-user-registry/internal/types"
)

// Credentials is the subset of the credential manager the reconciler needs.
type Credentials interface {
	HashPassword(password string) (string, error)
}

// Reconciler applies a parsed import batch against the store. Rows are
// processed strictly in input order and independently: a bad row is
// reported and skipped, never aborting the batch.
type Reconciler struct {
	logger      *slog.Logger
	repo        user.UserRepo
	validator   *user.Validator
	merge       *user.MergeEngine
	credentials Credentials
}

func NewReconciler(repo user.UserRepo, credentials Credentials, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		logger:      logger,
		repo:        repo,
		validator:   user.NewValidator(),
		merge:       user.NewMergeEngine(),
		credentials: credentials,
	}
}

// ProcessBatch runs every row of an import against the store and returns a
// per-row report in input order. Rows earlier in the batch are visible to
// later ones, so a duplicated email inside one file creates once and then
// updates that same record.
func (rc *Reconciler) ProcessBatch(ctx context.Context, rows []Row) types.ImportReport {
	ctx, span := otel.Tracer("Reconciler").Start(ctx, "ProcessBatch")
	defer span.End()

	l := rc.logger.With(slog.String("method", "ProcessBatch"), slog.Int("rows", len(rows)))
	l.DebugContext(ctx, "Processing import batch")

	report := types.ImportReport{Rows: make([]types.ImportRowResult, 0, len(rows))}
	// Email of records already created or updated by this batch, so a later
	// row with the same email targets the same record.
	applied := make(map[string]uuid.UUID)

	m := metrics.Get()
	m.ImportBatchesTotal.Add(ctx, 1)

	for _, row := range rows {
		result := rc.processRow(ctx, row, applied)
		m.ImportRowsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", result.Status)))
		switch result.Status {
		case types.ImportStatusCreated:
			report.Created++
		case types.ImportStatusUpdated:
			report.Updated++
		case types.ImportStatusRejected:
			report.Rejected++
		}
		report.Rows = append(report.Rows, result)
	}

	span.SetAttributes(
		attribute.Int("import.created", report.Created),
		attribute.Int("import.updated", report.Updated),
		attribute.Int("import.rejected", report.Rejected),
	)
	span.SetStatus(codes.Ok, "Batch processed")
	l.InfoContext(ctx, "Import batch processed",
		slog.Int("created", report.Created),
		slog.Int("updated", report.Updated),
		slog.Int("rejected", report.Rejected))
	return report
}

func (rc *Reconciler) processRow(ctx context.Context, row Row, applied map[string]uuid.UUID) types.ImportRowResult {
	if row.Err != nil {
		return rejected(row.Index, row.Err.Error())
	}

	params, err := rc.validator.Validate(row.Fields, user.ModeImport)
	if err != nil {
		if verr, ok := api.AsValidationError(err); ok {
			return rejected(row.Index, verr.Error())
		}
		return rejected(row.Index, err.Error())
	}

	existing, err := rc.findTarget(ctx, params, applied)
	if err != nil {
		rc.logger.ErrorContext(ctx, "Import row lookup failed", slog.Any("error", err), slog.Int("row", row.Index))
		return rejected(row.Index, "could not resolve target record")
	}

	if err := rc.hashIntoParams(params); err != nil {
		rc.logger.ErrorContext(ctx, "Import row password hashing failed", slog.Any("error", err), slog.Int("row", row.Index))
		return rejected(row.Index, "could not process password")
	}

	if existing != nil {
		return rc.updateExisting(ctx, row.Index, *existing, *params, applied)
	}
	return rc.createNew(ctx, row.Index, *params, applied)
}

// findTarget resolves the record a row addresses: by id when the row
// carries one, otherwise by email, consulting records touched earlier in
// this batch before the store. A nil result with nil error means the row
// creates a new record.
func (rc *Reconciler) findTarget(ctx context.Context, params *types.UserParams, applied map[string]uuid.UUID) (*types.User, error) {
	if params.ID != nil {
		existing, err := rc.repo.GetUserByID(ctx, *params.ID)
		if err != nil {
			if errors.Is(err, api.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return existing, nil
	}

	if params.Email == nil {
		return nil, nil
	}

	if id, ok := applied[*params.Email]; ok {
		return rc.repo.GetUserByID(ctx, id)
	}
	existing, err := rc.repo.GetUserByEmail(ctx, *params.Email)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return existing, nil
}

func (rc *Reconciler) updateExisting(ctx context.Context, index int, existing types.User, params types.UserParams, applied map[string]uuid.UUID) types.ImportRowResult {
	merged := rc.merge.Patch(existing, params)
	saved, err := rc.repo.UpdateUser(ctx, merged)
	if err != nil {
		if errors.Is(err, api.ErrConflict) {
			return rejected(index, fmt.Sprintf("email %q already belongs to another user", merged.Email))
		}
		rc.logger.ErrorContext(ctx, "Import row update failed", slog.Any("error", err), slog.Int("row", index))
		return rejected(index, "could not update record")
	}
	// A rename frees the old address: a later row with it starts fresh
	// instead of patching this record.
	if existing.Email != saved.Email {
		delete(applied, existing.Email)
	}
	applied[saved.Email] = saved.ID
	return types.ImportRowResult{RowIndex: index, Status: types.ImportStatusUpdated}
}

func (rc *Reconciler) createNew(ctx context.Context, index int, params types.UserParams, applied map[string]uuid.UUID) types.ImportRowResult {
	if params.Email == nil {
		// A row that carried only an id which matched nothing in the store.
		return rejected(index, "no record matches the given id")
	}

	now := time.Now().UTC()
	newUser := types.User{
		ID:          uuid.New(),
		Email:       *params.Email,
		Firstname:   params.Firstname,
		Lastname:    params.Lastname,
		PhoneNumber: params.PhoneNumber,
		AvatarURL:   params.AvatarURL,
		Language:    params.Language,
		CompanyID:   params.CompanyID,
		RoleID:      params.RoleID,
		LastLoginAt: params.LastLoginAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if params.ID != nil {
		newUser.ID = *params.ID
	}
	if params.PasswordHash != nil {
		newUser.PasswordHash = *params.PasswordHash
	}
	if params.IsActive != nil {
		newUser.IsActive = *params.IsActive
	}
	if params.IsVerified != nil {
		newUser.IsVerified = *params.IsVerified
	}

	saved, err := rc.repo.CreateUser(ctx, newUser)
	if err != nil {
		if errors.Is(err, api.ErrConflict) {
			return rejected(index, fmt.Sprintf("email %q already exists", newUser.Email))
		}
		rc.logger.ErrorContext(ctx, "Import row create failed", slog.Any("error", err), slog.Int("row", index))
		return rejected(index, "could not create record")
	}
	applied[saved.Email] = saved.ID
	return types.ImportRowResult{RowIndex: index, Status: types.ImportStatusCreated}
}

// hashIntoParams replaces a plaintext password with its hash. A row that
// already carries a password_hash keeps it verbatim.
func (rc *Reconciler) hashIntoParams(params *types.UserParams) error {
	if params.Password == nil {
		return nil
	}
	hash, err := rc.credentials.HashPassword(*params.Password)
	if err != nil {
		return err
	}
	params.Password = nil
	params.PasswordHash = &hash
	return nil
}

func rejected(index int, reason string) types.ImportRowResult {
	return types.ImportRowResult{RowIndex: index, Status: types.ImportStatusRejected, Reason: reason}
}
