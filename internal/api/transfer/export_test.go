package transfer

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-user-registry/internal/types"
)

func TestWriteCSV_HeaderOnlyWhenEmpty(t *testing.T) {
	exporter := NewExporter(newMemoryRepo(), testLogger())

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteCSV(context.Background(), &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, exportColumns, records[0])
}

func TestWriteCSV_RecordShape(t *testing.T) {
	repo := newMemoryRepo()
	lastLogin := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	companyID := 7
	u := types.User{
		ID:           uuid.New(),
		Email:        "jane@example.com",
		PasswordHash: "$2a$10$secret",
		Firstname:    strPtr("Jane"),
		Language:     strPtr("pt"),
		IsActive:     true,
		CompanyID:    &companyID,
		LastLoginAt:  &lastLogin,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	repo.users[u.ID] = u

	exporter := NewExporter(repo, testLogger())
	var buf bytes.Buffer
	require.NoError(t, exporter.WriteCSV(context.Background(), &buf))

	// The hash never appears in an export.
	assert.NotContains(t, buf.String(), "$2a$10$secret")

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	record := records[1]
	assert.Equal(t, u.ID.String(), record[0])
	assert.Equal(t, "jane@example.com", record[1])
	assert.Equal(t, "Jane", record[2])
	assert.Equal(t, "", record[3], "nil lastname renders empty")
	assert.Equal(t, "pt", record[6])
	assert.Equal(t, "true", record[7])
	assert.Equal(t, "false", record[8])
	assert.Equal(t, "7", record[9])
	assert.Equal(t, "", record[10], "nil role_id renders empty")
	assert.Equal(t, "2024-06-01T10:30:00Z", record[11])
	assert.Equal(t, "2024-01-01T00:00:00Z", record[12])
}

func TestWriteCSV_StableOrder(t *testing.T) {
	repo := newMemoryRepo()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"first@x.com", "second@x.com", "third@x.com"} {
		u := types.User{
			ID:        uuid.New(),
			Email:     email,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		repo.users[u.ID] = u
	}

	exporter := NewExporter(repo, testLogger())
	var buf bytes.Buffer
	require.NoError(t, exporter.WriteCSV(context.Background(), &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "first@x.com", records[1][1])
	assert.Equal(t, "second@x.com", records[2][1])
	assert.Equal(t, "third@x.com", records[3][1])
}

// Exported CSV must be loadable back through the import path without losing
// records or credentials.
func TestExportImportRoundTrip(t *testing.T) {
	source := newMemoryRepo()
	lastLogin := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	u := types.User{
		ID:          uuid.New(),
		Email:       "jane@example.com",
		Firstname:   strPtr("Jane"),
		IsVerified:  true,
		LastLoginAt: &lastLogin,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	source.users[u.ID] = u

	var buf bytes.Buffer
	require.NoError(t, NewExporter(source, testLogger()).WriteCSV(context.Background(), &buf))

	rows, err := ParseCSVRows(&buf)
	require.NoError(t, err)

	target := newMemoryRepo()
	report := newTestReconciler(target).ProcessBatch(context.Background(), rows)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Rejected)

	imported, ok := target.users[u.ID]
	require.True(t, ok, "id survives the round trip")
	assert.Equal(t, u.Email, imported.Email)
	assert.Equal(t, "Jane", *imported.Firstname)
	assert.True(t, imported.IsVerified)
	require.NotNil(t, imported.LastLoginAt)
	assert.True(t, lastLogin.Equal(*imported.LastLoginAt))
}
