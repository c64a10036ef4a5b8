package transfer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONRows_Valid(t *testing.T) {
	payload := `[
		{"email": "a@example.com", "firstname": "A"},
		{"email": "b@example.com", "company_id": 3}
	]`

	rows, err := ParseJSONRows(strings.NewReader(payload))

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].Index)
	assert.Equal(t, "a@example.com", rows[0].Fields["email"])
	assert.Equal(t, 1, rows[1].Index)
	assert.NotNil(t, rows[1].Fields["company_id"])
}

func TestParseJSONRows_NotAList(t *testing.T) {
	_, err := ParseJSONRows(strings.NewReader(`{"email": "a@example.com"}`))
	assert.ErrorIs(t, err, ErrNotAList)
}

func TestParseJSONRows_NullPayload(t *testing.T) {
	rows, err := ParseJSONRows(strings.NewReader(`null`))
	assert.ErrorIs(t, err, ErrNotAList)
	assert.Nil(t, rows)
}

func TestParseJSONRows_MalformedPayload(t *testing.T) {
	_, err := ParseJSONRows(strings.NewReader(`[{"email": `))
	assert.Error(t, err)
}

func TestParseJSONRows_NonObjectElement(t *testing.T) {
	rows, err := ParseJSONRows(strings.NewReader(`[{"email": "a@example.com"}, "just a string"]`))

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.NoError(t, rows[0].Err)
	assert.Error(t, rows[1].Err)
	assert.Equal(t, 1, rows[1].Index)
}

func TestParseCSVRows_Valid(t *testing.T) {
	payload := "email,firstname,is_active,company_id\n" +
		"a@example.com,Ann,true,3\n" +
		"b@example.com,Ben,false,\n"

	rows, err := ParseCSVRows(strings.NewReader(payload))

	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "a@example.com", rows[0].Fields["email"])
	assert.Equal(t, true, rows[0].Fields["is_active"])
	assert.Equal(t, 3, rows[0].Fields["company_id"])

	// Empty cells mean "field absent", not "empty value".
	_, present := rows[1].Fields["company_id"]
	assert.False(t, present)
	assert.Equal(t, false, rows[1].Fields["is_active"])
}

func TestParseCSVRows_EmptyPayload(t *testing.T) {
	_, err := ParseCSVRows(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseCSVRows_WrongColumnCount(t *testing.T) {
	payload := "email,firstname\n" +
		"a@example.com,Ann\n" +
		"b@example.com,Ben,extra,cells\n" +
		"c@example.com,Cat\n"

	rows, err := ParseCSVRows(strings.NewReader(payload))

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.NoError(t, rows[0].Err)
	assert.Error(t, rows[1].Err)
	assert.NoError(t, rows[2].Err)
}

func TestParseCSVRows_BadTypedValuePassesThrough(t *testing.T) {
	// A cell that doesn't coerce stays a string so validation can name the
	// field in its report.
	payload := "email,is_active,company_id\n" +
		"a@example.com,maybe,ten\n"

	rows, err := ParseCSVRows(strings.NewReader(payload))

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "maybe", rows[0].Fields["is_active"])
	assert.Equal(t, "ten", rows[0].Fields["company_id"])
}
