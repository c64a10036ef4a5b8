package transfer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Row is one already-parsed import row. A non-nil Err marks a row whose
// structure could not be parsed at all; it is reported as rejected but
// never stops the rows after it.
type Row struct {
	Index  int
	Fields map[string]any
	Err    error
}

// ErrNotAList is returned when a JSON import payload is not a top-level array.
var ErrNotAList = errors.New("JSON must be a list of user objects")

// ParseJSONRows decodes a JSON array of objects into rows. A malformed
// element becomes a Row with Err set; a payload that is not an array at all
// fails wholesale.
func ParseJSONRows(r io.Reader) ([]Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw []json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotAList
		}
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	// A "null" payload decodes into a nil slice without error; it is not a
	// list either.
	if raw == nil {
		return nil, ErrNotAList
	}

	rows := make([]Row, 0, len(raw))
	for i, elem := range raw {
		fields := make(map[string]any)
		elemDec := json.NewDecoder(bytes.NewReader(elem))
		elemDec.UseNumber()
		if err := elemDec.Decode(&fields); err != nil {
			rows = append(rows, Row{Index: i, Err: fmt.Errorf("row is not a JSON object: %w", err)})
			continue
		}
		rows = append(rows, Row{Index: i, Fields: fields})
	}
	return rows, nil
}

// ParseCSVRows decodes a CSV payload with a header line into rows. Values of
// boolean and integer columns are coerced so the validator sees typed
// values; empty cells mean "field absent". A record with the wrong column
// count becomes a Row with Err set.
func ParseCSVRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("CSV payload is empty")
		}
		return nil, fmt.Errorf("invalid CSV header: %w", err)
	}

	var rows []Row
	for i := 0; ; i++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rows = append(rows, Row{Index: i, Err: fmt.Errorf("malformed CSV record: %w", err)})
			continue
		}

		fields := make(map[string]any, len(header))
		for col, name := range header {
			if col >= len(record) || record[col] == "" {
				continue
			}
			fields[name] = coerceCSVValue(name, record[col])
		}
		rows = append(rows, Row{Index: i, Fields: fields})
	}
	return rows, nil
}

// coerceCSVValue turns CSV cell text into the type the validator expects
// for that column. Values that don't parse are passed through as strings so
// the validator can report the field properly.
func coerceCSVValue(name, value string) any {
	switch name {
	case "is_active", "is_verified":
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	case "company_id", "role_id":
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return value
}
