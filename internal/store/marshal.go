package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/steprun/internal/outcome"
)

// timeLayout is used for every TEXT timestamp column.
const timeLayout = time.RFC3339Nano

// outcomeColumns is the nullable column form of an outcome.
type outcomeColumns struct {
	status   sql.NullString
	err      sql.NullString
	duration sql.NullInt64
}

// marshalOutcome converts an outcome to its columns.
// Fails for an invalid status rather than storing a code nobody can read back.
func marshalOutcome(o outcome.Outcome) (outcomeColumns, error) {
	code, err := o.Status().MarshalText()
	if err != nil {
		return outcomeColumns{}, fmt.Errorf("marshal outcome: %w", err)
	}

	cols := outcomeColumns{status: sql.NullString{String: string(code), Valid: true}}
	if o.Err() != nil {
		cols.err = sql.NullString{String: o.Err().Error(), Valid: true}
	}
	if d, ok := o.Duration(); ok {
		cols.duration = sql.NullInt64{Int64: d.Nanoseconds(), Valid: true}
	}
	return cols, nil
}

// unmarshalStatus parses a stored status code.
// NULL (a started event) returns 0. Unknown codes are an error.
func unmarshalStatus(code sql.NullString) (outcome.Status, error) {
	if !code.Valid {
		return 0, nil
	}
	status, err := outcome.ParseStatus(code.String)
	if err != nil {
		return 0, fmt.Errorf("unmarshal status: %w", err)
	}
	return status, nil
}

func marshalTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func unmarshalTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unmarshal time %q: %w", s, err)
	}
	return t, nil
}
