package store

// convert.go translates between the pipeline's plain Go types and pgtype
// values. Empty strings and nil pointers map to NULL so the schema's
// nullable columns stay meaningful.

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// toPgText converts a string to pgtype.Text, NULL for empty input.
func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// fromPgText converts pgtype.Text back to a plain string, NULL reads as "".
func fromPgText(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

// toPgFloat8 converts an optional float to pgtype.Float8.
func toPgFloat8(v *float64) pgtype.Float8 {
	if v == nil {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: *v, Valid: true}
}

// fromPgFloat8 converts pgtype.Float8 back to an optional float.
func fromPgFloat8(f pgtype.Float8) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// toPgUUID parses a string id into pgtype.UUID, NULL for empty or malformed
// input.
func toPgUUID(id string) pgtype.UUID {
	if id == "" {
		return pgtype.UUID{}
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// fromPgUUID formats pgtype.UUID as the canonical string form, NULL reads
// as "".
func fromPgUUID(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// toPgTimestamptz converts an optional time to pgtype.Timestamptz.
func toPgTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// fromPgTimestamptz converts pgtype.Timestamptz back to an optional time.
func fromPgTimestamptz(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
