package runner

import "github.com/google/uuid"

// IDGenerator hands out case identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 case IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so IDs of cases
// built later sort later. Stored events can be grouped by case without
// an extra ordering column.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
