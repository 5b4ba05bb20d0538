package types

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeID represents a UUIDv7 evaluation outcome identifier.
// Time-ordering clusters sequential inserts in B-tree pages.
type OutcomeID string

// RunID represents a UUIDv7 workflow run identifier.
type RunID string

// SnapshotID represents a UUIDv7 context snapshot identifier.
type SnapshotID string

// NewOutcomeID generates a UUIDv7 outcome identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewOutcomeID() OutcomeID {
	return OutcomeID(uuid.Must(uuid.NewV7()).String())
}

// NewRunID generates a UUIDv7 workflow run identifier.
func NewRunID() RunID {
	return RunID(uuid.Must(uuid.NewV7()).String())
}

// NewSnapshotID generates a UUIDv7 context snapshot identifier.
func NewSnapshotID() SnapshotID {
	return SnapshotID(uuid.Must(uuid.NewV7()).String())
}

// ParseOutcomeID validates and converts a string to OutcomeID.
// Rejects malformed UUIDs to keep invalid IDs out of the outcome log.
func ParseOutcomeID(s string) (OutcomeID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return OutcomeID(s), nil
}

// OutcomeIDTime extracts the timestamp embedded in a UUIDv7 outcome ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func OutcomeIDTime(id OutcomeID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
