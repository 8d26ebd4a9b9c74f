package store

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator assigns IDs to runs recorded without one.
type IDGenerator interface {
	Generate() string
}

// RandomIDs issues random (version 4) UUIDs. Their leading characters
// differ between runs, so short ID prefixes stay unique; run order comes
// from seq, not from the ID.
type RandomIDs struct{}

// Generate returns a new UUID string.
func (RandomIDs) Generate() string {
	return uuid.NewString()
}

// Option configures a Store opened with Open.
type Option func(*Store)

// WithClock sets the wall clock stamped on recorded runs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the generator for run IDs.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}
