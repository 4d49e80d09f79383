package collision

import (
	"github.com/arloliu/otukit/errs"
	"github.com/arloliu/otukit/internal/hash"
)

// Tracker records identifiers along one table axis (samples or taxa) and
// rejects duplicates. Identifiers are keyed by their xxHash64; distinct
// identifiers that share a hash are kept in an overflow set so that a hash
// collision is never mistaken for a duplicate.
type Tracker struct {
	ids      map[uint64]string   // hash → first identifier seen
	overflow map[string]struct{} // identifiers whose hash was already taken
}

// NewTracker creates a tracker sized for n identifiers.
func NewTracker(n int) *Tracker {
	return &Tracker{ids: make(map[uint64]string, n)}
}

// Track records id. It returns errs.ErrEmptyID for a blank identifier and
// errs.ErrDuplicateID when id was tracked before.
func (t *Tracker) Track(id string) error {
	return t.TrackHashed(id, hash.ID(id))
}

// TrackHashed is Track with a precomputed hash.
func (t *Tracker) TrackHashed(id string, h uint64) error {
	if id == "" {
		return errs.ErrEmptyID
	}

	if existing, exists := t.ids[h]; exists {
		if existing == id {
			return errs.ErrDuplicateID
		}

		if t.overflow == nil {
			t.overflow = make(map[string]struct{})
		}
		if _, dup := t.overflow[id]; dup {
			return errs.ErrDuplicateID
		}
		t.overflow[id] = struct{}{}

		return nil
	}

	t.ids[h] = id

	return nil
}
