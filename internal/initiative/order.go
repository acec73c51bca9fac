// Package initiative implements the combat turn order: a pure state machine
// over initiative entries with round-robin turn advancement. It holds no
// session or storage concerns; callers persist the order wholesale.
package initiative

import (
	"sort"

	"github.com/KirkDiggler/vtt-api/internal/entities"
)

// Order is a session's turn order. Entries are kept sorted descending by
// score; ties keep insertion order (stable sort), so the order is
// deterministic for callers even though the rules don't mandate a tie-break.
// At most one entry is active at a time.
//
// All operations are total: unknown ids are no-ops rather than errors, which
// favors idempotent retries from an unreliable network client.
type Order struct {
	entries []entities.InitiativeEntry
}

// New builds an order from existing entries, restoring the sorted view and
// the single-active invariant (the first active entry wins).
func New(entries []entities.InitiativeEntry) *Order {
	o := &Order{entries: make([]entities.InitiativeEntry, len(entries))}
	copy(o.entries, entries)
	o.sort()

	seenActive := false
	for i := range o.entries {
		if o.entries[i].IsActive {
			if seenActive {
				o.entries[i].IsActive = false
			}
			seenActive = true
		}
	}
	return o
}

// Len returns the number of entries
func (o *Order) Len() int {
	return len(o.entries)
}

// Entries returns a copy of the sorted order
func (o *Order) Entries() []entities.InitiativeEntry {
	out := make([]entities.InitiativeEntry, len(o.entries))
	copy(out, o.entries)
	return out
}

// Active returns the entry whose turn it is, if any
func (o *Order) Active() (entities.InitiativeEntry, bool) {
	for _, e := range o.entries {
		if e.IsActive {
			return e, true
		}
	}
	return entities.InitiativeEntry{}, false
}

// Add inserts an entry and re-sorts the order
func (o *Order) Add(entry entities.InitiativeEntry) {
	o.entries = append(o.entries, entry)
	o.sort()
}

// Remove deletes the entry with the given id. When the removed entry was
// active no successor is promoted; the next AdvanceTurn call decides.
func (o *Order) Remove(id string) {
	for i := range o.entries {
		if o.entries[i].ID == id {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return
		}
	}
}

// AdvanceTurn moves the active flag to the next entry, wrapping from last to
// first. When nothing is active yet the first entry becomes active. The
// return value reports wraparound, which callers use to count rounds; the
// order itself does not track rounds.
func (o *Order) AdvanceTurn() (wrapped bool) {
	if len(o.entries) == 0 {
		return false
	}

	current := -1
	for i := range o.entries {
		if o.entries[i].IsActive {
			current = i
			break
		}
	}

	if current < 0 {
		o.entries[0].IsActive = true
		return false
	}

	next := (current + 1) % len(o.entries)
	o.entries[current].IsActive = false
	o.entries[next].IsActive = true
	return next == 0 && current == len(o.entries)-1
}

// Update applies a mutation to the entry with the given id, then re-sorts in
// case the score changed. Unknown ids are ignored.
func (o *Order) Update(id string, mutate func(*entities.InitiativeEntry)) {
	for i := range o.entries {
		if o.entries[i].ID == id {
			mutate(&o.entries[i])
			o.sort()
			return
		}
	}
}

// UpdateHitPoints replaces the entry's hit-point record wholesale. Current is
// not clamped to [0, max]: negative values and temporary HP above max are
// both meaningful to the presentation layer.
func (o *Order) UpdateHitPoints(id string, hp *entities.HitPoints) {
	o.Update(id, func(e *entities.InitiativeEntry) {
		e.HitPoints = hp
	})
}

// SetConditions replaces the entry's condition labels
func (o *Order) SetConditions(id string, conditions []string) {
	o.Update(id, func(e *entities.InitiativeEntry) {
		e.Conditions = conditions
	})
}

// Reset empties the order
func (o *Order) Reset() {
	o.entries = nil
}

func (o *Order) sort() {
	sort.SliceStable(o.entries, func(i, j int) bool {
		return o.entries[i].Score > o.entries[j].Score
	})
}
