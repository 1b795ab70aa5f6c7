package app

import (
	"sort"

	"impact_chat/internal/chat/domain"
)

// Timeline displayed entries of the active room plus the live entries
// accepted since the last switch and not yet folded into a history load.
type Timeline struct {
	entries []domain.Entry
	pending []domain.Entry
}

// NewTimeline create an empty Timeline
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Reset empty everything (room switch)
func (t *Timeline) Reset() {
	t.entries = nil
	t.pending = nil
}

// AppendLive append in arrival order
func (t *Timeline) AppendLive(e domain.Entry) {
	t.entries = append(t.entries, e)
	t.pending = append(t.pending, e)
}

// Replace fold history and pending live entries into one sequence.
// A key present on both sides is kept once, as the history copy. A pending
// entry without an id also matches a history entry by its fallback key.
// The result is stably ordered by created_at, history first on ties.
func (t *Timeline) Replace(history []domain.Entry) []domain.Entry {
	seen := make(map[domain.DedupKey]struct{}, len(history)+len(t.pending))
	// fallback key -> the history copy carried an id
	fallbacks := make(map[domain.DedupKey]bool, len(history))
	merged := make([]domain.Entry, 0, len(history)+len(t.pending))

	for _, e := range history {
		if _, ok := seen[e.Key()]; ok {
			continue
		}
		seen[e.Key()] = struct{}{}
		fallbacks[e.FallbackKey()] = e.HasID()
		merged = append(merged, e)
	}
	for _, e := range t.pending {
		if _, ok := seen[e.Key()]; ok {
			continue
		}
		if withID, ok := fallbacks[e.FallbackKey()]; ok && (!e.HasID() || !withID) {
			continue
		}
		seen[e.Key()] = struct{}{}
		merged = append(merged, e)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt().Before(merged[j].CreatedAt())
	})

	t.entries = merged
	t.pending = nil
	return append([]domain.Entry(nil), merged...)
}

// Entries copy of the displayed sequence
func (t *Timeline) Entries() []domain.Entry {
	return append([]domain.Entry(nil), t.entries...)
}

// Len displayed entries
func (t *Timeline) Len() int {
	return len(t.entries)
}
