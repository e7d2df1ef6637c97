// Package achievements holds the fixed achievement table: an enumeration
// of achievement ids, each paired with a pure predicate over aggregate
// usage stats. Evaluation is stateless; the caller owns the record of
// which ids already unlocked.
package achievements

// Stats is the aggregate snapshot predicates are evaluated against.
type Stats struct {
	TotalTasks            int
	CompletedTasks        int
	HighPriorityCompleted int
	DistinctTags          int
	TotalNotes            int
	PinnedNotes           int
	HasProfile            bool
}

// Achievement pairs an id with its unlock condition.
type Achievement struct {
	ID    string
	Title string
	Check func(Stats) bool
}

// Registry is the full achievement table in evaluation order. Append
// only: ids are persisted and must never be renamed or removed.
var Registry = []Achievement{
	{"first-task", "Getting Started", func(s Stats) bool { return s.CompletedTasks >= 1 }},
	{"ten-tasks", "Momentum", func(s Stats) bool { return s.CompletedTasks >= 10 }},
	{"hundred-tasks", "Centurion", func(s Stats) bool { return s.CompletedTasks >= 100 }},
	{"priority-five", "Firefighter", func(s Stats) bool { return s.HighPriorityCompleted >= 5 }},
	{"tag-collector", "Organizer", func(s Stats) bool { return s.DistinctTags >= 5 }},
	{"first-note", "Note Taker", func(s Stats) bool { return s.TotalNotes >= 1 }},
	{"note-hoarder", "Archivist", func(s Stats) bool { return s.TotalNotes >= 25 }},
	{"pinned-note", "Sticky", func(s Stats) bool { return s.PinnedNotes >= 1 }},
	{"profile-set", "Identity", func(s Stats) bool { return s.HasProfile }},
}

// Evaluate returns the ids that unlock under stats and are not already
// in unlocked, in registry order.
func Evaluate(stats Stats, unlocked map[string]bool) []string {
	var fired []string
	for _, a := range Registry {
		if unlocked[a.ID] {
			continue
		}
		if a.Check(stats) {
			fired = append(fired, a.ID)
		}
	}
	return fired
}

// Lookup returns the achievement for id, or false when unknown.
func Lookup(id string) (Achievement, bool) {
	for _, a := range Registry {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}
