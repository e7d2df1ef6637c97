package achievements

import "testing"

func TestEvaluate_FiresOnceInRegistryOrder(t *testing.T) {
	stats := Stats{CompletedTasks: 12, TotalNotes: 1}

	fired := Evaluate(stats, map[string]bool{})
	want := []string{"first-task", "ten-tasks", "first-note"}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Errorf("fired[%d] = %q, want %q", i, fired[i], want[i])
		}
	}

	// Already-unlocked ids never fire again.
	unlocked := map[string]bool{}
	for _, id := range fired {
		unlocked[id] = true
	}
	if again := Evaluate(stats, unlocked); len(again) != 0 {
		t.Errorf("second evaluation fired %v, want none", again)
	}
}

func TestEvaluate_NothingOnZeroStats(t *testing.T) {
	if fired := Evaluate(Stats{}, map[string]bool{}); len(fired) != 0 {
		t.Errorf("zero stats fired %v", fired)
	}
}

func TestRegistry_UniqueIDs(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range Registry {
		if seen[a.ID] {
			t.Errorf("duplicate achievement id %q", a.ID)
		}
		seen[a.ID] = true
		if a.Check == nil {
			t.Errorf("achievement %q has no predicate", a.ID)
		}
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup("profile-set"); !ok {
		t.Error("known id not found")
	}
	if _, ok := Lookup("nope"); ok {
		t.Error("unknown id found")
	}
}
