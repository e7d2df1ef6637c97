package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/daybook-app/daybook/internal/model"
)

// fakeBackend is a minimal stand-in for the remote REST surface. It
// keeps task rows for multiple owners and honors the owner_id filter.
type fakeBackend struct {
	tasks    map[string][]*TaskRow // ownerID -> rows
	requests []string              // method + path+query, for scoping assertions
}

func (f *fakeBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests = append(f.requests, r.Method+" "+r.URL.String())

		owner := ownerFromFilter(r.URL.Query().Get("owner_id"))
		if owner == "" {
			// A request without the owner filter is a contract violation;
			// fail loudly so tests catch it.
			http.Error(w, "missing owner filter", http.StatusBadRequest)
			return
		}

		switch r.Method {
		case http.MethodGet:
			rows := f.tasks[owner]
			if rows == nil {
				rows = []*TaskRow{}
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(rows)
		case http.MethodPost:
			var rows []*TaskRow
			if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			for _, row := range rows {
				f.upsertRow(owner, row)
			}
			w.WriteHeader(http.StatusCreated)
		case http.MethodDelete:
			id := ownerFromFilter(r.URL.Query().Get("id"))
			kept := f.tasks[owner][:0]
			for _, row := range f.tasks[owner] {
				if row.ID != id {
					kept = append(kept, row)
				}
			}
			f.tasks[owner] = kept
			// Deleting an absent row still succeeds.
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func (f *fakeBackend) upsertRow(owner string, row *TaskRow) {
	for i, existing := range f.tasks[owner] {
		if existing.ID == row.ID {
			f.tasks[owner][i] = row
			return
		}
	}
	f.tasks[owner] = append(f.tasks[owner], row)
}

func ownerFromFilter(v string) string {
	return strings.TrimPrefix(v, "eq.")
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := New(Config{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		HTTPClient: srv.Client(),
	})
	return client, srv
}

func taskRowFixture(owner, id, text string) *TaskRow {
	return &TaskRow{
		ID:        id,
		OwnerID:   owner,
		Text:      text,
		Priority:  "none",
		Tags:      []string{},
		Subtasks:  []model.Subtask{},
		CreatedAt: time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestFetchTasks_ScopedToOwner(t *testing.T) {
	backend := &fakeBackend{tasks: map[string][]*TaskRow{
		"alice": {taskRowFixture("alice", "a-1", "alice task")},
		"bob": {
			taskRowFixture("bob", "b-1", "bob task"),
			taskRowFixture("bob", "b-2", "another bob task"),
		},
	}}
	client, _ := newTestClient(t, backend.handler())

	tasks, err := client.FetchTasks(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FetchTasks() failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if tasks[0].ID != "a-1" {
		t.Errorf("fetched someone else's task: %+v", tasks[0])
	}

	// Every request carried the owner filter.
	for _, req := range backend.requests {
		if !strings.Contains(req, "owner_id=eq.alice") {
			t.Errorf("request lacked owner scope: %s", req)
		}
	}
}

func TestUpsertTasks_RoundTrip(t *testing.T) {
	backend := &fakeBackend{tasks: map[string][]*TaskRow{}}
	client, _ := newTestClient(t, backend.handler())
	ctx := context.Background()

	notified := true
	offset := 30
	task := &model.Task{
		ID:             "t-1",
		Text:           "review pull request",
		IsImportant:    true,
		Priority:       model.PriorityHigh,
		ImageURL:       "https://example.com/img.png",
		DueDate:        "2024-04-02",
		Tags:           []string{"code"},
		CreatedAt:      time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC),
		Subtasks:       []model.Subtask{{ID: "s-1", Text: "read diff", Completed: true}},
		Notified:       &notified,
		RecurrenceRule: &model.RecurrenceRule{Type: model.RecurWeekly},
		ReminderOffset: &offset,
	}
	task.SetCompleted(true, time.Date(2024, 4, 1, 18, 0, 0, 0, time.UTC))

	if err := client.UpsertTasks(ctx, "alice", []*model.Task{task}); err != nil {
		t.Fatalf("UpsertTasks() failed: %v", err)
	}

	got, err := client.FetchTasks(ctx, "alice")
	if err != nil {
		t.Fatalf("FetchTasks() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d tasks, want 1", len(got))
	}

	round := got[0]
	if round.Text != task.Text || round.Priority != task.Priority ||
		round.ImageURL != task.ImageURL || round.DueDate != task.DueDate {
		t.Errorf("scalar fields lost: %+v", round)
	}
	if round.CompletedAt == nil || !round.CompletedAt.Equal(*task.CompletedAt) {
		t.Errorf("completedAt lost: %v", round.CompletedAt)
	}
	if round.RecurrenceRule == nil || round.RecurrenceRule.Type != model.RecurWeekly {
		t.Errorf("recurrence lost: %+v", round.RecurrenceRule)
	}
	if round.Notified == nil || !*round.Notified {
		t.Error("notified lost")
	}
	if round.ReminderOffset == nil || *round.ReminderOffset != 30 {
		t.Error("reminderOffset lost")
	}
	if len(round.Subtasks) != 1 || !round.Subtasks[0].Completed {
		t.Errorf("subtasks lost: %+v", round.Subtasks)
	}
}

func TestUpsert_ConflictOverwrites(t *testing.T) {
	backend := &fakeBackend{tasks: map[string][]*TaskRow{
		"alice": {taskRowFixture("alice", "t-1", "old text")},
	}}
	client, _ := newTestClient(t, backend.handler())
	ctx := context.Background()

	task := &model.Task{
		ID: "t-1", Text: "new text",
		Priority: model.PriorityNone, CreatedAt: time.Now().UTC(),
	}
	if err := client.UpsertTasks(ctx, "alice", []*model.Task{task}); err != nil {
		t.Fatalf("UpsertTasks() failed: %v", err)
	}

	got, err := client.FetchTasks(ctx, "alice")
	if err != nil {
		t.Fatalf("FetchTasks() failed: %v", err)
	}
	if len(got) != 1 || got[0].Text != "new text" {
		t.Errorf("conflict not resolved by overwrite: %+v", got)
	}
}

func TestDeleteTask_IdempotentRemotely(t *testing.T) {
	backend := &fakeBackend{tasks: map[string][]*TaskRow{
		"alice": {taskRowFixture("alice", "t-1", "doomed")},
	}}
	client, _ := newTestClient(t, backend.handler())
	ctx := context.Background()

	if err := client.DeleteTask(ctx, "alice", "t-1"); err != nil {
		t.Fatalf("DeleteTask() failed: %v", err)
	}
	// Already gone: still not an error.
	if err := client.DeleteTask(ctx, "alice", "t-1"); err != nil {
		t.Errorf("deleting an absent row should succeed, got %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantRetry  bool
		wantReject bool
	}{
		{"server error", http.StatusInternalServerError, true, false},
		{"bad gateway", http.StatusBadGateway, true, false},
		{"unauthorized", http.StatusUnauthorized, true, false},
		{"rate limited", http.StatusTooManyRequests, true, false},
		{"validation failure", http.StatusUnprocessableEntity, false, true},
		{"conflict", http.StatusConflict, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(
				func(w http.ResponseWriter, r *http.Request) {
					http.Error(w, "nope", tt.status)
				}))

			_, err := client.FetchTasks(context.Background(), "alice")
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.Is(err, ErrRemoteUnavailable); got != tt.wantRetry {
				t.Errorf("errors.Is(RemoteUnavailable) = %v, want %v (err: %v)", got, tt.wantRetry, err)
			}
			var rejected *RemoteRejectedError
			if got := errors.As(err, &rejected); got != tt.wantReject {
				t.Errorf("errors.As(RemoteRejected) = %v, want %v (err: %v)", got, tt.wantReject, err)
			}
		})
	}
}

func TestUnreachableBackend(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	client := New(Config{BaseURL: srv.URL, APIKey: "k"})

	_, err := client.FetchTasks(context.Background(), "alice")
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Errorf("unreachable backend should map to RemoteUnavailable, got %v", err)
	}
}

func TestNotConfigured(t *testing.T) {
	var nilClient *Client
	if nilClient.Configured() {
		t.Error("nil client must report unconfigured")
	}

	client := New(Config{})
	if client.Configured() {
		t.Error("empty config must report unconfigured")
	}

	_, err := client.FetchTasks(context.Background(), "alice")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("fetch on unconfigured client = %v, want ErrNotConfigured", err)
	}
	err = client.UpsertTasks(context.Background(), "alice",
		[]*model.Task{{ID: "t", Text: "x", Priority: model.PriorityNone, CreatedAt: time.Now()}})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("upsert on unconfigured client = %v, want ErrNotConfigured", err)
	}
}

func TestTaskRow_ToTask_TotalMapping(t *testing.T) {
	// Odd remote data must map to defaults, never fail.
	badPriority := "urgent"
	badRecurrence := "fortnightly"
	row := &TaskRow{
		ID:             "t-1",
		Text:           "weird row",
		Priority:       badPriority,
		RecurrenceType: &badRecurrence,
		CreatedAt:      time.Now().UTC(),
	}

	task := row.ToTask()
	if task.Priority != model.PriorityNone {
		t.Errorf("priority = %q, want none", task.Priority)
	}
	if task.RecurrenceRule != nil {
		t.Errorf("unknown recurrence should map to nil, got %+v", task.RecurrenceRule)
	}
}

func TestProfileRow_OwnerKeyed(t *testing.T) {
	p := &model.UserProfile{Name: "Ada", Username: "ada", VerificationType: model.VerificationUser}
	row := ProfileToRow(p, "owner-7")
	if row.ID != "owner-7" {
		t.Errorf("profile row id = %q, want owner id", row.ID)
	}

	back := row.ToProfile()
	if back.Name != "Ada" || back.VerificationType != model.VerificationUser {
		t.Errorf("profile round trip lost fields: %+v", back)
	}
}
