package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/daybook-app/daybook/internal/model"
)

// Config holds the remote backend settings. An empty BaseURL or APIKey
// means no backend is configured and every call returns ErrNotConfigured.
type Config struct {
	BaseURL string
	APIKey  string

	// HTTPClient overrides the default client (10s timeout). Tests use
	// this to point at an httptest server.
	HTTPClient *http.Client

	Logger *log.Logger
}

// Client talks to the remote backend's REST surface. It is stateless:
// the orchestrator drives it, and every call is scoped to an owner.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *log.Logger
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[cloud] ", log.LstdFlags)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    httpClient,
		logger:  logger,
	}
}

// Configured reports whether a backend is set up. Callers check this
// before any remote work and treat false as "sync disabled".
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

// tableURL builds the endpoint for a table with the owner filter always
// applied. Every query goes through here so no request can ever lack the
// owner scope.
func (c *Client) tableURL(table model.Collection, ownerID string, extra url.Values) string {
	q := url.Values{}
	q.Set(ownerColumn(table), "eq."+ownerID)
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, remoteTable(table), q.Encode())
}

// remoteTable maps a collection to its remote table name.
func remoteTable(table model.Collection) string {
	if table == model.CollectionProfile {
		return "profiles"
	}
	return string(table)
}

// ownerColumn returns the column carrying the owning user id. The
// profiles table is keyed directly by the owner id.
func ownerColumn(table model.Collection) string {
	if table == model.CollectionProfile {
		return "id"
	}
	return "owner_id"
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do executes the request and classifies the response into the adapter's
// error taxonomy. The returned body is nil unless the status was 2xx.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if readErr != nil {
			return nil, fmt.Errorf("%w: read response: %v", ErrRemoteUnavailable, readErr)
		}
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		// Unreachable-or-unauthenticated is retryable; the queue stays
		// intact and the next cycle tries again.
		return nil, fmt.Errorf("%w: status %d", ErrRemoteUnavailable, resp.StatusCode)
	default:
		msg := string(body)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, &RemoteRejectedError{StatusCode: resp.StatusCode, Message: msg}
	}
}

// fetch GETs all rows of a table for ownerID into dst.
func (c *Client) fetch(ctx context.Context, table model.Collection, ownerID string, dst any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	extra := url.Values{}
	extra.Set("select", "*")
	req, err := c.newRequest(ctx, http.MethodGet, c.tableURL(table, ownerID, extra), nil)
	if err != nil {
		return err
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: malformed %s response: %v", ErrRemoteUnavailable, table, err)
	}
	return nil
}

// upsert POSTs rows with merge-duplicates semantics: conflicts on the
// primary key are resolved by overwriting the remote row from the
// payload (last write from the client wins at the row level).
func (c *Client) upsert(ctx context.Context, table model.Collection, ownerID string, rows any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("failed to marshal %s rows: %w", table, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.tableURL(table, ownerID, nil), body)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	_, err = c.do(req)
	return err
}

// deleteRow issues an owner-scoped DELETE for one primary key. Deleting
// a row that is already gone succeeds (the backend reports zero rows
// affected, which is not an error).
func (c *Client) deleteRow(ctx context.Context, table model.Collection, ownerID, keyColumn, key string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	extra := url.Values{}
	extra.Set(keyColumn, "eq."+key)
	req, err := c.newRequest(ctx, http.MethodDelete, c.tableURL(table, ownerID, extra), nil)
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// ---- tasks ----

// FetchTasks returns every task row owned by ownerID, mapped back to the
// local shape.
func (c *Client) FetchTasks(ctx context.Context, ownerID string) ([]*model.Task, error) {
	var rows []*TaskRow
	if err := c.fetch(ctx, model.CollectionTasks, ownerID, &rows); err != nil {
		return nil, err
	}
	tasks := make([]*model.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.ToTask())
	}
	return tasks, nil
}

// UpsertTasks pushes tasks for ownerID in one batched call.
func (c *Client) UpsertTasks(ctx context.Context, ownerID string, tasks []*model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	rows := make([]*TaskRow, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, TaskToRow(t, ownerID))
	}
	return c.upsert(ctx, model.CollectionTasks, ownerID, rows)
}

// DeleteTask removes one task row for ownerID. No-op if already gone.
func (c *Client) DeleteTask(ctx context.Context, ownerID, id string) error {
	return c.deleteRow(ctx, model.CollectionTasks, ownerID, "id", id)
}

// ---- notes ----

// FetchNotes returns every note row owned by ownerID.
func (c *Client) FetchNotes(ctx context.Context, ownerID string) ([]*model.Note, error) {
	var rows []*NoteRow
	if err := c.fetch(ctx, model.CollectionNotes, ownerID, &rows); err != nil {
		return nil, err
	}
	notes := make([]*model.Note, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, row.ToNote())
	}
	return notes, nil
}

// UpsertNotes pushes notes for ownerID in one batched call.
func (c *Client) UpsertNotes(ctx context.Context, ownerID string, notes []*model.Note) error {
	if len(notes) == 0 {
		return nil
	}
	rows := make([]*NoteRow, 0, len(notes))
	for _, n := range notes {
		rows = append(rows, NoteToRow(n, ownerID))
	}
	return c.upsert(ctx, model.CollectionNotes, ownerID, rows)
}

// DeleteNote removes one note row for ownerID. No-op if already gone.
func (c *Client) DeleteNote(ctx context.Context, ownerID, id string) error {
	return c.deleteRow(ctx, model.CollectionNotes, ownerID, "id", id)
}

// ---- profile ----

// FetchProfile returns the owner's profile row, or (nil, nil) when the
// owner has no remote profile yet.
func (c *Client) FetchProfile(ctx context.Context, ownerID string) (*model.UserProfile, error) {
	var rows []*ProfileRow
	if err := c.fetch(ctx, model.CollectionProfile, ownerID, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToProfile(), nil
}

// UpsertProfile pushes the owner's profile row.
func (c *Client) UpsertProfile(ctx context.Context, ownerID string, p *model.UserProfile) error {
	return c.upsert(ctx, model.CollectionProfile, ownerID, []*ProfileRow{ProfileToRow(p, ownerID)})
}

// ---- unlocked achievements ----

// FetchUnlocked returns every achievement unlock owned by ownerID.
func (c *Client) FetchUnlocked(ctx context.Context, ownerID string) ([]model.UnlockedAchievement, error) {
	var rows []*AchievementRow
	if err := c.fetch(ctx, model.CollectionAchievements, ownerID, &rows); err != nil {
		return nil, err
	}
	out := make([]model.UnlockedAchievement, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToAchievement())
	}
	return out, nil
}

// UpsertUnlocked pushes achievement unlocks for ownerID. The collection
// is append-only; there is no delete counterpart.
func (c *Client) UpsertUnlocked(ctx context.Context, ownerID string, unlocks []model.UnlockedAchievement) error {
	if len(unlocks) == 0 {
		return nil
	}
	rows := make([]*AchievementRow, 0, len(unlocks))
	for _, u := range unlocks {
		rows = append(rows, AchievementToRow(u, ownerID))
	}
	return c.upsert(ctx, model.CollectionAchievements, ownerID, rows)
}
