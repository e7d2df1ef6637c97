// Package cloud is the adapter between the local entity shape (camelCase,
// nested subtasks) and the remote relational shape (snake_case columns,
// rows scoped to an owning user), plus the HTTP calls against the backend.
//
// The adapter owns no state. Mapping is total and lossless for every
// entity field; unknown or missing optional columns map to their zero
// value rather than failing.
package cloud

import (
	"time"

	"github.com/daybook-app/daybook/internal/model"
)

// TaskRow is the remote tasks table shape. Primary key is the task id;
// every row carries the owning user's id.
type TaskRow struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	Text           string          `json:"text"`
	Completed      bool            `json:"completed"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	IsImportant    bool            `json:"is_important"`
	Priority       string          `json:"priority"`
	ImageURL       *string         `json:"image_url,omitempty"`
	DueDate        *string         `json:"due_date,omitempty"`
	Tags           []string        `json:"tags"`
	CreatedAt      time.Time       `json:"created_at"`
	Subtasks       []model.Subtask `json:"subtasks"`
	Notified       *bool           `json:"notified,omitempty"`
	RecurrenceType *string         `json:"recurrence_type,omitempty"`
	ReminderOffset *int            `json:"reminder_offset,omitempty"`
}

// TaskToRow maps a local task to its remote row for ownerID.
func TaskToRow(t *model.Task, ownerID string) *TaskRow {
	row := &TaskRow{
		ID:             t.ID,
		OwnerID:        ownerID,
		Text:           t.Text,
		Completed:      t.Completed,
		CompletedAt:    t.CompletedAt,
		IsImportant:    t.IsImportant,
		Priority:       string(t.Priority),
		Tags:           t.Tags,
		CreatedAt:      t.CreatedAt,
		Subtasks:       t.Subtasks,
		Notified:       t.Notified,
		ReminderOffset: t.ReminderOffset,
	}
	if row.Tags == nil {
		row.Tags = []string{}
	}
	if row.Subtasks == nil {
		row.Subtasks = []model.Subtask{}
	}
	if t.ImageURL != "" {
		row.ImageURL = &t.ImageURL
	}
	if t.DueDate != "" {
		row.DueDate = &t.DueDate
	}
	if t.RecurrenceRule != nil {
		rt := string(t.RecurrenceRule.Type)
		row.RecurrenceType = &rt
	}
	return row
}

// ToTask maps a remote row back to the local shape. Unknown enum values
// fall back to their defaults; the mapping never fails on odd data.
func (r *TaskRow) ToTask() *model.Task {
	t := &model.Task{
		ID:             r.ID,
		Text:           r.Text,
		Completed:      r.Completed,
		CompletedAt:    r.CompletedAt,
		IsImportant:    r.IsImportant,
		Priority:       model.Priority(r.Priority),
		Tags:           r.Tags,
		CreatedAt:      r.CreatedAt,
		Subtasks:       r.Subtasks,
		Notified:       r.Notified,
		ReminderOffset: r.ReminderOffset,
	}
	if !t.Priority.Valid() {
		t.Priority = model.PriorityNone
	}
	if r.ImageURL != nil {
		t.ImageURL = *r.ImageURL
	}
	if r.DueDate != nil {
		t.DueDate = *r.DueDate
	}
	if r.RecurrenceType != nil {
		switch rt := model.RecurrenceType(*r.RecurrenceType); rt {
		case model.RecurDaily, model.RecurWeekly, model.RecurMonthly, model.RecurYearly:
			t.RecurrenceRule = &model.RecurrenceRule{Type: rt}
		}
	}
	// Repair rows whose completion flags drifted apart.
	if t.Completed != (t.CompletedAt != nil) {
		t.Completed = t.CompletedAt != nil
	}
	return t
}

// NoteRow is the remote notes table shape.
type NoteRow struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsPinned  bool      `json:"is_pinned"`
}

// NoteToRow maps a local note to its remote row for ownerID.
func NoteToRow(n *model.Note, ownerID string) *NoteRow {
	return &NoteRow{
		ID:        n.ID,
		OwnerID:   ownerID,
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
		IsPinned:  n.IsPinned,
	}
}

// ToNote maps a remote row back to the local shape.
func (r *NoteRow) ToNote() *model.Note {
	return &model.Note{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		IsPinned:  r.IsPinned,
	}
}

// ProfileRow is the remote profiles table shape. Primary key is the
// owner's user id, unlike the local sentinel key.
type ProfileRow struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Username              string `json:"username"`
	Bio                   string `json:"bio,omitempty"`
	AvatarURL             string `json:"avatar_url,omitempty"`
	BannerURL             string `json:"banner_url,omitempty"`
	VerificationType      string `json:"verification_type,omitempty"`
	Organization          string `json:"organization,omitempty"`
	OrganizationAvatarURL string `json:"organization_avatar_url,omitempty"`
}

// ProfileToRow maps the local profile to its remote row for ownerID.
func ProfileToRow(p *model.UserProfile, ownerID string) *ProfileRow {
	return &ProfileRow{
		ID:                    ownerID,
		Name:                  p.Name,
		Username:              p.Username,
		Bio:                   p.Bio,
		AvatarURL:             p.AvatarURL,
		BannerURL:             p.BannerURL,
		VerificationType:      string(p.VerificationType),
		Organization:          p.Organization,
		OrganizationAvatarURL: p.OrganizationAvatarURL,
	}
}

// ToProfile maps a remote row back to the local shape.
func (r *ProfileRow) ToProfile() *model.UserProfile {
	p := &model.UserProfile{
		Name:                  r.Name,
		Username:              r.Username,
		Bio:                   r.Bio,
		AvatarURL:             r.AvatarURL,
		BannerURL:             r.BannerURL,
		VerificationType:      model.VerificationType(r.VerificationType),
		Organization:          r.Organization,
		OrganizationAvatarURL: r.OrganizationAvatarURL,
	}
	switch p.VerificationType {
	case model.VerificationNone, model.VerificationUser, model.VerificationBusiness:
	default:
		p.VerificationType = model.VerificationNone
	}
	return p
}

// AchievementRow is the remote unlocked_achievements table shape.
type AchievementRow struct {
	OwnerID       string    `json:"owner_id"`
	AchievementID string    `json:"achievement_id"`
	UnlockedAt    time.Time `json:"unlocked_at"`
}

// AchievementToRow maps an unlock record to its remote row for ownerID.
func AchievementToRow(u model.UnlockedAchievement, ownerID string) *AchievementRow {
	return &AchievementRow{
		OwnerID:       ownerID,
		AchievementID: u.AchievementID,
		UnlockedAt:    u.UnlockedAt,
	}
}

// ToAchievement maps a remote row back to the local shape.
func (r *AchievementRow) ToAchievement() model.UnlockedAchievement {
	return model.UnlockedAchievement{
		AchievementID: r.AchievementID,
		UnlockedAt:    r.UnlockedAt,
	}
}
