package model

import "time"

// ProfileKey is the sentinel key under which the singleton profile row is
// stored locally. Remotely the profile is keyed by the owner's user id.
const ProfileKey = "local-profile"

// VerificationType marks the badge shown next to a profile name.
type VerificationType string

const (
	VerificationNone     VerificationType = "none"
	VerificationUser     VerificationType = "user"
	VerificationBusiness VerificationType = "business"
)

// UserProfile is the singleton profile record, one logical row per install
// (locally) or per authenticated user (remotely).
type UserProfile struct {
	Name                  string           `json:"name"`
	Username              string           `json:"username"`
	Bio                   string           `json:"bio,omitempty"`
	AvatarURL             string           `json:"avatarUrl,omitempty"`
	BannerURL             string           `json:"bannerUrl,omitempty"`
	VerificationType      VerificationType `json:"verificationType"`
	Organization          string           `json:"organization,omitempty"`
	OrganizationAvatarURL string           `json:"organizationAvatarUrl,omitempty"`
}

// UnlockedAchievement records that an achievement fired. Rows are
// append-only: an id unlocks at most once and is never deleted except by
// a full data wipe.
type UnlockedAchievement struct {
	AchievementID string    `json:"achievementId"`
	UnlockedAt    time.Time `json:"unlockedAt"`
}
