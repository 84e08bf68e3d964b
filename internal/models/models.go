package models

import "time"

// User represents an account within the ClipStream platform.
type User struct {
	ID            string
	Username      string
	Email         string
	FullName      string
	Password      string
	AvatarURL     string
	CoverImageURL string
	RefreshToken  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Sanitized returns a copy safe for API responses: the password hash and
// the live refresh token never leave the server.
func (u User) Sanitized() User {
	u.Password = ""
	u.RefreshToken = ""
	return u
}

// Video is a published upload owned by a single user.
type Video struct {
	ID          string
	OwnerID     string
	VideoURL    string
	Thumbnail   string
	Title       string
	Description string
	Duration    float64
	Views       int64
	Published   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnerSummary is the projected slice of a user joined onto catalog results.
type OwnerSummary struct {
	Username      string
	FullName      string
	AvatarURL     string
	CoverImageURL string
}

// CatalogEntry pairs a video with its owner's summary. Owner is nil when the
// owning account no longer exists; the video is still returned.
type CatalogEntry struct {
	Video Video
	Owner *OwnerSummary
}

// Subscription records a subscriber following a channel.
type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// Like records a user liking a video.
type Like struct {
	ID        string
	UserID    string
	VideoID   string
	CreatedAt time.Time
}

// ChannelStats is the per-channel rollup served by the dashboard. It is
// recomputed from the source tables on every request, never persisted.
type ChannelStats struct {
	TotalVideos      int64
	TotalViews       int64
	TotalSubscribers int64
	TotalLikes       int64
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
