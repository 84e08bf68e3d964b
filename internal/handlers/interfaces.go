package handlers

import (
	"context"
	"io"

	"github.com/clipstream/backend/internal/catalog"
	"github.com/clipstream/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth and
// profile handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	Update(ctx context.Context, user models.User) error
}

// SessionManager drives the authentication session lifecycle.
type SessionManager interface {
	Login(ctx context.Context, identifier, password string) (models.User, models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Logout(ctx context.Context, userID string) error
}

// VideoStore captures persistence for videos, the catalog search, and the
// channel stats rollup.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
	Search(ctx context.Context, spec catalog.QuerySpec) ([]models.CatalogEntry, int64, error)
	IncrementViews(ctx context.Context, id string) error
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

// SubscriptionStore toggles subscriber→channel edges.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// LikeStore toggles user→video likes.
type LikeStore interface {
	Toggle(ctx context.Context, userID, videoID string) (bool, error)
}

// BlobStorage stores uploaded media and returns a durable public URL.
type BlobStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, location string) error
}
