package repositories

import (
	"context"

	"github.com/clipstream/backend/internal/catalog"
	"github.com/clipstream/backend/internal/models"
)

// VideoRepository exposes data access for uploaded videos, the paginated
// catalog search, and the per-channel stats rollup.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error)
	Search(ctx context.Context, spec catalog.QuerySpec) ([]models.CatalogEntry, int64, error)
	IncrementViews(ctx context.Context, id string) error
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

// SubscriptionRepository records subscriber→channel edges.
type SubscriptionRepository interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (subscribed bool, err error)
}

// LikeRepository records user→video likes.
type LikeRepository interface {
	Toggle(ctx context.Context, userID, videoID string) (liked bool, err error)
}
