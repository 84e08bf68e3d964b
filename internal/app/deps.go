package app

import (
	"context"
	"fmt"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/config"
	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/handlers"
	"github.com/clipstream/backend/internal/middleware"
	"github.com/clipstream/backend/internal/repositories"
	"github.com/clipstream/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	codec := auth.NewCodec(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	users := repositories.NewPostgresUserRepository(pool)

	media, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, fmt.Errorf("configure media storage: %w", err)
	}

	limiter := middleware.NewIPRateLimiter(
		cfg.RateLimit.Requests,
		cfg.RateLimit.Window,
		cfg.RateLimit.Burst,
		cfg.RateLimit.TTL,
	)

	return handlers.Dependencies{
		Users:         users,
		Sessions:      auth.NewManager(codec, users),
		Videos:        repositories.NewPostgresVideoRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		Likes:         repositories.NewPostgresLikeRepository(pool),
		Storage:       media,
		Codec:         codec,
		Limiter:       limiter,
	}, nil
}
