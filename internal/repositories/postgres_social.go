package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/models"
)

// PostgresSubscriptionRepository persists subscriber→channel edges.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Toggle subscribes when no edge exists and unsubscribes otherwise. It
// reports the resulting state.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM subscriptions
        WHERE subscriber_id = $1 AND channel_id = $2
    `, subscriberID, channelID)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	sub := models.Subscription{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		CreatedAt:    time.Now().UTC(),
	}
	_, err = conn.Exec(ctx, `
        INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
        VALUES ($1, $2, $3, $4)
    `, sub.ID, sub.SubscriberID, sub.ChannelID, sub.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				// Concurrent toggle won the insert; treat as subscribed.
				return true, nil
			case "23503":
				return false, ErrNotFound
			}
		}
		return false, fmt.Errorf("insert subscription: %w", err)
	}

	return true, nil
}

// PostgresLikeRepository persists user→video likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// Toggle likes when no record exists and removes the like otherwise. It
// reports the resulting state.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, userID, videoID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM likes
        WHERE user_id = $1 AND video_id = $2
    `, userID, videoID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	like := models.Like{
		ID:        uuid.NewString(),
		UserID:    userID,
		VideoID:   videoID,
		CreatedAt: time.Now().UTC(),
	}
	_, err = conn.Exec(ctx, `
        INSERT INTO likes (id, user_id, video_id, created_at)
        VALUES ($1, $2, $3, $4)
    `, like.ID, like.UserID, like.VideoID, like.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return true, nil
			case "23503":
				return false, ErrNotFound
			}
		}
		return false, fmt.Errorf("insert like: %w", err)
	}

	return true, nil
}

var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
var _ LikeRepository = (*PostgresLikeRepository)(nil)
