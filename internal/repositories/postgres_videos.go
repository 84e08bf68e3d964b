package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clipstream/backend/internal/catalog"
	"github.com/clipstream/backend/internal/db"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
)

const videoColumns = `id, owner_id, video_url, thumbnail, title, description, duration, views, published, created_at, updated_at`

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos,
// including the catalog search pipeline and the channel stats rollup.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, video_url, thumbnail, title, description, duration, views, published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.OwnerID, video.VideoURL, video.Thumbnail, video.Title, video.Description,
		video.Duration, video.Views, video.Published, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a single video by primary key.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT `+videoColumns+`
        FROM videos
        WHERE id = $1
    `, id)

	return scanVideo(row)
}

// Update modifies mutable fields of an existing video.
func (r *PostgresVideoRepository) Update(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET title = $2, description = $3, thumbnail = $4, published = $5, updated_at = $6
        WHERE id = $1
    `, video.ID, video.Title, video.Description, video.Thumbnail, video.Published, video.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a video record.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM videos
        WHERE id = $1
    `, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListByOwner returns every video owned by the channel, newest first.
func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoColumns+`
        FROM videos
        WHERE owner_id = $1
        ORDER BY created_at DESC, id
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query owner videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate owner videos: %w", err)
	}

	return videos, nil
}

// IncrementViews bumps the view counter for a video.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE videos
        SET views = views + 1
        WHERE id = $1
    `, id)
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Search runs the catalog pipeline: match, sort, owner join, then
// offset/limit. The total is counted over the identical predicate so
// reported page counts always agree with the filtered set. Videos whose
// owner row has vanished are still returned, with a nil owner summary.
func (r *PostgresVideoRepository) Search(ctx context.Context, spec catalog.QuerySpec) ([]models.CatalogEntry, int64, error) {
	ctx, span := logging.StartSpan(ctx, "catalog.search")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	spec = spec.Normalize()

	where, args := buildSearchWhere(spec)
	argNum := len(args) + 1

	// Sort column and direction come from the catalog enums, never from
	// caller input, so interpolating them is safe. The id tiebreak keeps
	// pagination stable when the sort key has duplicates.
	dataQuery := fmt.Sprintf(`
        SELECT v.id, v.owner_id, v.video_url, v.thumbnail, v.title, v.description,
               v.duration, v.views, v.published, v.created_at, v.updated_at,
               u.username, u.full_name, u.avatar_url, u.cover_image_url
        FROM videos v
        LEFT JOIN users u ON u.id = v.owner_id
        %s
        ORDER BY v.%s %s, v.id
        LIMIT $%d OFFSET $%d
    `, where, spec.Sort.Column(), spec.Direction.SQL(), argNum, argNum+1)

	rows, err := conn.Query(ctx, dataQuery, append(args, spec.Limit, spec.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("query video catalog: %w", err)
	}
	defer rows.Close()

	var entries []models.CatalogEntry
	for rows.Next() {
		var (
			entry    models.CatalogEntry
			username sql.NullString
			fullName sql.NullString
			avatar   sql.NullString
			cover    sql.NullString
		)

		if err := rows.Scan(
			&entry.Video.ID, &entry.Video.OwnerID, &entry.Video.VideoURL, &entry.Video.Thumbnail,
			&entry.Video.Title, &entry.Video.Description, &entry.Video.Duration, &entry.Video.Views,
			&entry.Video.Published, &entry.Video.CreatedAt, &entry.Video.UpdatedAt,
			&username, &fullName, &avatar, &cover,
		); err != nil {
			return nil, 0, fmt.Errorf("scan catalog entry: %w", err)
		}

		if username.Valid {
			entry.Owner = &models.OwnerSummary{
				Username:      username.String,
				FullName:      fullName.String,
				AvatarURL:     avatar.String,
				CoverImageURL: cover.String,
			}
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate catalog entries: %w", err)
	}

	countWhere, countArgs := buildSearchWhere(spec)
	var total int64
	if err := conn.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM videos v %s`, countWhere), countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count catalog entries: %w", err)
	}

	return entries, total, nil
}

// ChannelStats computes the per-channel rollup. Likes carry no owner
// reference, so the owned-video id set is collected first and the like count
// is taken over that set.
func (r *PostgresVideoRepository) ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	ctx, span := logging.StartSpan(ctx, "channel.stats")
	defer span.End()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var stats models.ChannelStats

	rows, err := conn.Query(ctx, `
        SELECT id, views
        FROM videos
        WHERE owner_id = $1
    `, ownerID)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("query owned videos: %w", err)
	}

	var videoIDs []string
	for rows.Next() {
		var (
			id    string
			views int64
		)
		if err := rows.Scan(&id, &views); err != nil {
			rows.Close()
			return models.ChannelStats{}, fmt.Errorf("scan owned video: %w", err)
		}
		videoIDs = append(videoIDs, id)
		stats.TotalVideos++
		stats.TotalViews += views
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.ChannelStats{}, fmt.Errorf("iterate owned videos: %w", err)
	}

	if err := conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM subscriptions
        WHERE channel_id = $1
    `, ownerID).Scan(&stats.TotalSubscribers); err != nil {
		return models.ChannelStats{}, fmt.Errorf("count subscribers: %w", err)
	}

	if len(videoIDs) > 0 {
		if err := conn.QueryRow(ctx, `
            SELECT COUNT(*)
            FROM likes
            WHERE video_id = ANY($1::uuid[])
        `, videoIDs).Scan(&stats.TotalLikes); err != nil {
			return models.ChannelStats{}, fmt.Errorf("count likes: %w", err)
		}
	}

	return stats, nil
}

// buildSearchWhere assembles the match predicate shared by the data and
// count queries. The owner filter is present only when the spec carries a
// validated owner id; free text matches title or description.
func buildSearchWhere(spec catalog.QuerySpec) (string, []any) {
	clauses := []string{"v.published"}
	var args []any

	if spec.OwnerID != "" {
		args = append(args, spec.OwnerID)
		clauses = append(clauses, fmt.Sprintf("v.owner_id = $%d", len(args)))
	}

	if spec.Query != "" {
		args = append(args, "%"+escapeLike(spec.Query)+"%")
		clauses = append(clauses, fmt.Sprintf("(v.title ILIKE $%d OR v.description ILIKE $%d)", len(args), len(args)))
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

// escapeLike neutralises LIKE metacharacters so user text matches literally.
func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

func scanVideo(row pgx.Row) (models.Video, error) {
	var video models.Video
	if err := row.Scan(
		&video.ID, &video.OwnerID, &video.VideoURL, &video.Thumbnail, &video.Title,
		&video.Description, &video.Duration, &video.Views, &video.Published,
		&video.CreatedAt, &video.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("scan video: %w", err)
	}
	return video, nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
