package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/catalog"
	"github.com/clipstream/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndUpdate(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)

	user := models.User{
		ID:        uuid.NewString(),
		Username:  "alice",
		Email:     "alice@example.com",
		FullName:  "Alice Adams",
		Password:  "secret-hash",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dup := models.User{
		ID:        uuid.NewString(),
		Username:  "alice2",
		Email:     user.Email,
		Password:  "another-hash",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when creating duplicate email, got %v", err)
	}

	for _, identifier := range []string{"alice", "alice@example.com", "ALICE"} {
		fetched, err := repo.FindByIdentifier(ctx, identifier)
		if err != nil {
			t.Fatalf("find by identifier %q: %v", identifier, err)
		}
		if fetched.ID != user.ID || fetched.Password != user.Password {
			t.Fatalf("unexpected user fetched for %q: %+v", identifier, fetched)
		}
	}

	updated := user
	updated.Email = "updated@example.com"
	updated.FullName = "Alice Updated"
	updated.UpdatedAt = time.Now().UTC().Add(time.Minute)

	if err := repo.Update(ctx, updated); err != nil {
		t.Fatalf("update user: %v", err)
	}

	fetched, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.Email != updated.Email || fetched.FullName != updated.FullName {
		t.Fatalf("expected updated fields to persist, got %+v", fetched)
	}

	missing := models.User{
		ID:        uuid.NewString(),
		Username:  "missing",
		Email:     "missing@example.com",
		Password:  "hash",
		UpdatedAt: time.Now().UTC(),
	}

	if err := repo.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}

	// Absent accounts report the auth sentinel so the session manager can
	// tell a bad identifier apart from a store failure.
	if _, err := repo.FindByIdentifier(ctx, "nobody"); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown identifier, got %v", err)
	}
	if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown id, got %v", err)
	}
}

func TestPostgresUserRepository_RefreshTokenRotation(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "bob")

	if err := repo.SetRefreshToken(ctx, user.ID, "token-1"); err != nil {
		t.Fatalf("set refresh token: %v", err)
	}

	if err := repo.SwapRefreshToken(ctx, user.ID, "token-1", "token-2"); err != nil {
		t.Fatalf("swap refresh token: %v", err)
	}

	fetched, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if fetched.RefreshToken != "token-2" {
		t.Fatalf("expected token-2 persisted, got %q", fetched.RefreshToken)
	}

	// A second rotation against the superseded value must lose.
	if err := repo.SwapRefreshToken(ctx, user.ID, "token-1", "token-3"); !errors.Is(err, auth.ErrRefreshReused) {
		t.Fatalf("expected ErrRefreshReused for stale swap, got %v", err)
	}

	fetched, err = repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if fetched.RefreshToken != "token-2" {
		t.Fatalf("stale swap must not overwrite, got %q", fetched.RefreshToken)
	}

	if err := repo.SetRefreshToken(ctx, user.ID, ""); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}

	if err := repo.SetRefreshToken(ctx, uuid.NewString(), "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestPostgresVideoRepository_Search(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)

	alice := createTestUser(t, userRepo, "alice")
	bob := createTestUser(t, userRepo, "bob")

	baseTime := time.Now().UTC().Add(-time.Hour).Truncate(time.Millisecond)

	seed := []models.Video{
		{ID: uuid.NewString(), OwnerID: alice.ID, Title: "React basics", Description: "intro course", Views: 50, Published: true, CreatedAt: baseTime},
		{ID: uuid.NewString(), OwnerID: alice.ID, Title: "Go concurrency", Description: "channels and react hooks comparison", Views: 10, Published: true, CreatedAt: baseTime.Add(time.Minute)},
		{ID: uuid.NewString(), OwnerID: bob.ID, Title: "Cooking pasta", Description: "dinner ideas", Views: 99, Published: true, CreatedAt: baseTime.Add(2 * time.Minute)},
		{ID: uuid.NewString(), OwnerID: bob.ID, Title: "Hidden draft", Description: "not ready", Views: 0, Published: false, CreatedAt: baseTime.Add(3 * time.Minute)},
	}
	for i := range seed {
		seed[i].VideoURL = "https://cdn.example.com/" + seed[i].ID
		seed[i].UpdatedAt = seed[i].CreatedAt
		if err := videoRepo.Create(ctx, seed[i]); err != nil {
			t.Fatalf("create video %d: %v", i, err)
		}
	}

	t.Run("text query matches title or description case-insensitively", func(t *testing.T) {
		entries, total, err := videoRepo.Search(ctx, catalog.QuerySpec{Query: "REACT"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if total != 2 || len(entries) != 2 {
			t.Fatalf("expected 2 matches, got total=%d len=%d", total, len(entries))
		}
		for _, entry := range entries {
			if entry.Video.OwnerID != alice.ID {
				t.Fatalf("unexpected match: %+v", entry.Video)
			}
		}
	})

	t.Run("owner filter", func(t *testing.T) {
		entries, total, err := videoRepo.Search(ctx, catalog.QuerySpec{OwnerID: bob.ID})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if total != 1 || len(entries) != 1 {
			t.Fatalf("expected only bob's published video, got total=%d len=%d", total, len(entries))
		}
		if entries[0].Video.Title != "Cooking pasta" {
			t.Fatalf("unexpected entry: %+v", entries[0].Video)
		}
	})

	t.Run("invalid owner filter means no owner constraint", func(t *testing.T) {
		_, total, err := videoRepo.Search(ctx, catalog.QuerySpec{OwnerID: "undefined"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if total != 3 {
			t.Fatalf("expected all 3 published videos, got %d", total)
		}
	})

	t.Run("sort by views ascending", func(t *testing.T) {
		entries, _, err := videoRepo.Search(ctx, catalog.QuerySpec{Sort: catalog.SortByViews, Direction: catalog.Ascending})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		var views []int64
		for _, entry := range entries {
			views = append(views, entry.Video.Views)
		}
		if !sort.SliceIsSorted(views, func(i, j int) bool { return views[i] < views[j] }) {
			t.Fatalf("expected ascending views, got %v", views)
		}
	})

	t.Run("owner summary joined", func(t *testing.T) {
		entries, _, err := videoRepo.Search(ctx, catalog.QuerySpec{OwnerID: alice.ID})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		for _, entry := range entries {
			if entry.Owner == nil || entry.Owner.Username != alice.Username {
				t.Fatalf("expected owner summary for alice, got %+v", entry.Owner)
			}
		}
	})

	t.Run("pagination reproduces the full set", func(t *testing.T) {
		seen := make(map[string]int)
		var pages int64 = 1
		for page := 1; int64(page) <= pages; page++ {
			spec := catalog.QuerySpec{Page: page, Limit: 2}.Normalize()
			entries, total, err := videoRepo.Search(ctx, spec)
			if err != nil {
				t.Fatalf("search page %d: %v", page, err)
			}
			pages = spec.TotalPages(total)
			for _, entry := range entries {
				seen[entry.Video.ID]++
			}
		}
		if len(seen) != 3 {
			t.Fatalf("expected 3 distinct videos across pages, got %d", len(seen))
		}
		for id, count := range seen {
			if count != 1 {
				t.Fatalf("video %s appeared %d times", id, count)
			}
		}
	})

	t.Run("identical queries return identical order", func(t *testing.T) {
		first, _, err := videoRepo.Search(ctx, catalog.QuerySpec{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		second, _, err := videoRepo.Search(ctx, catalog.QuerySpec{})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(first) != len(second) {
			t.Fatalf("result size changed: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i].Video.ID != second[i].Video.ID {
				t.Fatalf("order changed at %d: %s vs %s", i, first[i].Video.ID, second[i].Video.ID)
			}
		}
	})
}

func TestPostgresVideoRepository_SearchOrphanedOwner(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	videoRepo := NewPostgresVideoRepository(testPool)

	orphan := models.Video{
		ID:        uuid.NewString(),
		OwnerID:   uuid.NewString(),
		VideoURL:  "https://cdn.example.com/orphan",
		Title:     "Orphan",
		Published: true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := videoRepo.Create(ctx, orphan); err != nil {
		t.Fatalf("create orphan video: %v", err)
	}

	entries, total, err := videoRepo.Search(ctx, catalog.QuerySpec{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || len(entries) != 1 {
		t.Fatalf("expected orphaned video to be returned, got total=%d len=%d", total, len(entries))
	}
	if entries[0].Owner != nil {
		t.Fatalf("expected nil owner summary, got %+v", entries[0].Owner)
	}
}

func TestPostgresVideoRepository_ChannelStats(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)
	subRepo := NewPostgresSubscriptionRepository(testPool)
	likeRepo := NewPostgresLikeRepository(testPool)

	channel := createTestUser(t, userRepo, "channel")

	v1 := createTestVideo(t, videoRepo, channel.ID, "V1", 10)
	v2 := createTestVideo(t, videoRepo, channel.ID, "V2", 25)

	var fans []models.User
	for i := 0; i < 4; i++ {
		fans = append(fans, createTestUser(t, userRepo, fmt.Sprintf("fan%d", i)))
	}

	for i := 0; i < 3; i++ {
		if _, err := subRepo.Toggle(ctx, fans[i].ID, channel.ID); err != nil {
			t.Fatalf("toggle subscription %d: %v", i, err)
		}
	}

	for _, like := range []struct{ user, video string }{
		{fans[0].ID, v1.ID},
		{fans[1].ID, v1.ID},
		{fans[2].ID, v2.ID},
		{fans[3].ID, v2.ID},
	} {
		if _, err := likeRepo.Toggle(ctx, like.user, like.video); err != nil {
			t.Fatalf("toggle like: %v", err)
		}
	}

	stats, err := videoRepo.ChannelStats(ctx, channel.ID)
	if err != nil {
		t.Fatalf("channel stats: %v", err)
	}

	want := models.ChannelStats{TotalVideos: 2, TotalViews: 35, TotalSubscribers: 3, TotalLikes: 4}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}

	// A channel with no uploads reports zeroes, not an error.
	empty, err := videoRepo.ChannelStats(ctx, fans[0].ID)
	if err != nil {
		t.Fatalf("empty channel stats: %v", err)
	}
	if empty != (models.ChannelStats{}) {
		t.Fatalf("expected zero stats, got %+v", empty)
	}
}

func TestPostgresToggleRepositories(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)
	subRepo := NewPostgresSubscriptionRepository(testPool)
	likeRepo := NewPostgresLikeRepository(testPool)

	fan := createTestUser(t, userRepo, "fan")
	channel := createTestUser(t, userRepo, "channel")
	video := createTestVideo(t, videoRepo, channel.ID, "Clip", 0)

	subscribed, err := subRepo.Toggle(ctx, fan.ID, channel.ID)
	if err != nil || !subscribed {
		t.Fatalf("expected first toggle to subscribe, got (%v, %v)", subscribed, err)
	}
	subscribed, err = subRepo.Toggle(ctx, fan.ID, channel.ID)
	if err != nil || subscribed {
		t.Fatalf("expected second toggle to unsubscribe, got (%v, %v)", subscribed, err)
	}

	liked, err := likeRepo.Toggle(ctx, fan.ID, video.ID)
	if err != nil || !liked {
		t.Fatalf("expected first toggle to like, got (%v, %v)", liked, err)
	}
	liked, err = likeRepo.Toggle(ctx, fan.ID, video.ID)
	if err != nil || liked {
		t.Fatalf("expected second toggle to unlike, got (%v, %v)", liked, err)
	}

	// Edges may only point at rows that exist; the handlers turn this
	// into a 404.
	if _, err := subRepo.Toggle(ctx, fan.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound subscribing to unknown channel, got %v", err)
	}
	if _, err := likeRepo.Toggle(ctx, fan.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound liking unknown video, got %v", err)
	}
}

func TestPostgresVideoRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	videoRepo := NewPostgresVideoRepository(testPool)

	owner := createTestUser(t, userRepo, "owner")
	video := createTestVideo(t, videoRepo, owner.ID, "Original", 0)

	if err := videoRepo.IncrementViews(ctx, video.ID); err != nil {
		t.Fatalf("increment views: %v", err)
	}

	fetched, err := videoRepo.FindByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("find video: %v", err)
	}
	if fetched.Views != 1 {
		t.Fatalf("expected 1 view, got %d", fetched.Views)
	}

	fetched.Title = "Renamed"
	fetched.Published = false
	fetched.UpdatedAt = time.Now().UTC()
	if err := videoRepo.Update(ctx, fetched); err != nil {
		t.Fatalf("update video: %v", err)
	}

	owned, err := videoRepo.ListByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(owned) != 1 || owned[0].Title != "Renamed" || owned[0].Published {
		t.Fatalf("unexpected owned videos: %+v", owned)
	}

	if err := videoRepo.Delete(ctx, video.ID); err != nil {
		t.Fatalf("delete video: %v", err)
	}
	if _, err := videoRepo.FindByID(ctx, video.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := videoRepo.Delete(ctx, video.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE likes, subscriptions, videos, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, username string) models.User {
	t.Helper()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		FullName:  username,
		Password:  "password-hash",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func createTestVideo(t *testing.T, repo *PostgresVideoRepository, ownerID, title string, views int64) models.Video {
	t.Helper()
	video := models.Video{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		VideoURL:  "https://cdn.example.com/" + title,
		Title:     title,
		Views:     views,
		Published: true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("create test video: %v", err)
	}
	return video
}
