package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/clipstream/backend/internal/models"
)

func newTestManager(t *testing.T) (*Manager, *InMemoryCredentialStore) {
	t.Helper()

	codec := NewCodec("test-secret", time.Minute, time.Hour)
	store := NewInMemoryCredentialStore()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	store.Put(models.User{
		ID:       "user-1",
		Username: "alice",
		Email:    "alice@example.com",
		Password: string(hashed),
	})

	return NewManager(codec, store), store
}

func TestManagerLogin(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	for _, identifier := range []string{"alice", "alice@example.com", "ALICE"} {
		user, tokens, err := manager.Login(ctx, identifier, "password123")
		if err != nil {
			t.Fatalf("login with %q: %v", identifier, err)
		}
		if user.Password != "" || user.RefreshToken != "" {
			t.Fatalf("expected sanitized user, got %+v", user)
		}
		if tokens.AccessToken == "" || tokens.RefreshToken == "" {
			t.Fatalf("expected tokens to be issued, got %+v", tokens)
		}

		stored, err := store.FindByID(ctx, "user-1")
		if err != nil {
			t.Fatalf("find stored user: %v", err)
		}
		if stored.RefreshToken != tokens.RefreshToken {
			t.Fatal("persisted refresh token does not match issued token")
		}
	}
}

func TestManagerLoginFailures(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	if _, _, err := manager.Login(ctx, "nobody", "password123"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if _, _, err := manager.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestManagerRefreshRotates(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	_, tokens, err := manager.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	rotated, err := manager.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected a new refresh token to be issued")
	}

	stored, err := store.FindByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("find stored user: %v", err)
	}
	if stored.RefreshToken != rotated.RefreshToken {
		t.Fatal("persisted refresh token was not rotated")
	}

	// The superseded token must be rejected even though it still verifies.
	if _, err := manager.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshReused) {
		t.Fatalf("expected ErrRefreshReused for replayed token, got %v", err)
	}

	// The fresh token keeps working.
	if _, err := manager.Refresh(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("refresh with rotated token: %v", err)
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := manager.Refresh(ctx, "garbage"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	// An access token must never pass as a refresh token.
	_, tokens, err := manager.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := manager.Refresh(ctx, tokens.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for access token, got %v", err)
	}
}

// failingCredentialStore simulates a backend outage on every call.
type failingCredentialStore struct{ err error }

func (s failingCredentialStore) FindByIdentifier(context.Context, string) (models.User, error) {
	return models.User{}, s.err
}

func (s failingCredentialStore) FindByID(context.Context, string) (models.User, error) {
	return models.User{}, s.err
}

func (s failingCredentialStore) SetRefreshToken(context.Context, string, string) error {
	return s.err
}

func (s failingCredentialStore) SwapRefreshToken(context.Context, string, string, string) error {
	return s.err
}

func TestManagerStoreOutageIsNotACredentialFailure(t *testing.T) {
	ctx := context.Background()
	outage := errors.New("connection pool exhausted")
	codec := NewCodec("test-secret", time.Minute, time.Hour)
	manager := NewManager(codec, failingCredentialStore{err: outage})

	_, _, err := manager.Login(ctx, "alice", "password123")
	if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("store outage misreported as bad credentials: %v", err)
	}
	if !errors.Is(err, outage) {
		t.Fatalf("expected the store error to be propagated, got %v", err)
	}

	refreshToken, _, err := codec.Issue(KindRefresh, "user-1")
	if err != nil {
		t.Fatalf("issue refresh token: %v", err)
	}
	if _, err := manager.Refresh(ctx, refreshToken); errors.Is(err, ErrTokenInvalid) || errors.Is(err, ErrRefreshReused) {
		t.Fatalf("store outage misreported as bad token: %v", err)
	} else if !errors.Is(err, outage) {
		t.Fatalf("expected the store error to be propagated, got %v", err)
	}
}

func TestManagerLogout(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()

	_, tokens, err := manager.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := manager.Logout(ctx, "user-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}

	stored, err := store.FindByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("find stored user: %v", err)
	}
	if stored.RefreshToken != "" {
		t.Fatal("expected refresh token to be cleared")
	}

	// Logout is idempotent.
	if err := manager.Logout(ctx, "user-1"); err != nil {
		t.Fatalf("second logout: %v", err)
	}

	// The cleared token no longer refreshes.
	if _, err := manager.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshReused) {
		t.Fatalf("expected ErrRefreshReused after logout, got %v", err)
	}
}
