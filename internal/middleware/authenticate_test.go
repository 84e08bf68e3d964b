package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/models"
)

func newAuthFixture(t *testing.T) (*auth.Codec, *auth.InMemoryCredentialStore) {
	t.Helper()

	codec := auth.NewCodec("test-secret", time.Minute, time.Hour)
	store := auth.NewInMemoryCredentialStore()
	store.Put(models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"})

	return codec, store
}

func TestAuthenticateResolvesPrincipal(t *testing.T) {
	codec, store := newAuthFixture(t)

	token, _, err := codec.Issue(auth.KindAccess, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var resolved models.User
	handler := Authenticate(codec, store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			t.Fatal("expected principal on context")
		}
		resolved = user
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resolved.ID != "user-1" || resolved.Username != "alice" {
		t.Fatalf("unexpected principal: %+v", resolved)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	codec, store := newAuthFixture(t)

	expiredCodec := auth.NewCodec("test-secret", time.Minute, time.Hour)
	past := time.Now().UTC().Add(-time.Hour)
	expiredCodec.WithNowFunc(func() time.Time { return past })
	expired, _, err := expiredCodec.Issue(auth.KindAccess, "user-1")
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}

	refresh, _, err := codec.Issue(auth.KindRefresh, "user-1")
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}

	vanished, _, err := codec.Issue(auth.KindAccess, "user-gone")
	if err != nil {
		t.Fatalf("issue vanished: %v", err)
	}

	cases := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "empty token", header: "Bearer "},
		{name: "garbage token", header: "Bearer not.a.token"},
		{name: "expired token", header: "Bearer " + expired},
		{name: "refresh token used as access", header: "Bearer " + refresh},
		{name: "principal no longer exists", header: "Bearer " + vanished},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			handler := Authenticate(codec, store)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			if called {
				t.Fatal("handler must not run for unauthenticated request")
			}
		})
	}
}
