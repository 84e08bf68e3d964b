package auth

import (
	"errors"
	"testing"
	"time"
)

func TestCodecIssueAndVerify(t *testing.T) {
	codec := NewCodec("test-secret", time.Minute, time.Hour)

	for _, kind := range []TokenKind{KindAccess, KindRefresh} {
		token, expiresAt, err := codec.Issue(kind, "user-1")
		if err != nil {
			t.Fatalf("issue %s: %v", kind, err)
		}
		if token == "" {
			t.Fatalf("expected non-empty %s token", kind)
		}
		if !expiresAt.After(time.Now()) {
			t.Fatalf("expected %s expiry in the future, got %v", kind, expiresAt)
		}

		userID, err := codec.Verify(kind, token)
		if err != nil {
			t.Fatalf("verify %s: %v", kind, err)
		}
		if userID != "user-1" {
			t.Fatalf("expected user-1, got %q", userID)
		}
	}
}

func TestCodecRejectsWrongKind(t *testing.T) {
	codec := NewCodec("test-secret", time.Minute, time.Hour)

	access, _, err := codec.Issue(KindAccess, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := codec.Verify(KindRefresh, access); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for access token verified as refresh, got %v", err)
	}

	refresh, _, err := codec.Issue(KindRefresh, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := codec.Verify(KindAccess, refresh); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for refresh token verified as access, got %v", err)
	}
}

func TestCodecExpiry(t *testing.T) {
	codec := NewCodec("test-secret", time.Minute, time.Hour)

	issuedAt := time.Now().UTC()
	codec.WithNowFunc(func() time.Time { return issuedAt })

	token, _, err := codec.Issue(KindAccess, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	codec.WithNowFunc(func() time.Time { return issuedAt.Add(2 * time.Minute) })

	if _, err := codec.Verify(KindAccess, token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestCodecRejectsTampering(t *testing.T) {
	codec := NewCodec("test-secret", time.Minute, time.Hour)
	other := NewCodec("another-secret", time.Minute, time.Hour)

	token, _, err := other.Issue(KindAccess, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	cases := []struct {
		name  string
		token string
	}{
		{name: "foreign signature", token: token},
		{name: "malformed", token: "not.a.token"},
		{name: "empty", token: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := codec.Verify(KindAccess, tc.token); !errors.Is(err, ErrTokenInvalid) {
				t.Fatalf("expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}
