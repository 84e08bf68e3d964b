package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/clipstream/backend/internal/models"
)

// CredentialStore persists user credentials and the single live refresh token
// per account. The find methods must return ErrUserNotFound when no account
// matches; any other error is treated as a store failure, not a bad
// credential. SwapRefreshToken must be a conditional write: the update
// succeeds only while the stored value still equals the expected one, which is
// what closes the window between two concurrent refreshes of the same token.
type CredentialStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	SetRefreshToken(ctx context.Context, userID, token string) error
	SwapRefreshToken(ctx context.Context, userID, expected, replacement string) error
}

// Manager orchestrates the session lifecycle: password login, refresh token
// rotation with reuse detection, and logout.
type Manager struct {
	codec *Codec
	store CredentialStore
}

// NewManager constructs a Manager backed by the provided codec and store.
func NewManager(codec *Codec, store CredentialStore) *Manager {
	if codec == nil {
		panic("auth: token codec must not be nil")
	}
	if store == nil {
		panic("auth: credential store must not be nil")
	}
	return &Manager{codec: codec, store: store}
}

// Login verifies the identifier/password pair and, on success, issues a fresh
// token pair and persists the new refresh token on the account. The returned
// user is sanitized.
func (m *Manager) Login(ctx context.Context, identifier, password string) (models.User, models.SessionTokens, error) {
	user, err := m.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return models.User{}, models.SessionTokens{}, fmt.Errorf("%w: %s", ErrUserNotFound, identifier)
		}
		return models.User{}, models.SessionTokens{}, fmt.Errorf("look up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return models.User{}, models.SessionTokens{}, ErrInvalidCredentials
	}

	tokens, err := m.issue(user.ID)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	if err := m.store.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return models.User{}, models.SessionTokens{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return user.Sanitized(), tokens, nil
}

// Refresh exchanges a previously issued refresh token for a new pair. The
// presented token must both verify cryptographically and match the persisted
// value; rotation happens through a compare-and-swap so a concurrent duplicate
// refresh of the same stale token loses.
func (m *Manager) Refresh(ctx context.Context, presented string) (models.SessionTokens, error) {
	userID, err := m.codec.Verify(KindRefresh, presented)
	if err != nil {
		return models.SessionTokens{}, err
	}

	user, err := m.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// The subject was deleted after the token was issued.
			return models.SessionTokens{}, ErrTokenInvalid
		}
		return models.SessionTokens{}, fmt.Errorf("look up account: %w", err)
	}

	if user.RefreshToken == "" || user.RefreshToken != presented {
		return models.SessionTokens{}, ErrRefreshReused
	}

	tokens, err := m.issue(user.ID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.store.SwapRefreshToken(ctx, user.ID, presented, tokens.RefreshToken); err != nil {
		if errors.Is(err, ErrRefreshReused) {
			return models.SessionTokens{}, ErrRefreshReused
		}
		return models.SessionTokens{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return tokens, nil
}

// Logout invalidates the account's persisted refresh token. Logging out an
// already-logged-out user is not an error.
func (m *Manager) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("auth: user id must be provided")
	}
	if err := m.store.SetRefreshToken(ctx, userID, ""); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

func (m *Manager) issue(userID string) (models.SessionTokens, error) {
	accessToken, accessExp, err := m.codec.Issue(KindAccess, userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	refreshToken, refreshExp, err := m.codec.Issue(KindRefresh, userID)
	if err != nil {
		return models.SessionTokens{}, err
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}
