package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// AuthHandler implements user registration and the session lifecycle
// endpoints.
type AuthHandler struct {
	Users    UserStore
	Sessions SessionManager
	Limiter  RateLimiter
	NowFunc  func() time.Time
}

// Register handles POST /api/v1/auth/register requests.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "auth") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many requests")
		return
	}

	if h.Users == nil {
		logger.Error("user store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)

	if req.Username == "" || req.Email == "" || req.Password == "" || req.FullName == "" {
		logger.Warn("register missing fields", "username", req.Username, "email", req.Email)
		respondError(ctx, w, http.StatusBadRequest, "fullName, username, email and password are required")
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		logger.Warn("register invalid email", "email", req.Email, "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	if len(req.Password) < 8 {
		logger.Warn("register password too short", "username", req.Username)
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("register failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Email:     req.Email,
		FullName:  req.FullName,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			logger.Warn("register conflict", "username", req.Username, "email", req.Email)
			respondError(ctx, w, http.StatusConflict, "username or email already in use")
			return
		}
		logger.Error("register failed to create user", "error", err, "username", req.Username)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]any{"user": newUserResponse(user)})
}

// Login handles POST /api/v1/auth/login requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "auth") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many requests")
		return
	}

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "authentication services unavailable")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Identifier = strings.TrimSpace(strings.ToLower(req.Identifier))
	if req.Identifier == "" || req.Password == "" {
		logger.Warn("login missing credentials")
		respondError(ctx, w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	user, tokens, err := h.Sessions.Login(ctx, req.Identifier, req.Password)
	if err != nil {
		// Unknown account and wrong password are reported identically so the
		// endpoint cannot be used to enumerate accounts; the log keeps the
		// distinction.
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			logger.Warn("login unknown identifier", "identifier", req.Identifier)
			respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, auth.ErrInvalidCredentials):
			logger.Warn("login password mismatch", "identifier", req.Identifier)
			respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		default:
			logger.Error("login failed", "error", err, "identifier", req.Identifier)
			respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, loginResponse{
		User:         newUserResponse(user),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Refresh exchanges a refresh token for a new session pair.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "auth") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many requests")
		return
	}

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "session service unavailable")
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid refresh payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		logger.Warn("missing refresh token")
		respondError(ctx, w, http.StatusBadRequest, "refresh token is required")
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired),
			errors.Is(err, auth.ErrTokenInvalid),
			errors.Is(err, auth.ErrRefreshReused):
			logger.Warn("refresh rejected", "error", err)
			respondError(ctx, w, http.StatusUnauthorized, "refresh token expired or already used")
		default:
			logger.Error("refresh failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "unable to refresh session")
		}
		return
	}

	respondJSON(ctx, w, http.StatusOK, refreshResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// Logout invalidates the caller's refresh token. Requires authentication.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if h.Sessions == nil {
		logger.Error("session manager unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "session service unavailable")
		return
	}

	if err := h.Sessions.Logout(ctx, principal.ID); err != nil {
		logger.Error("logout failed", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to log out")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{})
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type loginResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type userResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatarUrl,omitempty"`
	CoverImageURL string    `json:"coverImageUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		FullName:      user.FullName,
		AvatarURL:     user.AvatarURL,
		CoverImageURL: user.CoverImageURL,
		CreatedAt:     user.CreatedAt,
	}
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
