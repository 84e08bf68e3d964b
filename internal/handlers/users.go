package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// maxImageBytes bounds avatar and cover image uploads.
const maxImageBytes = 8 << 20

// UserHandler serves the authenticated account profile endpoints.
type UserHandler struct {
	Users   UserStore
	Storage BlobStorage
	NowFunc func() time.Time
}

// Me handles GET and PATCH on /api/v1/users/me.
func (h UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.fetch(w, r)
	case http.MethodPatch:
		h.update(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Avatar handles PATCH /api/v1/users/avatar.
func (h UserHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", func(user *models.User, url string) string {
		previous := user.AvatarURL
		user.AvatarURL = url
		return previous
	})
}

// CoverImage handles PATCH /api/v1/users/cover.
func (h UserHandler) CoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", func(user *models.User, url string) string {
		previous := user.CoverImageURL
		user.CoverImageURL = url
		return previous
	})
}

func (h UserHandler) fetch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": newUserResponse(principal)})
}

func (h UserHandler) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if h.Users == nil {
		logger.Error("user store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "account services unavailable")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid profile payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FullName != nil {
		fullName := strings.TrimSpace(*req.FullName)
		if fullName == "" {
			respondError(ctx, w, http.StatusBadRequest, "full name must not be empty")
			return
		}
		principal.FullName = fullName
	}
	if req.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*req.Email))
		if _, err := mail.ParseAddress(email); err != nil {
			logger.Warn("profile update invalid email", "email", email, "error", err)
			respondError(ctx, w, http.StatusBadRequest, "invalid email address")
			return
		}
		principal.Email = email
	}
	principal.UpdatedAt = h.now()

	if err := h.Users.Update(ctx, principal); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			logger.Warn("profile update email conflict", "userId", principal.ID)
			respondError(ctx, w, http.StatusConflict, "email already in use")
			return
		}
		logger.Error("update profile failed", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update profile")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": newUserResponse(principal)})
}

func (h UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, assign func(*models.User, string) string) {
	if r.Method != http.MethodPatch {
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

	if h.Users == nil || h.Storage == nil {
		logger.Error("profile image dependencies unavailable", "hasUsers", h.Users != nil, "hasStorage", h.Storage != nil)
		respondError(ctx, w, http.StatusInternalServerError, "account services unavailable")
		return
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		logger.Warn("invalid multipart payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid upload payload")
		return
	}

	url, err := h.storeImage(r, field, principal.ID)
	if err != nil {
		logger.Warn("image upload failed", "error", err, "field", field)
		respondError(ctx, w, http.StatusBadRequest, fmt.Sprintf("%s file is required", field))
		return
	}

	previous := assign(&principal, url)
	principal.UpdatedAt = h.now()

	if err := h.Users.Update(ctx, principal); err != nil {
		logger.Error("update profile image failed", "error", err, "userId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update profile")
		return
	}

	if previous != "" {
		if err := h.Storage.Delete(ctx, previous); err != nil {
			logger.Warn("delete previous image failed", "error", err, "location", previous)
		}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": newUserResponse(principal)})
}

func (h UserHandler) storeImage(r *http.Request, field, userID string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("read %s upload: %w", field, err)
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	key := fmt.Sprintf("%ss/%s%s", field, userID, strings.ToLower(path.Ext(header.Filename)))
	return h.Storage.Save(r.Context(), key, file)
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type updateProfileRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
}
