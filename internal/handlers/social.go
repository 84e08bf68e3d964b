package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/repositories"
)

// SocialHandler serves the subscription and like toggles that feed the
// channel stats rollup.
type SocialHandler struct {
	Subscriptions SubscriptionStore
	Likes         LikeStore
}

// ToggleSubscription handles POST /api/v1/subscriptions/toggle.
func (h SocialHandler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
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

	if h.Subscriptions == nil {
		logger.Error("subscription store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "subscription services unavailable")
		return
	}

	var req struct {
		ChannelID string `json:"channelId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid subscription payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := uuid.Parse(req.ChannelID); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "channelId is required")
		return
	}
	if req.ChannelID == principal.ID {
		respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to your own channel")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, principal.ID, req.ChannelID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "no such channel")
			return
		}
		logger.Error("toggle subscription failed", "error", err, "channelId", req.ChannelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle subscription")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"subscribed": subscribed})
}

// ToggleLike handles POST /api/v1/likes/toggle.
func (h SocialHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
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

	if h.Likes == nil {
		logger.Error("like store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "like services unavailable")
		return
	}

	var req struct {
		VideoID string `json:"videoId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid like payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := uuid.Parse(req.VideoID); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "videoId is required")
		return
	}

	liked, err := h.Likes.Toggle(ctx, principal.ID, req.VideoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "no such video")
			return
		}
		logger.Error("toggle like failed", "error", err, "videoId", req.VideoID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle like")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{"liked": liked})
}
