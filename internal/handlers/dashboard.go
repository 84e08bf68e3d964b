package handlers

import (
	"net/http"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
)

// DashboardHandler serves the authenticated channel overview: the aggregate
// stats rollup and the owner's own videos, drafts included.
type DashboardHandler struct {
	Store VideoStore
}

// Stats handles GET /api/v1/dashboard/stats.
func (h DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
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

	if h.Store == nil {
		logger.Error("video store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "video services unavailable")
		return
	}

	stats, err := h.Store.ChannelStats(ctx, principal.ID)
	if err != nil {
		logger.Error("channel stats failed", "error", err, "channelId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to compute channel stats")
		return
	}

	respondJSON(ctx, w, http.StatusOK, channelStatsResponse{
		TotalVideos:      stats.TotalVideos,
		TotalViews:       stats.TotalViews,
		TotalSubscribers: stats.TotalSubscribers,
		TotalLikes:       stats.TotalLikes,
	})
}

// Videos handles GET /api/v1/dashboard/videos. Unlike the public catalog it
// returns unpublished entries too, since the caller owns them.
func (h DashboardHandler) Videos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
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

	if h.Store == nil {
		logger.Error("video store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "video services unavailable")
		return
	}

	videos, err := h.Store.ListByOwner(ctx, principal.ID)
	if err != nil {
		logger.Error("list channel videos failed", "error", err, "channelId", principal.ID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list channel videos")
		return
	}

	payload := make([]videoResponse, 0, len(videos))
	for _, video := range videos {
		payload = append(payload, newVideoResponse(video))
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"videos": payload})
}

type channelStatsResponse struct {
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalSubscribers int64 `json:"totalSubscribers"`
	TotalLikes       int64 `json:"totalLikes"`
}
