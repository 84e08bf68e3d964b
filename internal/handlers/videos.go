package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/catalog"
	"github.com/clipstream/backend/internal/logging"
	"github.com/clipstream/backend/internal/models"
	"github.com/clipstream/backend/internal/repositories"
)

// maxUploadBytes bounds multipart parsing for video publishing.
const maxUploadBytes = 256 << 20

// VideoHandler provides the public catalog and the video CRUD endpoints.
type VideoHandler struct {
	Videos  VideoStore
	Storage BlobStorage
	NowFunc func() time.Time
}

// List handles GET /api/v1/videos: the filtered, sorted, paginated catalog.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Videos == nil {
		logger.Error("video store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "video services unavailable")
		return
	}

	spec := querySpecFromRequest(r)

	entries, total, err := h.Videos.Search(ctx, spec)
	if err != nil {
		logger.Error("catalog search failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "unable to list videos")
		return
	}

	normalized := spec.Normalize()
	payload := catalogResponse{
		Videos:     make([]catalogEntryResponse, 0, len(entries)),
		TotalDocs:  total,
		TotalPages: normalized.TotalPages(total),
		Page:       normalized.Page,
		Limit:      normalized.Limit,
	}
	for _, entry := range entries {
		payload.Videos = append(payload.Videos, newCatalogEntryResponse(entry))
	}

	respondJSON(ctx, w, http.StatusOK, payload)
}

// Publish handles POST /api/v1/videos: multipart upload of a video file and
// thumbnail, persisted through blob storage. Requires authentication.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
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

	if h.Videos == nil || h.Storage == nil {
		logger.Error("video publishing dependencies unavailable", "hasVideos", h.Videos != nil, "hasStorage", h.Storage != nil)
		respondError(ctx, w, http.StatusInternalServerError, "video services unavailable")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.Warn("invalid multipart payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid upload payload")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	}
	description := strings.TrimSpace(r.FormValue("description"))

	duration, _ := strconv.ParseFloat(r.FormValue("duration"), 64)
	if duration < 0 {
		duration = 0
	}

	videoID := uuid.NewString()

	videoURL, err := h.storeUpload(r, "videoFile", "videos/"+videoID)
	if err != nil {
		logger.Warn("video file upload failed", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "video file is required")
		return
	}

	thumbnailURL, err := h.storeUpload(r, "thumbnail", "thumbnails/"+videoID)
	if err != nil {
		logger.Warn("thumbnail upload failed", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "thumbnail is required")
		return
	}

	now := h.now()
	video := models.Video{
		ID:          videoID,
		OwnerID:     principal.ID,
		VideoURL:    videoURL,
		Thumbnail:   thumbnailURL,
		Title:       title,
		Description: description,
		Duration:    duration,
		Published:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		logger.Error("failed to persist video", "error", err, "videoId", videoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to publish video")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]any{"video": newVideoResponse(video)})
}

// ByID handles GET, PATCH, and DELETE on /api/v1/videos/{id}.
func (h VideoHandler) ByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Videos == nil {
		logger.Error("video store unavailable")
		respondError(ctx, w, http.StatusInternalServerError, "video services unavailable")
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/videos/"), "/")
	if _, err := uuid.Parse(id); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid video id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPatch:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h VideoHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "no such video")
			return
		}
		logger.Error("fetch video failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch video")
		return
	}

	if err := h.Videos.IncrementViews(ctx, id); err != nil {
		// A lost view bump should not fail the read.
		logger.Warn("increment views failed", "error", err, "videoId", id)
	} else {
		video.Views++
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"video": newVideoResponse(video)})
}

func (h VideoHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "no such video")
			return
		}
		logger.Error("fetch video failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch video")
		return
	}

	if video.OwnerID != principal.ID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may modify a video")
		return
	}

	var req updateVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid update payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			respondError(ctx, w, http.StatusBadRequest, "title must not be empty")
			return
		}
		video.Title = title
	}
	if req.Description != nil {
		video.Description = strings.TrimSpace(*req.Description)
	}
	if req.Published != nil {
		video.Published = *req.Published
	}
	video.UpdatedAt = h.now()

	if err := h.Videos.Update(ctx, video); err != nil {
		logger.Error("update video failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to update video")
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{"video": newVideoResponse(video)})
}

func (h VideoHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "no such video")
			return
		}
		logger.Error("fetch video failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch video")
		return
	}

	if video.OwnerID != principal.ID {
		respondError(ctx, w, http.StatusForbidden, "only the owner may delete a video")
		return
	}

	if err := h.Videos.Delete(ctx, id); err != nil {
		logger.Error("delete video failed", "error", err, "videoId", id)
		respondError(ctx, w, http.StatusInternalServerError, "unable to delete video")
		return
	}

	if h.Storage != nil {
		for _, location := range []string{video.VideoURL, video.Thumbnail} {
			if location == "" {
				continue
			}
			if err := h.Storage.Delete(ctx, location); err != nil {
				logger.Warn("delete media failed", "error", err, "location", location)
			}
		}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{})
}

func (h VideoHandler) storeUpload(r *http.Request, field, keyPrefix string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("read %s upload: %w", field, err)
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	key := keyPrefix + strings.ToLower(path.Ext(header.Filename))
	return h.Storage.Save(r.Context(), key, file)
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

// querySpecFromRequest maps the catalog route's query parameters onto a
// QuerySpec. Parsing is forgiving: bad numbers and unknown sort fields fall
// back to defaults instead of erroring.
func querySpecFromRequest(r *http.Request) catalog.QuerySpec {
	values := r.URL.Query()

	page, _ := strconv.Atoi(values.Get("page"))
	limit, _ := strconv.Atoi(values.Get("limit"))
	sortField, _ := catalog.ParseSortField(values.Get("sortBy"))

	return catalog.QuerySpec{
		Page:      page,
		Limit:     limit,
		Query:     values.Get("query"),
		OwnerID:   values.Get("userId"),
		Sort:      sortField,
		Direction: catalog.ParseDirection(values.Get("sortType")),
	}
}

type updateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Published   *bool   `json:"published"`
}

type catalogResponse struct {
	Videos     []catalogEntryResponse `json:"videos"`
	TotalDocs  int64                  `json:"totalDocs"`
	TotalPages int64                  `json:"totalPages"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
}

type catalogEntryResponse struct {
	videoResponse
	Owner *ownerResponse `json:"owner"`
}

type videoResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	VideoURL    string    `json:"videoUrl"`
	Thumbnail   string    `json:"thumbnail"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ownerResponse struct {
	Username      string `json:"username"`
	FullName      string `json:"fullName"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	CoverImageURL string `json:"coverImageUrl,omitempty"`
}

func newVideoResponse(video models.Video) videoResponse {
	return videoResponse{
		ID:          video.ID,
		OwnerID:     video.OwnerID,
		VideoURL:    video.VideoURL,
		Thumbnail:   video.Thumbnail,
		Title:       video.Title,
		Description: video.Description,
		Duration:    video.Duration,
		Views:       video.Views,
		Published:   video.Published,
		CreatedAt:   video.CreatedAt,
	}
}

func newCatalogEntryResponse(entry models.CatalogEntry) catalogEntryResponse {
	resp := catalogEntryResponse{videoResponse: newVideoResponse(entry.Video)}
	if entry.Owner != nil {
		resp.Owner = &ownerResponse{
			Username:      entry.Owner.Username,
			FullName:      entry.Owner.FullName,
			AvatarURL:     entry.Owner.AvatarURL,
			CoverImageURL: entry.Owner.CoverImageURL,
		}
	}
	return resp
}
