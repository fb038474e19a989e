package handler

import (
	"net/http"

	"reelhub-api/internal/cache"
	"reelhub-api/pkg/apierror"
	"reelhub-api/pkg/response"
)

// MediaHandler issues signed media URLs through the signed URL cache.
type MediaHandler struct {
	urls *cache.SignedURLCache
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(urls *cache.SignedURLCache) *MediaHandler {
	return &MediaHandler{urls: urls}
}

// SignedURL handles GET /api/v1/media/signed-url?url=
func (h *MediaHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("url")
	if source == "" {
		response.Error(w, apierror.BadRequest("url is required"))
		return
	}

	signed, err := h.urls.Get(r.Context(), source)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]string{
		"url":        source,
		"signed_url": signed,
	})
}

type signURLsRequest struct {
	URLs []string `json:"urls"`
}

// SignedURLs handles POST /api/v1/media/signed-urls. A URL that cannot be
// signed maps to itself.
func (h *MediaHandler) SignedURLs(w http.ResponseWriter, r *http.Request) {
	var req signURLsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		response.Error(w, err)
		return
	}

	signed, err := h.urls.SignMany(r.Context(), req.URLs)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"count": len(signed),
		"urls":  signed,
	})
}
