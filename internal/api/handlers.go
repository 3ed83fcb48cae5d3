package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/kiraleos/replybot/internal/core"
	"github.com/kiraleos/replybot/internal/store"
)

// LikedLister is the slice of the persistent store the API needs.
type LikedLister interface {
	ListLikedResponses(userID int64) ([]store.LikedResponse, error)
}

type APIHandler struct {
	cache *core.SessionCache
	likes LikedLister
}

func NewAPIHandler(cache *core.SessionCache, likes LikedLister) *APIHandler {
	return &APIHandler{cache: cache, likes: likes}
}

func userIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	return id, err == nil
}

type SessionResponse struct {
	UserID   int64           `json:"user_id"`
	Messages []store.Message `json:"messages"`
}

func (h *APIHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	resp := SessionResponse{
		UserID:   userID,
		Messages: h.cache.Get(userID),
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *APIHandler) ClearSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	h.cache.Clear(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListLikesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(r)
	if !ok {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	records, err := h.likes.ListLikedResponses(userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("failed to list liked responses")
		http.Error(w, "Failed to list liked responses", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []store.LikedResponse{}
	}
	json.NewEncoder(w).Encode(records)
}
