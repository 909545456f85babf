package handlers

import (
	"net/http"

	"github.com/engineerapp/backoffice/internal/httpx"
)

// Sync endpoints are scaffolding for offline-first clients. The protocol
// is not implemented yet; both sides answer 501 so clients can detect
// capability.

type SyncHandler struct{}

func NewSyncHandler() *SyncHandler { return &SyncHandler{} }

func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusNotImplemented, map[string]any{
		"success": false,
		"message": "Sync pull is not implemented yet",
	})
}

func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusNotImplemented, map[string]any{
		"success": false,
		"message": "Sync push is not implemented yet",
	})
}
