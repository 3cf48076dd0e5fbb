// Package rest exposes the point-to-point HTTP companion to the WebSocket
// channel: read endpoints for the document and log, the voice-proposal
// merge endpoint, health and metrics.
package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"shoplist-backend/domain/history"
	"shoplist-backend/domain/list"
	"shoplist-backend/pkg/api"
	appErrors "shoplist-backend/pkg/errors"
)

// ListService is the slice of the application service the REST layer needs.
type ListService interface {
	Document(ctx context.Context) (*list.Document, error)
	History(ctx context.Context) (history.Log, error)
	ApplyVoiceProposal(ctx context.Context, proposal []list.ProposedStore, description string) (bool, error)
}

// Handler serves the REST endpoints.
type Handler struct {
	service ListService
	logger  *zap.Logger
}

// NewHandler creates the REST handler set.
func NewHandler(service ListService, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// GetShoppingList handles GET /api/shopping-list.
func (h *Handler) GetShoppingList(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Document(r.Context())
	if err != nil {
		h.logger.Error("failed to load shopping list", zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "Failed to load shopping list")
		return
	}
	api.Success(w, http.StatusOK, doc)
}

// GetHistory handles GET /api/history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	log, err := h.service.History(r.Context())
	if err != nil {
		h.logger.Error("failed to load history", zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	api.Success(w, http.StatusOK, log)
}

// VoiceUpdateRequest is the expected body for POST /api/voice-update: the
// interpreter's proposed replacement for the unpurchased portion of the
// document.
type VoiceUpdateRequest struct {
	Stores      []list.ProposedStore `json:"stores"`
	Description string               `json:"description,omitempty"`
}

// VoiceUpdateResponse reports whether the merge changed the document.
type VoiceUpdateResponse struct {
	Changed bool `json:"changed"`
}

// VoiceUpdate handles POST /api/voice-update.
func (h *Handler) VoiceUpdate(w http.ResponseWriter, r *http.Request) {
	var req VoiceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Stores == nil {
		api.Error(w, http.StatusBadRequest, "stores is required")
		return
	}

	description := req.Description
	if description == "" {
		description = "List updated by voice command"
	}

	changed, err := h.service.ApplyVoiceProposal(r.Context(), req.Stores, description)
	if err != nil {
		if appErrors.IsValidation(err) {
			api.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("voice update failed", zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "Failed to apply voice update")
		return
	}
	api.Success(w, http.StatusOK, VoiceUpdateResponse{Changed: changed})
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{"status": "healthy"})
}
