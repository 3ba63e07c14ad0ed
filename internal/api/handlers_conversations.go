package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/scamwatch/scamwatch-backend/internal/api/respond"
	"github.com/scamwatch/scamwatch-backend/internal/model"
	"github.com/scamwatch/scamwatch-backend/internal/store"
)

// ConversationHandler serves read access to persisted conversations.
type ConversationHandler struct {
	store store.Store
}

func NewConversationHandler(st store.Store) *ConversationHandler {
	return &ConversationHandler{store: st}
}

// ListMessages handles GET /api/conversations/{conversationId}/messages,
// returning the full ordered history.
func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "conversationId")
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	if _, err := h.store.Conversations().Get(r.Context(), id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			respond.WriteNotFound(w, err.Error())
			return
		}
		log.Error().Err(err).Int64("conversation_id", id).Msg("conversation lookup failed")
		respond.WriteInternalError(w, "failed to load conversation")
		return
	}

	msgs, err := h.store.Messages().List(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("conversation_id", id).Msg("message list failed")
		respond.WriteInternalError(w, "failed to load messages")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"conversationId": id,
		"messages":       msgs,
		"count":          len(msgs),
	})
}
