package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/scamwatch/scamwatch-backend/internal/api/respond"
	"github.com/scamwatch/scamwatch-backend/internal/api/validate"
	"github.com/scamwatch/scamwatch-backend/internal/conversation"
	"github.com/scamwatch/scamwatch-backend/internal/model"
)

// ChatService is the conversation surface the handler needs; the registry
// implements it.
type ChatService interface {
	Process(ctx context.Context, query string, conversationID int64) (*model.TurnResult, error)
	End(conversationID int64)
}

// ChatHandler serves the conversational intake endpoints.
type ChatHandler struct {
	chat ChatService
}

func NewChatHandler(chat ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Query          string `json:"query"`
	ConversationID int64  `json:"conversationId,omitempty"`
}

// ProcessChat handles POST /api/chat. A zero/absent conversationId starts
// a new conversation; the assigned id comes back in the response.
func (h *ChatHandler) ProcessChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if err := validate.Query(req.Query); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := validate.ConversationID(req.ConversationID); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	res, err := h.chat.Process(r.Context(), req.Query, req.ConversationID)
	if err != nil {
		writeChatError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

// EndConversation handles POST /api/conversations/{conversationId}/end.
// It tears down the in-memory session; persisted history is untouched.
func (h *ChatHandler) EndConversation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "conversationId")
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	h.chat.End(id)
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"conversationId": id,
		"ended":          true,
	})
}

func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		respond.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrNotFound):
		respond.WriteNotFound(w, err.Error())
	case conversation.IsAgentInvocationError(err):
		log.Error().Err(err).Msg("agent invocation failed")
		respond.WriteError(w, http.StatusBadGateway, "agent unavailable")
	default:
		log.Error().Err(err).Msg("chat turn failed")
		respond.WriteInternalError(w, "failed to process query")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return id, nil
}
