package chat

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/puppettale/backend/internal/model/chat"
	chatService "github.com/puppettale/backend/internal/service/chat"
	"github.com/puppettale/backend/pkg/utils"
)

// Handler exposes the turn pipeline over HTTP and websocket.
type Handler struct {
	chatSvc *chatService.Service
	ws      *WebSocketHandler
}

// New creates the chat handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		ws:      NewWebSocketHandler(chatSvc),
	}
}

// RegisterRoutes mounts the chat routes under /chat.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chat", func(cr chi.Router) {
		cr.Post("/send", h.handleSend)
		cr.Get("/logs/{sessionID}", h.handleLogs)
		h.ws.RegisterWebSocketRoutes(cr)
	})
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var req chat.TurnRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.chatSvc.ProcessTurn(r.Context(), req)
	switch {
	case errors.Is(err, chatService.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, chatService.EmptyMessageReply)
	case errors.Is(err, chatService.ErrSessionRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		log.Printf("[chat] turn failed session=%s: %v", req.SessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "server error")
	default:
		utils.RespondJSON(w, http.StatusOK, result)
	}
}

func (h *Handler) handleLogs(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatSvc.History(r.Context(), sessionID)
	switch {
	case errors.Is(err, chatService.ErrNoHistory):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case err != nil:
		log.Printf("[chat] history failed session=%s: %v", sessionID, err)
		utils.RespondError(w, http.StatusInternalServerError, "server error")
	default:
		utils.RespondJSON(w, http.StatusOK, messages)
	}
}
