package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/puppettale/backend/internal/model/chat"
	chatService "github.com/puppettale/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
)

// WebSocketHandler runs one turn per inbound "text" frame.
type WebSocketHandler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the websocket handler.
func NewWebSocketHandler(chatSvc *chatService.Service) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes mounts the websocket endpoint.
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

// TextMessage is a child utterance.
type TextMessage struct {
	Text       string `json:"text"`
	AmbienceID string `json:"soundId,omitempty"`
	Constraint string `json:"userConstraint,omitempty"`
}

// ConfigMessage sets persona context reused by later turns on the connection.
type ConfigMessage struct {
	ChildID    string `json:"childId"`
	ChildName  string `json:"userName"`
	ChildAge   *int   `json:"userAge,omitempty"`
	PuppetName string `json:"puppetName"`
	AmbienceID string `json:"soundId"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type connectionState struct {
	sessionID  string
	childID    string
	childName  string
	childAge   *int
	puppetName string
	ambienceID string
}

func (s *connectionState) turnRequest(text TextMessage) chat.TurnRequest {
	ambience := text.AmbienceID
	if ambience == "" {
		ambience = s.ambienceID
	}
	return chat.TurnRequest{
		SessionID:   s.sessionID,
		UserMessage: text.Text,
		AmbienceID:  ambience,
		ChildID:     s.childID,
		ChildName:   s.childName,
		ChildAge:    s.childAge,
		Constraint:  text.Constraint,
		PuppetName:  s.puppetName,
	}
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)
	state := &connectionState{sessionID: sessionID}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, "connected", sessionID, map[string]any{"sessionId": sessionID})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(conn, "session mismatch")
			continue
		}
		h.handleMessage(ctx, conn, state, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleTextMessage(ctx, conn, state, msg.Data)
	case "config":
		h.handleConfigMessage(conn, state, msg.Data)
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleTextMessage(ctx context.Context, conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(conn, "invalid text payload")
		return
	}

	req := state.turnRequest(text)
	if err := req.Validate(); err != nil {
		h.sendError(conn, err.Error())
		return
	}

	result, err := h.chatSvc.ProcessTurn(ctx, req)
	switch {
	case errors.Is(err, chatService.ErrEmptyMessage):
		h.sendError(conn, chatService.EmptyMessageReply)
	case err != nil:
		log.Printf("[websocket] turn failed session=%s: %v", state.sessionID, err)
		h.sendError(conn, "server error")
	default:
		if result.CurrentAmbienceID != "" {
			state.ambienceID = result.CurrentAmbienceID
		}
		h.send(conn, "result", state.sessionID, result)
	}
}

func (h *WebSocketHandler) handleConfigMessage(conn *websocket.Conn, state *connectionState, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(conn, "invalid config payload")
		return
	}

	applyConfig(state, cfg)
	log.Printf("[websocket] config applied session=%s child=%s puppet=%s", state.sessionID, state.childID, state.puppetName)

	h.send(conn, "config", state.sessionID, map[string]any{
		"childId":    state.childID,
		"userName":   state.childName,
		"puppetName": state.puppetName,
		"soundId":    state.ambienceID,
	})
}

func applyConfig(state *connectionState, cfg ConfigMessage) {
	if cfg.ChildID != "" {
		state.childID = cfg.ChildID
	}
	if cfg.ChildName != "" {
		state.childName = cfg.ChildName
	}
	if cfg.ChildAge != nil {
		state.childAge = cfg.ChildAge
	}
	if cfg.PuppetName != "" {
		state.puppetName = cfg.PuppetName
	}
	if cfg.AmbienceID != "" {
		state.ambienceID = cfg.AmbienceID
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, kind, sessionID string, data any) {
	msg := outgoingMessage{
		Type:      kind,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write %s failed: %v", kind, err)
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	h.send(conn, "error", "", map[string]string{"message": message})
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
