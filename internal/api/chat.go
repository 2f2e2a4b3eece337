package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/ashureev/rommaana-agents/internal/agent"
	"github.com/ashureev/rommaana-agents/internal/convlog"
	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/identity"
	"github.com/ashureev/rommaana-agents/internal/llm"
)

const missingChatFields = "Missing required fields: agentType, message, conversationId"

// ChatHandler serves the multi-agent chat endpoints.
type ChatHandler struct {
	*Handler
	agents        *agent.Directory
	log           convlog.Logger
	allowedOrigin string
	isDev         bool
}

// NewChatHandler creates a ChatHandler. A nil log discards conversation events.
func NewChatHandler(base *Handler, agents *agent.Directory, log convlog.Logger, allowedOrigin string, isDev bool) *ChatHandler {
	if log == nil {
		log = convlog.Noop{}
	}
	return &ChatHandler{
		Handler:       base,
		agents:        agents,
		log:           log,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// RegisterRoutes registers chat routes.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/ai/agent", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Get("/chat", h.ListAgents)
		r.Get("/ws", h.Socket)
		r.Delete("/{agentType}/conversations/{conversationId}", h.ClearConversation)
	})
}

type chatRequest struct {
	AgentType      string `json:"agentType"`
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	Language       string `json:"language"`
}

type chatResult struct {
	Success   bool            `json:"success"`
	Agent     string          `json:"agent"`
	Response  *agent.Response `json:"response"`
	RequestID string          `json:"requestId"`
}

type chatFailure struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// turnMeta is the per-request information attached to a turn.
type turnMeta struct {
	requestID string
	userID    string
	sessionID string
	userAgent string
	channel   string
}

// Chat handles POST /api/ai/agent/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	meta := h.meta(r, "chat_http")

	var req chatRequest
	if err := h.decode(w, r, &req); err != nil {
		JSON(w, http.StatusBadRequest, chatFailure{Error: err.Error(), RequestID: meta.requestID})
		return
	}

	status, body := h.serve(r.Context(), req, meta)
	JSON(w, status, body)
}

// serve runs one chat request and returns the HTTP status and body for it.
// The websocket endpoint sends the same bodies as frames.
func (h *ChatHandler) serve(ctx context.Context, req chatRequest, meta turnMeta) (int, any) {
	h.logger.Info("Agent chat request",
		"request_id", meta.requestID,
		"agent_type", req.AgentType,
		"conversation_id", req.ConversationID,
		"message_length", len(req.Message),
		"language", req.Language,
	)

	if req.AgentType == "" || req.Message == "" || req.ConversationID == "" {
		h.logger.Warn("Missing required fields", "request_id", meta.requestID)
		return http.StatusBadRequest, chatFailure{Error: missingChatFields}
	}

	a, err := h.agents.Lookup(req.AgentType)
	if err != nil {
		h.logger.Warn("Invalid agent type", "request_id", meta.requestID, "agent_type", req.AgentType)
		return http.StatusBadRequest, chatFailure{Error: err.Error()}
	}

	lang := domain.LanguageBoth
	if req.Language != "" {
		if parsed, ok := domain.ParseLanguage(req.Language); ok {
			lang = parsed
		} else {
			lang = domain.LanguageEnglish
		}
	}

	ac := domain.AgentContext{
		ConversationID: req.ConversationID,
		Language:       lang,
		UserID:         meta.userID,
		Metadata: map[string]any{
			"userAgent": meta.userAgent,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"requestId": meta.requestID,
		},
	}

	h.logTurn(meta, req, "inbound", "chat_user_message", req.Message, nil)

	resp, err := a.Chat(ctx, req.Message, ac)
	if err != nil {
		h.logger.Error("Agent chat error", "request_id", meta.requestID, "agent_type", req.AgentType, "error", err)
		h.logTurn(meta, req, "outbound", "chat_error", err.Error(), nil)
		if llm.IsRateLimited(err) {
			return http.StatusServiceUnavailable, chatFailure{Error: llm.HighLoadMessage, Details: err.Error(), RequestID: meta.requestID}
		}
		return http.StatusInternalServerError, chatFailure{Error: "Failed to process message", Details: err.Error(), RequestID: meta.requestID}
	}

	var tokens int
	if resp.Metadata != nil && resp.Metadata.Usage != nil {
		tokens = resp.Metadata.Usage.TotalTokens
	}
	h.logger.Info("Agent chat response", "request_id", meta.requestID, "tokens", tokens)
	h.logTurn(meta, req, "outbound", "chat_assistant_message", resp.Message, map[string]any{
		"tokens":          tokens,
		"requires_action": resp.RequiresAction != nil,
	})

	return http.StatusOK, chatResult{
		Success:   true,
		Agent:     req.AgentType,
		Response:  resp,
		RequestID: meta.requestID,
	}
}

// ListAgents handles GET /api/ai/agent/chat.
func (h *ChatHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"agents": h.agents.Infos()})
}

// ClearConversation handles DELETE /api/ai/agent/{agentType}/conversations/{conversationId}.
func (h *ChatHandler) ClearConversation(w http.ResponseWriter, r *http.Request) {
	a, err := h.agents.Lookup(chi.URLParam(r, "agentType"))
	if err != nil {
		Error(w, http.StatusNotFound, err.Error())
		return
	}
	id := chi.URLParam(r, "conversationId")
	if err := a.Clear(r.Context(), id); err != nil {
		h.logger.Error("Failed to clear conversation", "agent_type", a.Type(), "conversation_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "failed to clear conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Socket handles GET /api/ai/agent/ws. Each text frame is a chat request and
// is answered with the body the HTTP endpoint would have returned.
func (h *ChatHandler) Socket(w http.ResponseWriter, r *http.Request) {
	meta := h.meta(r, "chat_ws")

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("Failed to accept WebSocket", "error", err, "user_id", meta.userID)
		return
	}
	ws.SetReadLimit(h.maxBody)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr, "user_id", meta.userID)
		}
	}()

	ctx := r.Context()
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				h.logger.Debug("WebSocket closed by client", "user_id", meta.userID)
			} else {
				h.logger.Warn("WebSocket read error", "error", err, "user_id", meta.userID)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		frameMeta := meta
		frameMeta.requestID = meta.requestID + "-" + shortID()

		var req chatRequest
		var body any
		if err := json.Unmarshal(data, &req); err != nil {
			body = chatFailure{Error: "invalid JSON frame", Details: err.Error(), RequestID: frameMeta.requestID}
		} else {
			_, body = h.serve(ctx, req, frameMeta)
		}

		if err := writeJSON(ctx, ws, body); err != nil {
			h.logger.Warn("WebSocket write error", "error", err, "user_id", meta.userID)
			return
		}
	}
}

func (h *ChatHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	h.logger.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *ChatHandler) meta(r *http.Request, channel string) turnMeta {
	return turnMeta{
		requestID: requestID(r),
		userID:    identity.UserIDFromContext(r.Context()),
		sessionID: identity.SessionIDFromContext(r.Context()),
		userAgent: r.UserAgent(),
		channel:   channel,
	}
}

func (h *ChatHandler) logTurn(meta turnMeta, req chatRequest, direction, eventType, content string, extra map[string]any) {
	fields := map[string]any{"request_id": meta.requestID}
	for k, v := range extra {
		fields[k] = v
	}
	h.log.Log(convlog.Event{
		UserID:         meta.userID,
		SessionID:      meta.sessionID,
		ConversationID: req.ConversationID,
		AgentType:      req.AgentType,
		Channel:        meta.channel,
		Direction:      direction,
		EventType:      eventType,
		ContentRaw:     content,
		Meta:           fields,
	})
}

func writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
