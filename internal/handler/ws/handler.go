package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	chathandler "github.com/zhouzirui/medguide/backend/internal/handler/chat"
	triageservice "github.com/zhouzirui/medguide/backend/internal/service/triage"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Frame types.
const (
	TypeSubmit    = "submit"
	TypeConnected = "connected"
	TypeStage     = "stage"
	TypeResult    = "result"
	TypeError     = "error"
)

// Handler runs triage turns over a WebSocket.
type Handler struct {
	svc      *triageservice.Service
	upgrader websocket.Upgrader
}

// New creates a WebSocket handler.
func New(svc *triageservice.Service, allowedOrigins []string) *Handler {
	return &Handler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversationId,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	Timestamp      int64       `json:"timestamp"`
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(msg outgoingMessage) {
	msg.Timestamp = time.Now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(msg); err != nil {
		log.Debug().Err(err).Str("type", msg.Type).Msg("websocket write failed")
	}
}

func (c *conn) sendError(conversationID, message string) {
	c.send(outgoingMessage{Type: TypeError, ConversationID: conversationID, Data: map[string]string{"error": message}})
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()

	c := &conn{ws: ws}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go pingLoop(ctx, ws)

	c.send(outgoingMessage{Type: TypeConnected, Data: map[string]string{"provider": h.svc.ProviderName()}})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case TypeSubmit:
			h.handleSubmit(ctx, c, msg.Data)
		default:
			c.sendError("", "unsupported message type: "+msg.Type)
		}
	}
}

func (h *Handler) handleSubmit(ctx context.Context, c *conn, raw json.RawMessage) {
	var payload chathandler.SubmitPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError("", "invalid submit payload")
		return
	}

	req := payload.Request()
	result, err := h.svc.SubmitWithProgress(ctx, req, func(p triageservice.Progress) {
		c.send(outgoingMessage{Type: TypeStage, ConversationID: p.ConversationID, Data: p})
	})
	if err != nil {
		_, message := chathandler.SubmitErrorStatus(err)
		c.sendError(req.ConversationID, message)
		return
	}

	c.send(outgoingMessage{Type: TypeResult, ConversationID: result.Conversation.ID, Data: result})
}

func pingLoop(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
