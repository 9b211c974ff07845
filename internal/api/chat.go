// internal/api/chat.go
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"banking-assistant/internal/interactions"
	"banking-assistant/internal/models"
	"banking-assistant/internal/pipeline"
)

// Chat message types.
const (
	MessageQuery   = "query"
	MessagePing    = "ping"
	MessagePong    = "pong"
	MessageSession = "session"
	MessageAnswer  = "answer"
	MessageError   = "error"
)

const (
	chatReadLimit  = 16 << 10
	chatIdleWindow = 5 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChatMessage is read from the client.
type ChatMessage struct {
	Type         string              `json:"type"`
	Question     string              `json:"question,omitempty"`
	UserLocation *models.Coordinates `json:"userLocation,omitempty"`
}

// ChatEvent is sent to the client.
type ChatEvent struct {
	Type      string             `json:"type"`
	SessionID string             `json:"sessionId"`
	Answer    *pipeline.Response `json:"answer,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Chat handles GET /ws/chat. A client resumes a session by passing
// ?session=<id>; otherwise a new one is created. Each question is answered
// with the session history and both turns are appended afterwards.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade to websocket", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	fields := map[string]interface{}{"sessionId": sessionID}
	h.logger.Info("Chat session started", fields)

	conn.SetReadLimit(chatReadLimit)
	if err := h.send(conn, ChatEvent{Type: MessageSession, SessionID: sessionID}); err != nil {
		return
	}

	ctx := r.Context()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(chatIdleWindow))
		var msg ChatMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Chat connection error", map[string]interface{}{
					"sessionId": sessionID,
					"error":     err.Error(),
				})
			}
			break
		}

		var event ChatEvent
		switch msg.Type {
		case MessagePing:
			event = ChatEvent{Type: MessagePong, SessionID: sessionID}
		case MessageQuery:
			event = h.answerChat(r, sessionID, msg)
		default:
			event = ChatEvent{Type: MessageError, SessionID: sessionID, Error: "unknown message type: " + msg.Type}
		}
		if err := h.send(conn, event); err != nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	h.logger.Info("Chat session ended", fields)
}

func (h *Handler) answerChat(r *http.Request, sessionID string, msg ChatMessage) ChatEvent {
	resp, err := h.answerer.Answer(r.Context(), pipeline.Query{
		Question:     msg.Question,
		SessionID:    sessionID,
		UserLocation: msg.UserLocation,
		History:      h.sessions.History(sessionID),
		Channel:      interactions.TypeChat,
	})
	if err != nil {
		return ChatEvent{Type: MessageError, SessionID: sessionID, Error: err.Error()}
	}

	h.sessions.Append(sessionID,
		models.Turn{Role: models.RoleUser, Content: msg.Question},
		models.Turn{Role: models.RoleAssistant, Content: resp.Response},
	)
	return ChatEvent{Type: MessageAnswer, SessionID: sessionID, Answer: resp}
}

func (h *Handler) send(conn *websocket.Conn, event ChatEvent) error {
	event.Timestamp = time.Now().UTC()
	if err := conn.WriteJSON(event); err != nil {
		h.logger.Warn("Chat write failed", map[string]interface{}{
			"sessionId": event.SessionID,
			"error":     err.Error(),
		})
		return err
	}
	return nil
}
