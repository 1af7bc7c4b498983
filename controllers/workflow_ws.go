package controller

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"

	"fmail/workflow"
)

// WorkflowSocketHandler serves the duplex channel each client opens per
// session: inbound user actions, suggestion responses and email events;
// outbound suggestions and execution notifications.
type WorkflowSocketHandler struct {
	engine *workflow.Engine
	logger *log.Logger
}

func NewWorkflowSocketHandler(engine *workflow.Engine, logger *log.Logger) *WorkflowSocketHandler {
	return &WorkflowSocketHandler{
		engine: engine,
		logger: logger,
	}
}

// wsSession serializes writes to one websocket conn. Pushes arrive from the
// read loop, the debounced analysis goroutine and the hook executor, so the
// raw conn must never be written concurrently.
type wsSession struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSession) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *wsSession) Close() error {
	return s.conn.Close()
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Handle runs the read loop for one (user, session) connection.
func (h *WorkflowSocketHandler) Handle(c *websocket.Conn) {
	userID := c.Params("userID")
	sessionID := c.Params("sessionID")

	session := &wsSession{conn: c}
	h.engine.Connections().Connect(userID, sessionID, session)
	defer func() {
		h.engine.Connections().Disconnect(userID, sessionID)
		c.Close()
		h.logger.Printf("user %s session %s disconnected", userID, sessionID)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Printf("malformed message from %s:%s, closing: %v", userID, sessionID, err)
			return
		}

		switch msg.Type {
		case "user_action":
			h.handleUserAction(userID, sessionID, msg.Data)
		case "suggestion_response":
			h.handleSuggestionResponse(userID, sessionID, msg.Data)
		case "email_event":
			h.handleEmailEvent(userID, sessionID, msg.Data)
		default:
			h.logger.Printf("unknown message type %q from %s:%s", msg.Type, userID, sessionID)
		}
	}
}

func (h *WorkflowSocketHandler) handleUserAction(userID, sessionID string, data json.RawMessage) {
	var payload struct {
		Action   workflow.ActionKind    `json:"action"`
		Email    workflow.EmailRef      `json:"email"`
		Context  map[string]interface{} `json:"context"`
		Duration int                    `json:"duration"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		h.logger.Printf("bad user_action payload from %s:%s: %v", userID, sessionID, err)
		return
	}

	// The server owns identity and time; whatever the client sent is ignored.
	id := h.engine.HandleAction(workflow.UserAction{
		Action:     payload.Action,
		Email:      payload.Email,
		UserID:     userID,
		SessionID:  sessionID,
		Context:    payload.Context,
		DurationMs: payload.Duration,
	})
	h.logger.Printf("stored action %s: %s on email from %s", id, payload.Action, payload.Email.Sender)
}

func (h *WorkflowSocketHandler) handleSuggestionResponse(userID, sessionID string, data json.RawMessage) {
	var payload struct {
		SuggestionID string `json:"suggestion_id"`
		Accepted     bool   `json:"accepted"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		h.logger.Printf("bad suggestion_response payload from %s:%s: %v", userID, sessionID, err)
		return
	}

	h.engine.HandleSuggestionResponse(userID, sessionID, payload.SuggestionID, payload.Accepted)
}

func (h *WorkflowSocketHandler) handleEmailEvent(userID, sessionID string, data json.RawMessage) {
	var payload struct {
		EventType workflow.TriggerEvent `json:"event_type"`
		Email     workflow.EmailRef     `json:"email"`
		Context   struct {
			Location string `json:"location"`
		} `json:"context"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		h.logger.Printf("bad email_event payload from %s:%s: %v", userID, sessionID, err)
		return
	}

	// Results are pushed asynchronously as workflow_notification messages;
	// nothing is answered inline.
	evctx := workflow.NewEventContext(userID, sessionID, payload.Context.Location)
	h.engine.HandleEmailEvent(userID, payload.EventType, payload.Email, evctx)
}
