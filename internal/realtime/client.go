package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aura-interview/backend/internal/interviews"
	"github.com/aura-interview/backend/internal/logger"
	"github.com/aura-interview/backend/internal/models"
	"github.com/aura-interview/backend/pkg/response"
)

// Client events.
const (
	EventCandidateResponse = "candidate-response"
	EventPause             = "pause"
	EventResume            = "resume"
	EventEndInterview      = "end-interview"
	// EventError is sent to the one client whose command failed.
	EventError = "error"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware guards the HTTP API; browsers send interviews from any app origin
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Controller is the interview operations a client can drive.
type Controller interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Interview, error)
	SubmitTurn(ctx context.Context, id uuid.UUID, in interviews.TurnInput) (*interviews.TurnResult, error)
	Pause(ctx context.Context, id uuid.UUID) (*interviews.StatusResult, error)
	Resume(ctx context.Context, id uuid.UUID) (*interviews.StatusResult, error)
	EndSession(ctx context.Context, id uuid.UUID) (*interviews.EndResult, error)
}

// Client represents a single WebSocket connection to an interview.
type Client struct {
	ID          string
	InterviewID uuid.UUID
	JoinedAt    time.Time
	hub         *Hub
	ctrl        Controller
	conn        *websocket.Conn
	send        chan WSMessage
	logger      *zap.Logger
}

// ServeWs handles GET /ws/interviews/:id: upgrades the connection and runs the client loop.
func ServeWs(hub *Hub, ctrl Controller, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		interviewID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid interview id")
			return
		}
		iv, err := ctrl.GetSession(c.Request.Context(), interviewID)
		if err != nil {
			status, code := interviews.ErrorCode(err)
			response.Error(c, status, code, err.Error())
			return
		}
		if iv.Status.Terminal() {
			response.Conflict(c, "session_not_active", "interview has ended")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:          uuid.New().String(),
			InterviewID: interviewID,
			JoinedAt:    time.Now(),
			hub:         hub,
			ctrl:        ctrl,
			conn:        conn,
			send:        make(chan WSMessage, sendBuffer),
			logger:      log.With(zap.String(logger.FieldInterview, interviewID.String())),
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", zap.Error(err))
			}
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case EventCandidateResponse, EventPause, EventResume, EventEndInterview:
			// Results reach every client through the hub; the reader keeps serving pings meanwhile.
			go c.handle(msg)
		default:
			c.hub.SendToClient(c, EventError, ErrorPayload{Code: "unknown_event", Message: "unknown event " + msg.Event})
		}
	}
}

// handle runs one client command. Commands outlive the connection so a candidate who drops
// mid-turn still has the answer recorded.
func (c *Client) handle(msg WSMessage) {
	ctx := context.Background()
	var err error
	switch msg.Event {
	case EventCandidateResponse:
		var in struct {
			Message   string `json:"message"`
			AudioURL  string `json:"audioUrl"`
			TurnToken string `json:"turnToken"`
		}
		if jerr := json.Unmarshal(msg.Data, &in); jerr != nil {
			c.hub.SendToClient(c, EventError, ErrorPayload{Code: "bad_request", Message: "invalid candidate-response payload"})
			return
		}
		_, err = c.ctrl.SubmitTurn(ctx, c.InterviewID, interviews.TurnInput{
			Message:   in.Message,
			AudioURL:  in.AudioURL,
			TurnToken: in.TurnToken,
		})
	case EventPause:
		_, err = c.ctrl.Pause(ctx, c.InterviewID)
	case EventResume:
		_, err = c.ctrl.Resume(ctx, c.InterviewID)
	case EventEndInterview:
		_, err = c.ctrl.EndSession(ctx, c.InterviewID)
	}
	if err == nil {
		return
	}
	_, code := interviews.ErrorCode(err)
	if code == "internal" || errors.Is(err, interviews.ErrPersistence) {
		c.logger.Warn("websocket command failed", zap.String("event", msg.Event), zap.Error(err))
	}
	c.hub.SendToClient(c, EventError, ErrorPayload{Code: code, Message: err.Error()})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
