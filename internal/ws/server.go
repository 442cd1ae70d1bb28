// Package ws is the real-time channel. It funnels message events into the
// same resolve -> generate -> persist pipeline as the HTTP channel and
// emits the outcome back on the connection that delivered the message.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/gopherchat/gopherchat/internal/ai"
	"github.com/gopherchat/gopherchat/internal/auth"
	"github.com/gopherchat/gopherchat/internal/chat"
	"github.com/gopherchat/gopherchat/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Event type names on the wire.
const (
	TypeConnectionStatus = "connection_status"
	TypeMessage          = "message"
	TypeResponse         = "response"
	TypeError            = "error"
)

type inboundEvent struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Provider string `json:"provider"`
}

type statusEvent struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type responseEvent struct {
	Type      string    `json:"type"`
	Response  string    `json:"response"`
	Provider  string    `json:"provider"`
	Timestamp time.Time `json:"timestamp"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Server struct {
	secret   string
	db       *gorm.DB
	chatSvc  *chat.Service
	upgrader websocket.Upgrader
}

func NewServer(secret string, db *gorm.DB, svc *chat.Service) *Server {
	return &Server{
		secret:  secret,
		db:      db,
		chatSvc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// connection is one client socket. Outgoing frames go through the send
// channel so the write pump is the only writer.
type connection struct {
	id    string
	token string
	ws    *websocket.Conn
	send  chan []byte
}

// Handle upgrades the request and runs the connection lifecycle. It is
// mounted on the shared gin router.
func (s *Server) Handle(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	conn := &connection{
		id:    uuid.New().String(),
		token: tokenFromRequest(c.Request),
		ws:    ws,
		send:  make(chan []byte, 16),
	}
	log.Printf("ws: connected id=%s", conn.id)

	go s.writePump(conn)
	s.sendEvent(conn, statusEvent{Type: TypeConnectionStatus, Status: "connected"})
	s.readPump(conn)
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return r.URL.Query().Get("token")
}

func (s *Server) readPump(conn *connection) {
	defer func() {
		close(conn.send)
		log.Printf("ws: disconnected id=%s", conn.id)
	}()

	conn.ws.SetReadLimit(maxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read error id=%s: %v", conn.id, err)
			}
			return
		}

		var ev inboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			s.sendEvent(conn, errorEvent{Type: TypeError, Message: "invalid json"})
			continue
		}

		switch ev.Type {
		case TypeMessage:
			// Generation blocks; handle each message on its own goroutine
			// so concurrent messages never serialize on one provider call.
			go s.handleMessage(conn, ev)
		default:
			s.sendEvent(conn, errorEvent{Type: TypeError, Message: "unknown event type: " + ev.Type})
		}
	}
}

func (s *Server) writePump(conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.ws.Close()
	}()

	for {
		select {
		case data, ok := <-conn.send:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("ws: write error id=%s: %v", conn.id, err)
				return
			}
		case <-ticker.C:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage runs the shared pipeline for one message event. Failures,
// auth included, become error events; the connection stays open.
func (s *Server) handleMessage(conn *connection, ev inboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ws: panic recovered id=%s: %v", conn.id, r)
			s.sendEvent(conn, errorEvent{Type: TypeError, Message: "internal error"})
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	user, err := s.resolveUser(ctx, conn.token)
	if err != nil {
		s.sendEvent(conn, errorEvent{Type: TypeError, Message: "Unauthorized"})
		return
	}

	if ev.Message == "" {
		s.sendEvent(conn, errorEvent{Type: TypeError, Message: "message is required"})
		return
	}
	provider, err := ai.ParseProviderName(ev.Provider)
	if err != nil {
		s.sendEvent(conn, errorEvent{Type: TypeError, Message: "unknown provider"})
		return
	}

	exchange, err := s.chatSvc.SendMessage(ctx, user.ID, ev.Message, provider)
	if err != nil {
		if errors.Is(err, ai.ErrNoProviderAvailable) {
			s.sendEvent(conn, errorEvent{Type: TypeError, Message: "no provider available"})
			return
		}
		log.Printf("ws: message failed id=%s user=%d: %v", conn.id, user.ID, err)
		s.sendEvent(conn, errorEvent{Type: TypeError, Message: "failed to process message"})
		return
	}

	s.sendEvent(conn, responseEvent{
		Type:      TypeResponse,
		Response:  exchange.Response,
		Provider:  exchange.Provider,
		Timestamp: exchange.CreatedAt,
	})
}

func (s *Server) resolveUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, auth.ErrTokenInvalid
	}
	uid, err := auth.ParseUserID(token, s.secret)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, uid).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Server) sendEvent(conn *connection, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	defer func() {
		// send may race with readPump closing the channel on disconnect.
		_ = recover()
	}()
	select {
	case conn.send <- data:
	default:
		log.Printf("ws: send buffer full id=%s, dropping frame", conn.id)
	}
}
