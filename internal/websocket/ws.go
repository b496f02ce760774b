package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/USA-RedDragon/wander-server/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const bufferSize = 1024

type Websocket interface {
	OnMessage(ctx context.Context, r *http.Request, w Writer, msg []byte, t int, sessionID string)
	OnConnect(ctx context.Context, r *http.Request, w Writer, sessionID string)
	OnDisconnect(ctx context.Context, r *http.Request, sessionID string)
}

type Message struct {
	Type int
	Data []byte
}

type Writer interface {
	WriteMessage(msg Message)
	Error(reason string)
}

type wsWriter struct {
	writer chan Message
	error  chan string
	done   chan struct{}
}

func (w wsWriter) WriteMessage(msg Message) {
	select {
	case w.writer <- msg:
	case <-w.done:
	}
}

func (w wsWriter) Error(reason string) {
	select {
	case w.error <- reason:
	case <-w.done:
	default:
	}
}

type WSHandler struct {
	wsUpgrader websocket.Upgrader
	handler    Websocket
}

// CheckOrigin allows requests without an Origin header and requests whose
// origin matches one of hosts.
func CheckOrigin(hosts []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(hosts) == 0 {
			return true
		}
		origin = strings.ToLower(origin)
		for _, host := range hosts {
			host = strings.ToLower(host)
			if strings.HasSuffix(host, ":443") && strings.HasPrefix(origin, "https://") {
				host = strings.TrimSuffix(host, ":443")
			}
			if strings.HasSuffix(host, ":80") && strings.HasPrefix(origin, "http://") {
				host = strings.TrimSuffix(host, ":80")
			}
			if strings.Contains(origin, host) {
				return true
			}
		}
		return false
	}
}

func CreateHandler(ws Websocket, config *config.Config) func(*gin.Context) {
	handler := &WSHandler{
		wsUpgrader: websocket.Upgrader{
			ReadBufferSize:  bufferSize,
			WriteBufferSize: bufferSize,
			Subprotocols:    []string{},
			Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
				slog.Warn("Websocket upgrade refused", "status", status, "error", reason)
			},
			CheckOrigin:       CheckOrigin(config.HTTP.CORSHosts),
			EnableCompression: true,
		},
		handler: ws,
	}

	return func(c *gin.Context) {
		sessionID := c.GetString("session_id")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
			return
		}
		conn, err := handler.wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("Failed to set websocket upgrade", "error", err)
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer func() {
			cancel()
			handler.handler.OnDisconnect(ctx, c.Request, sessionID)
			_ = conn.Close()
		}()

		handler.handle(ctx, conn, c.Request, sessionID)
	}
}

func (h *WSHandler) handle(ctx context.Context, conn *websocket.Conn, r *http.Request, sessionID string) {
	writer := wsWriter{
		writer: make(chan Message, bufferSize),
		error:  make(chan string, 1),
		done:   make(chan struct{}),
	}
	defer close(writer.done)
	h.handler.OnConnect(ctx, r, writer, sessionID)

	go func() {
		for {
			t, msg, err := conn.ReadMessage()
			if err != nil {
				writer.Error("read failed")
				return
			}
			switch {
			case t == websocket.PingMessage:
				writer.WriteMessage(Message{
					Type: websocket.PongMessage,
				})
			case strings.EqualFold(string(msg), "ping"):
				writer.WriteMessage(Message{
					Type: websocket.TextMessage,
					Data: []byte("PONG"),
				})
			default:
				h.handler.OnMessage(ctx, r, writer, msg, t, sessionID)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-writer.error:
			slog.Debug("Closing websocket", "session", sessionID, "reason", reason)
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
			return
		case msg := <-writer.writer:
			err := conn.WriteMessage(msg.Type, msg.Data)
			if err != nil {
				return
			}
		}
	}
}
