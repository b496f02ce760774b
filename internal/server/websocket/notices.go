package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/wander-server/internal/events"
	"github.com/USA-RedDragon/wander-server/internal/metrics"
	"github.com/USA-RedDragon/wander-server/internal/navigation"
	"github.com/USA-RedDragon/wander-server/internal/websocket"
	gorillaWebsocket "github.com/gorilla/websocket"
)

// NoticesWebsocket streams a session's events to its connected clients as
// JSON text frames.
type NoticesWebsocket struct {
	eventBus   *events.EventBus
	navigation *navigation.Service
	metrics    *metrics.Metrics
}

func CreateNoticesWebsocket(eventBus *events.EventBus, nav *navigation.Service, metrics *metrics.Metrics) *NoticesWebsocket {
	return &NoticesWebsocket{
		eventBus:   eventBus,
		navigation: nav,
		metrics:    metrics,
	}
}

func (n *NoticesWebsocket) OnMessage(_ context.Context, _ *http.Request, _ websocket.Writer, msg []byte, msgType int, sessionID string) {
	slog.Debug("Ignoring client message", "session", sessionID, "type", msgType, "length", len(msg))
}

func (n *NoticesWebsocket) OnConnect(ctx context.Context, _ *http.Request, w websocket.Writer, sessionID string) {
	sub := n.eventBus.Subscribe(sessionID)
	if n.metrics != nil {
		n.metrics.IncrementNoticeSubscribers()
	}

	// The session may have been deleted between the upgrade and Subscribe,
	// in which case CloseSession has already run and sub.Done stays open.
	if _, err := n.navigation.Snapshot(sessionID); err != nil {
		sub.Cancel()
		w.Error("session closed")
		return
	}
	slog.Debug("Notice subscriber connected", "session", sessionID)

	go func() {
		defer sub.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.Done:
				w.Error("session closed")
				return
			case event := <-sub.C:
				data, err := json.Marshal(event)
				if err != nil {
					slog.Error("Failed to marshal event", "error", err)
					continue
				}
				w.WriteMessage(websocket.Message{
					Type: gorillaWebsocket.TextMessage,
					Data: data,
				})
			}
		}
	}()
}

func (n *NoticesWebsocket) OnDisconnect(_ context.Context, _ *http.Request, sessionID string) {
	if n.metrics != nil {
		n.metrics.DecrementNoticeSubscribers()
	}
	slog.Debug("Notice subscriber disconnected", "session", sessionID)
}
