package websocket

import (
	"github.com/ramonehamilton/commander-craft/internal/events"
)

// WebSocketObserver forwards dispatched events to WebSocket clients.
type WebSocketObserver struct {
	name  string
	hub   *Hub
	types map[string]bool
}

// NewWebSocketObserver creates an observer for hub. With no types every
// event is forwarded.
func NewWebSocketObserver(hub *Hub, types ...string) *WebSocketObserver {
	o := &WebSocketObserver{name: "WebSocketObserver", hub: hub}
	if len(types) > 0 {
		o.types = make(map[string]bool, len(types))
		for _, t := range types {
			o.types[t] = true
		}
	}
	return o
}

// OnEvent broadcasts the event. The event context is not forwarded.
func (o *WebSocketObserver) OnEvent(event events.Event) error {
	if o.hub == nil {
		return nil
	}
	o.hub.BroadcastEvent(Event{Type: event.Type, Data: event.Data})
	return nil
}

// GetName returns the observer's name.
func (o *WebSocketObserver) GetName() string {
	return o.name
}

// ShouldHandle reports whether eventType is forwarded.
func (o *WebSocketObserver) ShouldHandle(eventType string) bool {
	return o.types == nil || o.types[eventType]
}

var _ events.Observer = (*WebSocketObserver)(nil)
