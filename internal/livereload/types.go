package livereload

import (
	"time"

	"github.com/coder/websocket"
)

// Message types sent to browsers.
const (
	MessageTypeReload    = "reload"
	MessageTypeConnected = "connected"
)

// Message is the JSON payload broadcast to every connected browser.
type Message struct {
	Type      string    `json:"type"`
	Path      string    `json:"path,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// client is one connected browser.
type client struct {
	conn        *websocket.Conn
	send        chan []byte
	ip          string
	connectedAt time.Time
}
