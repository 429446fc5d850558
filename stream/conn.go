// ABOUTME: Transport seam for run streams: the Dialer/Conn interfaces and their gorilla/websocket implementation.
package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultHandshakeTimeout bounds the WebSocket opening handshake.
const DefaultHandshakeTimeout = 15 * time.Second

// Conn is the read side of an open stream connection.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	Close() error
}

// Dialer opens stream connections.
type Dialer interface {
	DialContext(ctx context.Context, url string, header http.Header) (Conn, *http.Response, error)
}

// WebSocketDialer adapts a gorilla websocket.Dialer to Dialer.
type WebSocketDialer struct {
	Dialer *websocket.Dialer
}

// NewWebSocketDialer returns a dialer with the default handshake timeout.
func NewWebSocketDialer() *WebSocketDialer {
	return &WebSocketDialer{Dialer: &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}}
}

// DialContext implements Dialer.
func (d *WebSocketDialer) DialContext(ctx context.Context, url string, header http.Header) (Conn, *http.Response, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, resp, err
	}
	return conn, resp, nil
}
