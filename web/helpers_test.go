// ABOUTME: Test fixtures for the web mirror: an in-memory run API and a stream dialer that replays frames.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/2389-research/crystalens/console"
	"github.com/2389-research/crystalens/metrics"
	"github.com/2389-research/crystalens/runapi"
	"github.com/2389-research/crystalens/runs"
	"github.com/2389-research/crystalens/stream"
	"github.com/2389-research/crystalens/timeline"
)

type stubAPI struct{ id runapi.RunID }

func (a stubAPI) CreateRun(context.Context, string) (runapi.RunID, error) { return a.id, nil }

func (a stubAPI) StreamURL(id runapi.RunID) string {
	return "ws://backend.test/api/runs/" + string(id) + "/stream"
}

func (a stubAPI) HTTPBase() string { return "http://backend.test" }

type replayConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func (c *replayConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.frames:
		return 1, f, nil
	default:
	}
	select {
	case f := <-c.frames:
		return 1, f, nil
	case <-c.closed:
		return 0, nil, errors.New("closed")
	}
}

func (c *replayConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type replayDialer []string

func (d replayDialer) DialContext(context.Context, string, http.Header) (stream.Conn, *http.Response, error) {
	c := &replayConn{frames: make(chan []byte, len(d)), closed: make(chan struct{})}
	for _, f := range d {
		c.frames <- []byte(f)
	}
	return c, nil, nil
}

// newTestServer returns a server over a session that has submitted "hi" and
// received frames. With no frames the session stays empty.
func newTestServer(t *testing.T, frames ...string) (*Server, *console.Session) {
	t.Helper()
	rec := metrics.New()
	s := console.New(stubAPI{id: "r1"}, replayDialer(frames), console.WithMetrics(rec))
	t.Cleanup(s.Close)
	if len(frames) > 0 {
		if err := s.Submit(context.Background(), "hi"); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		deadline := time.Now().Add(5 * time.Second)
		for s.Snapshot().EventCount < len(frames) {
			if time.Now().After(deadline) {
				t.Fatal("timed out waiting for frames")
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
	srv, err := NewServer(ServerConfig{Session: s, Metrics: rec})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv, s
}

func timelineWithText(t *testing.T, author, text string) []timeline.Item {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"author":  author,
		"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	tl := timeline.New()
	tl.Sync([]runs.Event{{Type: runs.EventAgent, Payload: payload}})
	return tl.Items()
}
