// ABOUTME: In-memory backend for TUI tests: a RunAPI that hands out fixed run ids and a Dialer that replays frames.
// ABOUTME: Lets the AppModel drive a real console.Session without sockets.
package tui

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/2389-research/crystalens/console"
	"github.com/2389-research/crystalens/runapi"
	"github.com/2389-research/crystalens/stream"
)

type fakeAPI struct {
	mu     sync.Mutex
	ids    []runapi.RunID
	err    error
	inputs []string
}

func (f *fakeAPI) CreateRun(_ context.Context, input string) (runapi.RunID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return "", f.err
	}
	if len(f.ids) == 0 {
		return "", runapi.ErrNoRunID
	}
	id := f.ids[0]
	f.ids = f.ids[1:]
	return id, nil
}

func (f *fakeAPI) StreamURL(id runapi.RunID) string {
	return "ws://backend.test/api/runs/" + string(id) + "/stream"
}

func (f *fakeAPI) HTTPBase() string { return "http://backend.test" }

// fakeConn yields its frames, then blocks until closed.
type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn(frames ...string) *fakeConn {
	c := &fakeConn{frames: make(chan []byte, len(frames)), closed: make(chan struct{})}
	for _, f := range frames {
		c.frames <- []byte(f)
	}
	return c
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.frames:
		return 1, f, nil
	default:
	}
	select {
	case f := <-c.frames:
		return 1, f, nil
	case <-c.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type fakeDialer struct {
	frames []string
}

func (d fakeDialer) DialContext(context.Context, string, http.Header) (stream.Conn, *http.Response, error) {
	return newFakeConn(d.frames...), nil, nil
}

func newTestSession(t *testing.T, api *fakeAPI, frames ...string) *console.Session {
	t.Helper()
	s := console.New(api, fakeDialer{frames: frames})
	t.Cleanup(s.Close)
	return s
}

// settle lets the session's forwarder deliver pending stream events.
func settle(t *testing.T, s *console.Session, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.Pump()
		if s.Snapshot().EventCount >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events", want)
}

var _ stream.Dialer = fakeDialer{}
