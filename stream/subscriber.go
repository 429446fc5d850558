// ABOUTME: Subscriber owns one live connection to a run stream and the append-only event log it fills.
// ABOUTME: It moves idle -> connecting -> open -> closed once; there is no reconnect and no replay.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/2389-research/crystalens/metrics"
	"github.com/2389-research/crystalens/runs"
)

// State is the lifecycle position of a Subscriber.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrStarted is returned when Start is called more than once.
var ErrStarted = errors.New("stream: subscriber already started")

// Subscriber consumes the event stream of one run.
type Subscriber struct {
	dialer  Dialer
	url     string
	runID   string
	logger  *slog.Logger
	metrics *metrics.Recorder

	mu     sync.RWMutex
	state  State
	events []runs.Event
	err    error
	conn   Conn

	updates   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Subscriber.
type Option func(*Subscriber)

// WithLogger sets the logger used for dropped lines and transport errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Subscriber) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records traffic on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Subscriber) { s.metrics = m }
}

// New creates an idle subscriber for runID at url. Nothing is dialed until Start.
func New(dialer Dialer, url, runID string, opts ...Option) *Subscriber {
	s := &Subscriber{
		dialer:  dialer,
		url:     url,
		runID:   runID,
		logger:  slog.Default(),
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("run_id", runID)
	return s
}

// RunID returns the run this subscriber is bound to.
func (s *Subscriber) RunID() string { return s.runID }

// URL returns the stream URL.
func (s *Subscriber) URL() string { return s.url }

// Start dials the stream and begins reading in the background. A subscriber
// without a run id stays idle and Start returns nil. A dial failure closes
// the subscriber and is returned. Cancelling ctx closes the connection.
func (s *Subscriber) Start(ctx context.Context) error {
	if s.runID == "" {
		return nil
	}
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrStarted
	}
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	conn, resp, err := s.dialer.DialContext(ctx, s.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		err = fmt.Errorf("stream: dial %s: %w", s.url, err)
		s.logger.Warn("stream dial failed", "url", s.url, "error", err)
		s.finish(err)
		return err
	}

	s.mu.Lock()
	if s.state == StateClosed {
		// Closed while dialing.
		s.mu.Unlock()
		conn.Close()
		return nil
	}
	s.conn = conn
	s.setStateLocked(StateOpen)
	s.mu.Unlock()
	s.logger.Info("stream open", "url", s.url)

	go s.readLoop(conn)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	return nil
}

func (s *Subscriber) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.finish(err)
			return
		}
		events, bad := DecodeFrame(data)
		for _, e := range bad {
			s.logger.Warn("dropping malformed stream line", "error", e)
			s.metrics.LineDropped()
		}
		if len(events) == 0 {
			continue
		}
		for _, evt := range events {
			s.metrics.EventReceived(runs.Classify(evt).String())
		}
		s.mu.Lock()
		s.events = append(s.events, events...)
		s.mu.Unlock()
		s.notify()
	}
}

// finish moves to closed, records err unless it is a clean close, and
// releases the connection.
func (s *Subscriber) finish(err error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		closing := s.state == StateClosed
		if err != nil && !isCleanClose(err) && !closing {
			s.err = err
			s.logger.Warn("stream closed with error", "error", err)
		}
		conn := s.conn
		s.conn = nil
		s.setStateLocked(StateClosed)
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		close(s.done)
		s.notify()
	})
}

func isCleanClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

// Close tears the connection down. It is safe to call repeatedly and from
// any goroutine.
func (s *Subscriber) Close() {
	s.mu.Lock()
	// Mark closed first so the read loop's error is not recorded.
	s.setStateLocked(StateClosed)
	s.mu.Unlock()
	s.finish(nil)
}

func (s *Subscriber) setStateLocked(next State) {
	if s.state == next {
		return
	}
	prev := ""
	if s.state != StateIdle {
		prev = s.state.String()
	}
	s.metrics.Transition(prev, next.String())
	s.state = next
}

func (s *Subscriber) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Updates signals after new events are appended and once on close.
// Signals coalesce; readers should re-read with Since.
func (s *Subscriber) Updates() <-chan struct{} { return s.updates }

// Done is closed once the subscriber reaches the closed state.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// State returns the current lifecycle state.
func (s *Subscriber) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the transport error that closed the stream, if any.
func (s *Subscriber) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Len returns the number of events received so far.
func (s *Subscriber) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Events returns a copy of every event received since Start, in order.
func (s *Subscriber) Events() []runs.Event {
	return s.Since(0)
}

// Since returns a copy of the events after the first n.
func (s *Subscriber) Since(n int) []runs.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(s.events) {
		return nil
	}
	out := make([]runs.Event, len(s.events)-n)
	copy(out, s.events[n:])
	return out
}
