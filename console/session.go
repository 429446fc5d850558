// ABOUTME: Session is the state container of one console view: current run, its subscriber, timeline, and gallery.
// ABOUTME: Submit creates a run and swaps in a fresh subscriber; Pump folds newly streamed events into the feed.
package console

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/2389-research/crystalens/gallery"
	"github.com/2389-research/crystalens/metrics"
	"github.com/2389-research/crystalens/runapi"
	"github.com/2389-research/crystalens/runs"
	"github.com/2389-research/crystalens/stream"
	"github.com/2389-research/crystalens/timeline"
)

var (
	// ErrEmptyPrompt is returned for blank input; nothing is sent.
	ErrEmptyPrompt = errors.New("console: empty prompt")
	// ErrBusy is returned while a run creation request is in flight.
	ErrBusy = errors.New("console: run creation in progress")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("console: session closed")
)

// RunAPI is the subset of the backend client a session needs.
type RunAPI interface {
	CreateRun(ctx context.Context, input string) (runapi.RunID, error)
	StreamURL(id runapi.RunID) string
	HTTPBase() string
}

// Session owns all state for one mounted console. Methods are safe for
// concurrent use; the TUI and the web mirror share one session.
type Session struct {
	api     RunAPI
	dialer  stream.Dialer
	logger  *slog.Logger
	metrics *metrics.Recorder

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sub      *stream.Subscriber
	timeline *timeline.Timeline
	gallery  *gallery.Gallery
	loading  bool
	lastErr  error
	closed   bool

	changed chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records run creation and stream traffic on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Session) { s.metrics = m }
}

// New creates an idle session.
func New(api RunAPI, dialer stream.Dialer, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		api:      api,
		dialer:   dialer,
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
		timeline: timeline.New(),
		gallery:  gallery.New(),
		changed:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Changed signals whenever the session has something new to render.
// Signals coalesce.
func (s *Session) Changed() <-chan struct{} { return s.changed }

func (s *Session) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Submit starts a new run for text. Blank text returns ErrEmptyPrompt and a
// concurrent submission returns ErrBusy; neither has side effects. On
// success the previous subscriber is closed, a new one is started, and the
// prompt is appended to the timeline; the caller clears its input. A failed
// run creation leaves everything as it was.
func (s *Session) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyPrompt
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.loading {
		s.mu.Unlock()
		return ErrBusy
	}
	s.loading = true
	s.mu.Unlock()
	s.notify()

	id, err := s.api.CreateRun(ctx, text)
	s.metrics.RunCreated(err == nil)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastErr = fmt.Errorf("create run: %w", err)
		s.mu.Unlock()
		s.logger.Warn("run creation failed", "error", err)
		s.notify()
		return s.lastErr
	}
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	prev := s.sub
	if prev != nil {
		// Fold in whatever the old run delivered before it is dropped.
		s.timeline.Sync(prev.Events())
	}
	sub := stream.New(s.dialer, s.api.StreamURL(id), string(id),
		stream.WithLogger(s.logger.With("subsystem", "stream")),
		stream.WithMetrics(s.metrics))
	s.sub = sub
	s.lastErr = nil
	s.timeline.Reset()
	s.timeline.MarkStarted()
	s.timeline.AddUser(text)
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	s.logger.Info("run created", "run_id", id)

	go s.forward(sub)
	if err := sub.Start(s.ctx); err != nil {
		s.mu.Lock()
		if s.sub == sub {
			s.lastErr = err
		}
		s.mu.Unlock()
	}
	s.notify()
	return nil
}

// forward relays subscriber updates to Changed until the subscriber closes.
func (s *Session) forward(sub *stream.Subscriber) {
	for {
		select {
		case <-sub.Updates():
			s.notify()
		case <-sub.Done():
			s.notify()
			return
		}
	}
}

// Pump appends the current subscriber's new events to the timeline and
// refreshes the gallery. It returns the number of items added.
func (s *Session) Pump() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub == nil {
		return 0
	}
	n := s.timeline.Sync(s.sub.Events())
	if n > 0 {
		s.gallery.Refresh(gallery.FromItems(s.timeline.Items()))
	}
	if err := s.sub.Err(); err != nil && s.lastErr == nil {
		s.lastErr = err
	}
	return n
}

// SelectPlot changes the gallery selection by path or base filename.
func (s *Session) SelectPlot(pathOrName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gallery.Select(pathOrName)
}

// NextPlot advances the gallery selection.
func (s *Session) NextPlot() {
	s.mu.Lock()
	s.gallery.Next()
	s.mu.Unlock()
}

// PrevPlot moves the gallery selection back.
func (s *Session) PrevPlot() {
	s.mu.Lock()
	s.gallery.Prev()
	s.mu.Unlock()
}

// Close releases the current subscriber. Further submissions fail with ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sub := s.sub
	s.mu.Unlock()
	s.cancel()
	if sub != nil {
		sub.Close()
	}
}

// Snapshot is an immutable view of the session for renderers.
type Snapshot struct {
	RunID       string
	StreamURL   string
	StreamState stream.State
	EventCount  int
	Running     bool
	Loading     bool
	Err         error
	HTTPBase    string
	Items       []timeline.Item
	Plots       []runs.PlotArtifact
	Selected    int
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Running:  s.timeline.Running(),
		Loading:  s.loading,
		Err:      s.lastErr,
		HTTPBase: s.api.HTTPBase(),
		Items:    s.timeline.Items(),
		Plots:    s.gallery.Artifacts(),
		Selected: s.gallery.SelectedIndex(),
	}
	if s.sub != nil {
		snap.RunID = s.sub.RunID()
		snap.StreamURL = s.sub.URL()
		snap.StreamState = s.sub.State()
		snap.EventCount = s.sub.Len()
	}
	return snap
}

// View returns the snapshot items shown under filter.
func (snap Snapshot) View(filter runs.Category) []timeline.Item {
	return timeline.Filter(snap.Items, filter)
}

// SelectedPlot returns the selected artifact, if any.
func (snap Snapshot) SelectedPlot() (runs.PlotArtifact, bool) {
	if snap.Selected < 0 || snap.Selected >= len(snap.Plots) {
		return "", false
	}
	return snap.Plots[snap.Selected], true
}

// PlotURL resolves a to the backend's artifact URL.
func (snap Snapshot) PlotURL(a runs.PlotArtifact) string {
	return gallery.URL(snap.HTTPBase, a)
}
