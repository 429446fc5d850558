// ABOUTME: Timeline merges user prompts and streamed events into one append-only, ordered feed.
// ABOUTME: Events are appended incrementally by comparing against the last processed count.
package timeline

import (
	"fmt"
	"math"
	"strconv"

	"github.com/oklog/ulid/v2"

	"github.com/2389-research/crystalens/runs"
)

// Kind distinguishes user-authored items from streamed events.
type Kind int

const (
	KindUser Kind = iota
	KindEvent
)

// Item is one entry of the feed. ID is stable for the item's lifetime.
type Item struct {
	Kind     Kind
	ID       string
	Text     string
	Event    runs.Event
	Category runs.Category
}

// Timeline is the ordered feed for one console session. It is not safe for
// concurrent use; console.Session guards it.
type Timeline struct {
	items     []Item
	processed int
	running   bool
	base      int
}

// New returns an empty timeline.
func New() *Timeline {
	return &Timeline{}
}

// AddUser appends a user-authored entry.
func (t *Timeline) AddUser(text string) Item {
	it := Item{Kind: KindUser, ID: "u-" + ulid.Make().String(), Text: text}
	t.items = append(t.items, it)
	return it
}

// Sync appends the events of log past the last processed count and returns
// how many were added. log is the subscriber's full event list; earlier
// items are never touched.
func (t *Timeline) Sync(log []runs.Event) int {
	if len(log) <= t.processed {
		return 0
	}
	fresh := log[t.processed:]
	for i, evt := range fresh {
		idx := t.processed + i
		t.items = append(t.items, Item{
			Kind:     KindEvent,
			ID:       eventID(evt, t.base+idx),
			Event:    evt,
			Category: runs.Classify(evt),
		})
		switch {
		case evt.Type.IsTerminal():
			t.running = false
		case evt.Type == runs.EventStatus:
			t.running = true
		}
	}
	t.processed = len(log)
	return len(fresh)
}

// Reset prepares for a new run whose event log starts empty. History is
// kept; only the processed counter restarts.
func (t *Timeline) Reset() {
	t.base += t.processed
	t.processed = 0
}

// MarkStarted flags the session as running when a run has been created,
// before any event arrives.
func (t *Timeline) MarkStarted() {
	t.running = true
}

// Running reports whether the most recent status-bearing event indicates an
// active run: done/error mean idle, status means running.
func (t *Timeline) Running() bool {
	return t.running
}

// Processed returns how many events of the current run have been appended.
func (t *Timeline) Processed() int {
	return t.processed
}

// Len returns the number of items.
func (t *Timeline) Len() int {
	return len(t.items)
}

// Items returns a copy of every item in display order.
func (t *Timeline) Items() []Item {
	out := make([]Item, len(t.items))
	copy(out, t.items)
	return out
}

// View returns the items shown under filter. The agent view also shows the
// user's own prompts; unclassified events appear nowhere.
func (t *Timeline) View(filter runs.Category) []Item {
	return Filter(t.items, filter)
}

// Filter selects the items of items shown under filter.
func Filter(items []Item, filter runs.Category) []Item {
	var out []Item
	for _, it := range items {
		switch it.Kind {
		case KindUser:
			if filter == runs.CategoryAgent {
				out = append(out, it)
			}
		case KindEvent:
			if it.Category != runs.CategoryNone && it.Category == filter {
				out = append(out, it)
			}
		}
	}
	return out
}

// Events returns the events of all event items in order.
func Events(items []Item) []runs.Event {
	var out []runs.Event
	for _, it := range items {
		if it.Kind == KindEvent {
			out = append(out, it.Event)
		}
	}
	return out
}

// eventID prefers the backend's event id, else author-timestamp-index.
func eventID(evt runs.Event, index int) string {
	p := evt.Agent()
	if p.ID != "" {
		return p.ID
	}
	author := p.ResolvedAuthor()
	if author == "" {
		author = "anon"
	}
	ts := "0"
	if p.Timestamp != 0 && !math.IsNaN(p.Timestamp) {
		ts = strconv.FormatFloat(p.Timestamp, 'f', -1, 64)
	}
	return fmt.Sprintf("%s-%s-%d", author, ts, index)
}
