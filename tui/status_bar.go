// ABOUTME: Implements a single-line status bar for the bottom of the console showing run progress.
// ABOUTME: Displays run id, stream state, event count, elapsed time, and the last error or notice.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/crystalens/console"
	"github.com/2389-research/crystalens/stream"
)

// StatusBarModel displays session status in a single line.
type StatusBarModel struct {
	runID     string
	state     stream.State
	events    int
	startTime time.Time
	err       error
	notice    string
	width     int
	now       func() time.Time
}

// NewStatusBarModel creates an idle status bar.
func NewStatusBarModel() StatusBarModel {
	return StatusBarModel{now: time.Now}
}

// Update copies the displayed fields from snap. The elapsed clock restarts
// whenever the run id changes.
func (m *StatusBarModel) Update(snap console.Snapshot) {
	if snap.RunID != m.runID {
		m.runID = snap.RunID
		m.startTime = m.now()
	}
	m.state = snap.StreamState
	m.events = snap.EventCount
	m.err = snap.Err
}

// SetNotice shows a transient message that replaces the error slot.
func (m *StatusBarModel) SetNotice(s string) {
	m.notice = s
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// Elapsed returns the time since the current run started, or zero.
func (m StatusBarModel) Elapsed() time.Duration {
	if m.startTime.IsZero() {
		return 0
	}
	return m.now().Sub(m.startTime)
}

// formatElapsed formats a duration as "12s" or "2m30s".
func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) - minutes*60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	run := m.runID
	if run == "" {
		run = "none"
	}
	content := fmt.Sprintf("Run: %s | Stream: %s | %d events | Elapsed: %s",
		run, StyleForStreamState(m.state).Render(m.state.String()), m.events, formatElapsed(m.Elapsed()))

	switch {
	case m.notice != "":
		content += " | " + m.notice
	case m.err != nil:
		content += " | " + ErrorStyle.Render(m.err.Error())
	}

	style := StatusBarStyle.Width(m.width)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(content))
}
