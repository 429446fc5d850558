// ABOUTME: Implements the scrollable message feed using the bubbles viewport component.
// ABOUTME: Caches rendered cards by item ID and follows the newest item unless the user scrolled away.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/crystalens/timeline"
)

// feedFollowRows is how close to the bottom, in rows, the feed must be for
// new items to keep scrolling into view.
const feedFollowRows = 2

// FeedPanelModel is the scrollable list of cards for the active filter.
type FeedPanelModel struct {
	items    []timeline.Item
	viewport viewport.Model
	follower timeline.Follower
	expanded bool
	markdown MarkdownRenderer
	width    int
	height   int

	// blocks holds rendered cards by item ID for the current width and
	// expand mode. It spans filter switches; empty strings are cached too.
	blocks map[string]string
}

// NewFeedPanelModel creates an empty feed that renders agent text with md.
func NewFeedPanelModel(md MarkdownRenderer) FeedPanelModel {
	if md == nil {
		md = PlainRenderer{}
	}
	return FeedPanelModel{
		viewport: viewport.New(80, 10),
		follower: timeline.NewFollower(feedFollowRows),
		markdown: md,
		blocks:   make(map[string]string),
	}
}

// SetItems replaces the shown items and scrolls to the newest one when
// following.
func (m *FeedPanelModel) SetItems(items []timeline.Item) {
	m.items = items
	m.syncViewport()
}

// Len returns the number of items in the feed.
func (m FeedPanelModel) Len() int { return len(m.items) }

// Following reports whether the feed sticks to the bottom.
func (m FeedPanelModel) Following() bool { return m.follower.Enabled() }

// Expanded reports whether truncated cards are shown in full.
func (m FeedPanelModel) Expanded() bool { return m.expanded }

// ToggleExpanded flips between collapsed and full cards.
func (m *FeedPanelModel) ToggleExpanded() {
	m.expanded = !m.expanded
	m.blocks = make(map[string]string)
	m.syncViewport()
}

// SetSize sets the available dimensions and updates the viewport.
func (m *FeedPanelModel) SetSize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w == m.width && h == m.height {
		return
	}
	if w != m.width {
		m.blocks = make(map[string]string)
	}
	m.width = w
	m.height = h
	m.viewport.Width = w
	m.viewport.Height = h
	m.syncViewport()
}

// Scroll forwards a user scroll gesture (page keys or mouse wheel) to the
// viewport and updates follow mode from the resulting position.
func (m *FeedPanelModel) Scroll(msg tea.Msg) tea.Cmd {
	m.follower.ManualScroll()
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	m.follower.Scrolled(m.distanceFromBottom())
	return cmd
}

// JumpToBottom scrolls to the newest item and resumes following.
func (m *FeedPanelModel) JumpToBottom() {
	m.viewport.GotoBottom()
	m.follower.Scrolled(m.distanceFromBottom())
}

func (m FeedPanelModel) distanceFromBottom() int {
	d := m.viewport.TotalLineCount() - (m.viewport.YOffset + m.viewport.Height)
	if d < 0 {
		return 0
	}
	return d
}

// View renders the feed.
func (m FeedPanelModel) View() string {
	if len(m.items) == 0 {
		return MutedStyle.Render("Nothing here yet. Type a task below and press enter.")
	}
	return m.viewport.View()
}

// syncViewport rebuilds the viewport content from items. Only items without
// a cached block are rendered; cards already shown keep their text.
func (m *FeedPanelModel) syncViewport() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	if m.blocks == nil {
		m.blocks = make(map[string]string)
	}
	var blocks []string
	for _, it := range m.items {
		s, ok := m.blocks[it.ID]
		if !ok || it.ID == "" {
			s = renderItem(it, width, m.expanded, m.markdown)
			if it.ID != "" {
				m.blocks[it.ID] = s
			}
		}
		if s != "" {
			blocks = append(blocks, s)
		}
	}
	m.viewport.SetContent(strings.Join(blocks, "\n"))
	if m.follower.Enabled() {
		m.viewport.GotoBottom()
	}
}
