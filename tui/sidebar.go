// ABOUTME: Sidebar lists the category filters and highlights the active one.
package tui

import (
	"strings"

	"github.com/2389-research/crystalens/runs"
)

// SidebarWidth is the fixed width of the filter column.
const SidebarWidth = 24

// SidebarModel renders the filter list.
type SidebarModel struct {
	active runs.Category
	height int
}

// NewSidebarModel starts on the agent view.
func NewSidebarModel() SidebarModel {
	return SidebarModel{active: runs.CategoryAgent}
}

// Active returns the selected category.
func (m SidebarModel) Active() runs.Category { return m.active }

// Select makes c the active filter.
func (m *SidebarModel) Select(c runs.Category) { m.active = c }

// Cycle moves the selection by delta, wrapping around.
func (m *SidebarModel) Cycle(delta int) {
	cats := runs.Categories()
	idx := 0
	for i, c := range cats {
		if c == m.active {
			idx = i
		}
	}
	idx = ((idx+delta)%len(cats) + len(cats)) % len(cats)
	m.active = cats[idx]
}

// SetHeight sets the rendered height.
func (m *SidebarModel) SetHeight(h int) { m.height = h }

// View renders the brand title and the filters.
func (m SidebarModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("CrystaLens"))
	b.WriteString("\n\n")
	for _, c := range runs.Categories() {
		style := FilterStyle
		if c == m.active {
			style = ActiveFilterStyle
		}
		b.WriteString(style.Width(SidebarWidth - 3).Render(c.Label()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render("tab  next view\nalt+1-4  jump"))
	h := m.height
	if h < 1 {
		h = 1
	}
	return SidebarStyle.Width(SidebarWidth - 1).Height(h).Render(b.String())
}
