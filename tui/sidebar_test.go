// ABOUTME: Tests for SidebarModel filter selection, cycling, and rendering.
package tui

import (
	"strings"
	"testing"

	"github.com/2389-research/crystalens/runs"
)

func TestSidebarDefaultsToAgent(t *testing.T) {
	m := NewSidebarModel()
	if m.Active() != runs.CategoryAgent {
		t.Errorf("Active() = %v, want agent", m.Active())
	}
}

func TestSidebarCycle(t *testing.T) {
	tests := []struct {
		name  string
		start runs.Category
		delta int
		want  runs.Category
	}{
		{"forward", runs.CategoryAgent, 1, runs.CategoryCalls},
		{"wraps forward", runs.CategoryPlots, 1, runs.CategoryAgent},
		{"backward", runs.CategoryCalls, -1, runs.CategoryAgent},
		{"wraps backward", runs.CategoryAgent, -1, runs.CategoryPlots},
		{"two steps", runs.CategoryAgent, 2, runs.CategoryResponses},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSidebarModel()
			m.Select(tt.start)
			m.Cycle(tt.delta)
			if m.Active() != tt.want {
				t.Errorf("Cycle(%d) from %v = %v, want %v", tt.delta, tt.start, m.Active(), tt.want)
			}
		})
	}
}

func TestSidebarViewListsFilters(t *testing.T) {
	m := NewSidebarModel()
	m.SetHeight(20)
	view := m.View()
	if !strings.Contains(view, "CrystaLens") {
		t.Error("View() should show the title")
	}
	for _, c := range runs.Categories() {
		if !strings.Contains(view, c.Label()) {
			t.Errorf("View() missing filter %q", c.Label())
		}
	}
}
