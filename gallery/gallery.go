// ABOUTME: Plot gallery: the deduplicated, first-seen-ordered set of plot artifacts and the current selection.
// ABOUTME: Selecting an artifact resolves it to the backend's static artifact URL by base filename.
package gallery

import (
	"github.com/2389-research/crystalens/runapi"
	"github.com/2389-research/crystalens/runs"
	"github.com/2389-research/crystalens/timeline"
)

// EmptyMessage is shown when no plots have been produced.
const EmptyMessage = "No plots yet."

// FromEvents extracts every plot artifact referenced by events, deduplicated
// by exact path with the first occurrence deciding order. The result depends
// only on events, so repeated scans agree.
func FromEvents(events []runs.Event) []runs.PlotArtifact {
	seen := make(map[runs.PlotArtifact]bool)
	var out []runs.PlotArtifact
	for _, evt := range events {
		for _, a := range runs.PlotArtifacts(evt) {
			if seen[a] {
				continue
			}
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// FromItems is FromEvents over the event items of a timeline.
func FromItems(items []timeline.Item) []runs.PlotArtifact {
	return FromEvents(timeline.Events(items))
}

// Gallery holds the artifact list and which one is displayed.
type Gallery struct {
	artifacts []runs.PlotArtifact
	selected  int
}

// New returns an empty gallery.
func New() *Gallery {
	return &Gallery{selected: -1}
}

// Refresh replaces the artifact list. The current selection is kept if it is
// still present; otherwise the first artifact is selected.
func (g *Gallery) Refresh(artifacts []runs.PlotArtifact) {
	var current runs.PlotArtifact
	hadSelection := g.selected >= 0 && g.selected < len(g.artifacts)
	if hadSelection {
		current = g.artifacts[g.selected]
	}
	g.artifacts = append(g.artifacts[:0:0], artifacts...)
	g.selected = -1
	if len(g.artifacts) == 0 {
		return
	}
	g.selected = 0
	if hadSelection {
		for i, a := range g.artifacts {
			if a == current {
				g.selected = i
				break
			}
		}
	}
}

// Artifacts returns a copy of the list.
func (g *Gallery) Artifacts() []runs.PlotArtifact {
	out := make([]runs.PlotArtifact, len(g.artifacts))
	copy(out, g.artifacts)
	return out
}

// Len returns the number of artifacts.
func (g *Gallery) Len() int { return len(g.artifacts) }

// Empty reports whether there is nothing to show.
func (g *Gallery) Empty() bool { return len(g.artifacts) == 0 }

// Selected returns the displayed artifact.
func (g *Gallery) Selected() (runs.PlotArtifact, bool) {
	if g.selected < 0 || g.selected >= len(g.artifacts) {
		return "", false
	}
	return g.artifacts[g.selected], true
}

// SelectedIndex returns the index of the selection, or -1.
func (g *Gallery) SelectedIndex() int { return g.selected }

// Select displays the artifact with the given path or base filename.
// It reports whether one was found.
func (g *Gallery) Select(pathOrName string) bool {
	for i, a := range g.artifacts {
		if string(a) == pathOrName {
			g.selected = i
			return true
		}
	}
	for i, a := range g.artifacts {
		if a.Name() == pathOrName {
			g.selected = i
			return true
		}
	}
	return false
}

// Next moves the selection forward, wrapping around.
func (g *Gallery) Next() {
	if len(g.artifacts) == 0 {
		return
	}
	g.selected = (g.selected + 1) % len(g.artifacts)
}

// Prev moves the selection backward, wrapping around.
func (g *Gallery) Prev() {
	if len(g.artifacts) == 0 {
		return
	}
	g.selected = (g.selected - 1 + len(g.artifacts)) % len(g.artifacts)
}

// URL returns the address serving a, under httpBase.
func URL(httpBase string, a runs.PlotArtifact) string {
	return runapi.ArtifactURL(httpBase, string(a))
}
