// ABOUTME: Plots panel lists discovered plot artifacts with the selection and the URL it resolves to.
// ABOUTME: Terminals cannot embed the plot, so the selected one opens in the browser instead.
package tui

import (
	"fmt"
	"strings"

	"github.com/2389-research/crystalens/console"
	"github.com/2389-research/crystalens/gallery"
)

// PlotsPanelModel renders the gallery part of a snapshot.
type PlotsPanelModel struct {
	snap   console.Snapshot
	width  int
	height int
}

// NewPlotsPanelModel creates an empty panel.
func NewPlotsPanelModel() PlotsPanelModel {
	return PlotsPanelModel{snap: console.Snapshot{Selected: -1}}
}

// SetSnapshot updates the artifacts and selection shown.
func (m *PlotsPanelModel) SetSnapshot(snap console.Snapshot) { m.snap = snap }

// SetSize sets the available dimensions.
func (m *PlotsPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SelectedURL returns the URL of the selected plot, or "".
func (m PlotsPanelModel) SelectedURL() string {
	a, ok := m.snap.SelectedPlot()
	if !ok {
		return ""
	}
	return m.snap.PlotURL(a)
}

// View renders the list, the selected URL, and key hints.
func (m PlotsPanelModel) View() string {
	if len(m.snap.Plots) == 0 {
		return MutedStyle.Render(gallery.EmptyMessage)
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Plots (%d)", len(m.snap.Plots))))
	b.WriteString("\n\n")
	for i, a := range m.snap.Plots {
		style := PlotStyle
		marker := "  "
		if i == m.snap.Selected {
			style = PlotSelectedStyle
			marker = "> "
		}
		b.WriteString(marker + style.Render(a.Name()))
		b.WriteString("\n")
	}
	if url := m.SelectedURL(); url != "" {
		b.WriteString("\n")
		b.WriteString(LinkStyle.Render(url))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render("ctrl+n/ctrl+p select  ctrl+o open in browser"))
	return b.String()
}
