// ABOUTME: Plot artifact references extracted from reporter figures in event payloads.
// ABOUTME: Paths are compared by exact string; only the base filename is used for serving.
package runs

import "strings"

// PlotExtension is the suffix that marks a figure as a renderable plot.
const PlotExtension = ".html"

// PlotArtifact is a file-path-like reference to a generated plot.
type PlotArtifact string

// IsPlotPath reports whether path names a plot file.
func IsPlotPath(path string) bool {
	return strings.HasSuffix(path, PlotExtension)
}

// Name returns the base filename; the directory component is discarded.
func (a PlotArtifact) Name() string {
	s := string(a)
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// PlotArtifacts returns the plot paths referenced by e, in payload order.
// Duplicates within the event are kept; callers dedupe across events.
func PlotArtifacts(e Event) []PlotArtifact {
	var out []PlotArtifact
	for _, f := range e.Agent().FigureStrings() {
		if IsPlotPath(f) {
			out = append(out, PlotArtifact(f))
		}
	}
	return out
}
