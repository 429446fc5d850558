// ABOUTME: View models for the web mirror built from a console.Snapshot: timeline cards, plots, and the JSON snapshot.
// ABOUTME: Cards reuse runs.Display so the browser and the terminal truncate and label events identically.
package web

import (
	"html/template"

	"github.com/2389-research/crystalens/console"
	"github.com/2389-research/crystalens/runs"
	"github.com/2389-research/crystalens/timeline"
)

// PageData holds all data passed to templates for rendering.
type PageData struct {
	Title   string
	Active  string // "agent", "calls", "responses" or "plots"
	Filters []FilterLink
	Status  StatusView
	Cards   []CardView
	Plots   []PlotView
	Plot    *PlotView
}

// FilterLink is one sidebar entry.
type FilterLink struct {
	ID     string
	Label  string
	Href   string
	Active bool
}

// StatusView summarizes the run for the header.
type StatusView struct {
	RunID   string
	Stream  string
	Events  int
	Running bool
	Loading bool
	Error   string
}

// CardView is one rendered timeline item.
type CardView struct {
	ID       string
	User     bool
	Author   string
	Text     template.HTML
	FullText template.HTML // set when Text is truncated
	Call     string
	FullCall string
	Resp     string
	FullResp string
}

// PlotView is one gallery entry.
type PlotView struct {
	Path     string
	Name     string
	URL      string
	Href     string
	Selected bool
}

func filterLinks(active string) []FilterLink {
	var links []FilterLink
	for _, c := range runs.Categories() {
		href := "/?category=" + string(c)
		if c == runs.CategoryPlots {
			href = "/plots"
		}
		links = append(links, FilterLink{
			ID:     string(c),
			Label:  c.Label(),
			Href:   href,
			Active: string(c) == active,
		})
	}
	return links
}

func statusView(snap console.Snapshot) StatusView {
	sv := StatusView{
		RunID:   snap.RunID,
		Stream:  snap.StreamState.String(),
		Events:  snap.EventCount,
		Running: snap.Running,
		Loading: snap.Loading,
	}
	if snap.Err != nil {
		sv.Error = snap.Err.Error()
	}
	return sv
}

func cardViews(items []timeline.Item) []CardView {
	cards := make([]CardView, 0, len(items))
	for _, it := range items {
		if it.Kind == timeline.KindUser {
			cards = append(cards, CardView{ID: it.ID, User: true, Text: template.HTML(template.HTMLEscapeString(it.Text))})
			continue
		}
		card := runs.Display(it.Event)
		if card.Empty() {
			continue
		}
		short := card.Collapsed()
		cv := CardView{
			ID:     it.ID,
			Author: card.Author,
			Text:   markdownToHTML(short.Text),
			Call:   short.Call,
			Resp:   short.Response,
		}
		if card.TextOverflows() {
			cv.FullText = markdownToHTML(card.Text)
		}
		if card.CallOverflows() {
			cv.FullCall = card.Call
		}
		if card.ResponseOverflows() {
			cv.FullResp = card.Response
		}
		cards = append(cards, cv)
	}
	return cards
}

func plotViews(snap console.Snapshot, selected int) []PlotView {
	plots := make([]PlotView, 0, len(snap.Plots))
	for i, a := range snap.Plots {
		plots = append(plots, PlotView{
			Path:     string(a),
			Name:     a.Name(),
			URL:      snap.PlotURL(a),
			Href:     "/plots?name=" + template.URLQueryEscaper(a.Name()),
			Selected: i == selected,
		})
	}
	return plots
}

// SnapshotJSON is the /api/snapshot response.
type SnapshotJSON struct {
	RunID       string     `json:"run_id"`
	StreamURL   string     `json:"stream_url,omitempty"`
	StreamState string     `json:"stream_state"`
	EventCount  int        `json:"event_count"`
	Running     bool       `json:"running"`
	Loading     bool       `json:"loading"`
	Error       string     `json:"error,omitempty"`
	Items       []ItemJSON `json:"items"`
	Plots       []PlotJSON `json:"plots"`
	Selected    int        `json:"selected"`
}

// ItemJSON is one timeline item in the snapshot.
type ItemJSON struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"` // "user" or "event"
	Category string `json:"category"`
	Type     string `json:"type,omitempty"`
	Author   string `json:"author,omitempty"`
	Text     string `json:"text,omitempty"`
}

// PlotJSON is one gallery entry in the snapshot.
type PlotJSON struct {
	Path string `json:"path"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func snapshotJSON(snap console.Snapshot) SnapshotJSON {
	out := SnapshotJSON{
		RunID:       snap.RunID,
		StreamURL:   snap.StreamURL,
		StreamState: snap.StreamState.String(),
		EventCount:  snap.EventCount,
		Running:     snap.Running,
		Loading:     snap.Loading,
		Items:       make([]ItemJSON, 0, len(snap.Items)),
		Plots:       make([]PlotJSON, 0, len(snap.Plots)),
		Selected:    snap.Selected,
	}
	if snap.Err != nil {
		out.Error = snap.Err.Error()
	}
	for _, it := range snap.Items {
		ij := ItemJSON{ID: it.ID, Category: it.Category.String()}
		if it.Kind == timeline.KindUser {
			ij.Kind = "user"
			ij.Text = it.Text
		} else {
			card := runs.Display(it.Event)
			ij.Kind = "event"
			ij.Type = string(it.Event.Type)
			ij.Author = card.Author
			ij.Text = card.Text
		}
		out.Items = append(out.Items, ij)
	}
	for _, a := range snap.Plots {
		out.Plots = append(out.Plots, PlotJSON{Path: string(a), Name: a.Name(), URL: snap.PlotURL(a)})
	}
	return out
}
