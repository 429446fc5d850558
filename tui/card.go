// ABOUTME: Renders timeline items as terminal cards: user bubbles and event cards with author, text, and JSON.
// ABOUTME: Agent text goes through a glamour markdown renderer; long bodies collapse unless expanded.
package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/crystalens/runs"
	"github.com/2389-research/crystalens/timeline"
)

// MarkdownRenderer turns markdown into styled terminal text.
type MarkdownRenderer interface {
	Render(markdown string, width int) string
}

// PlainRenderer returns text unchanged apart from wrapping.
type PlainRenderer struct{}

// Render implements MarkdownRenderer.
func (PlainRenderer) Render(markdown string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(markdown)
}

// GlamourRenderer renders markdown with glamour, caching one renderer per width.
type GlamourRenderer struct {
	style     string
	renderers map[int]*glamour.TermRenderer
}

// NewGlamourRenderer uses the named glamour standard style ("dark", "light", "notty").
func NewGlamourRenderer(style string) *GlamourRenderer {
	if style == "" {
		style = "dark"
	}
	return &GlamourRenderer{style: style, renderers: make(map[int]*glamour.TermRenderer)}
}

// Render implements MarkdownRenderer. Rendering errors fall back to plain text.
func (g *GlamourRenderer) Render(markdown string, width int) string {
	r, ok := g.renderers[width]
	if !ok {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(g.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return PlainRenderer{}.Render(markdown, width)
		}
		g.renderers[width] = r
	}
	out, err := r.Render(markdown)
	if err != nil {
		return PlainRenderer{}.Render(markdown, width)
	}
	return strings.Trim(out, "\n")
}

// renderItem draws one feed item at width. Event items with nothing to show
// render as the empty string.
func renderItem(it timeline.Item, width int, expanded bool, md MarkdownRenderer) string {
	if it.Kind == timeline.KindUser {
		return renderUser(it.Text, width)
	}
	return renderCard(runs.Display(it.Event), width, expanded, md)
}

func renderUser(text string, width int) string {
	bubbleWidth := width * 8 / 10
	if bubbleWidth < 10 {
		bubbleWidth = width
	}
	bubble := UserBubbleStyle.Width(bubbleWidth - 2).Render(text)
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble)
}

func renderCard(card runs.Card, width int, expanded bool, md MarkdownRenderer) string {
	if card.Empty() {
		return ""
	}
	shown := card
	if !expanded {
		shown = card.Collapsed()
	}
	inner := width - 4
	if inner < 10 {
		inner = 10
	}

	var sections []string
	if card.Author != "" {
		badge := AuthorStyle.Render("by " + card.Author)
		sections = append(sections, lipgloss.PlaceHorizontal(inner, lipgloss.Right, badge))
	}
	if shown.Text != "" {
		sections = append(sections, md.Render(shown.Text, inner))
		if card.TextOverflows() {
			sections = append(sections, toggleHint(expanded))
		}
	}
	if shown.Call != "" {
		sections = append(sections,
			SectionLabelStyle.Render("functionCall"),
			CodeStyle.Width(inner).Render(shown.Call))
		if card.CallOverflows() {
			sections = append(sections, toggleHint(expanded))
		}
	}
	if shown.Response != "" {
		sections = append(sections,
			SectionLabelStyle.Render("functionResponse"),
			CodeStyle.Width(inner).Render(shown.Response))
		if card.ResponseOverflows() {
			sections = append(sections, toggleHint(expanded))
		}
	}
	return CardStyle.Width(width - 2).Render(strings.Join(sections, "\n"))
}

func toggleHint(expanded bool) string {
	if expanded {
		return ToggleStyle.Render("ctrl+e: show less")
	}
	return ToggleStyle.Render("ctrl+e: show more")
}
