// ABOUTME: Card is the renderable summary of one event: author, text, and call/response JSON.
// ABOUTME: Long bodies are truncated with an expand toggle, except for the final-answer authors.
package runs

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// Truncation limits in characters.
const (
	MaxText = 700
	MaxJSON = 800
)

// Ellipsis is appended to truncated content.
const Ellipsis = "…"

var finalAuthors = map[string]bool{
	"final_analizer_agent":  true,
	"crystalens_root_agent": true,
}

// IsFinalAuthor reports whether author produces final answers, which are
// always shown unabridged.
func IsFinalAuthor(author string) bool {
	return finalAuthors[author]
}

// Card is what the console shows for one event. Only the first content part
// contributes to Text, Call and Response.
type Card struct {
	Author   string
	Text     string
	Call     string // pretty JSON of {name, args}
	Response string // pretty JSON of {name, response}
	Final    bool
}

// Display builds the card for e.
func Display(e Event) Card {
	p := e.Agent()
	c := Card{Author: p.ResolvedAuthor()}
	c.Final = IsFinalAuthor(c.Author)
	if len(p.Content.Parts) == 0 {
		return c
	}
	first := p.Content.Parts[0]
	if first.Text != nil {
		c.Text = *first.Text
	}
	if fc := first.FunctionCall; fc != nil {
		c.Call = prettyJSON(struct {
			Name string          `json:"name"`
			Args json.RawMessage `json:"args,omitempty"`
		}{fc.Name, fc.Args})
	}
	if fr := first.FunctionResponse; fr != nil {
		c.Response = prettyJSON(struct {
			Name     string          `json:"name"`
			Response json.RawMessage `json:"response,omitempty"`
		}{fr.Name, fr.Response})
	}
	return c
}

// Empty reports whether the card has nothing to show.
func (c Card) Empty() bool {
	return c.Text == "" && c.Call == "" && c.Response == "" && c.Author == ""
}

// TextOverflows reports whether Text exceeds MaxText and may be collapsed.
func (c Card) TextOverflows() bool {
	return !c.Final && utf8.RuneCountInString(c.Text) > MaxText
}

// CallOverflows reports whether Call exceeds MaxJSON and may be collapsed.
func (c Card) CallOverflows() bool {
	return !c.Final && utf8.RuneCountInString(c.Call) > MaxJSON
}

// ResponseOverflows reports whether Response exceeds MaxJSON and may be collapsed.
func (c Card) ResponseOverflows() bool {
	return !c.Final && utf8.RuneCountInString(c.Response) > MaxJSON
}

// Collapsed returns a copy with overflowing fields truncated.
func (c Card) Collapsed() Card {
	out := c
	if c.TextOverflows() {
		out.Text = Truncate(c.Text, MaxText)
	}
	if c.CallOverflows() {
		out.Call = Truncate(c.Call, MaxJSON)
	}
	if c.ResponseOverflows() {
		out.Response = Truncate(c.Response, MaxJSON)
	}
	return out
}

// Truncate cuts s to limit runes and appends Ellipsis. Strings within the
// limit are returned unchanged.
func Truncate(s string, limit int) string {
	if limit < 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + Ellipsis
		}
		n++
	}
	return s
}

func prettyJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
