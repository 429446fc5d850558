// ABOUTME: Event envelope streamed from a backend run and the typed view over its agent payload.
// ABOUTME: Decoding is lenient: non-object payloads become a Note and never fail the stream.
package runs

import (
	"bytes"
	"encoding/json"
	"strings"
)

// EventType is the envelope discriminator sent by the backend.
type EventType string

const (
	EventStatus EventType = "status"
	EventResult EventType = "result"
	EventError  EventType = "error"
	EventDone   EventType = "done"
	// EventAgent wraps one agent framework event in its payload.
	EventAgent EventType = "event"
)

// IsTerminal reports whether the type ends a run (done or error).
func (t EventType) IsTerminal() bool {
	return t == EventDone || t == EventError
}

// Event is one message received on a run stream. Payload is kept raw so
// unknown shapes survive untouched.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AgentPayload is the subset of an agent event the console renders.
type AgentPayload struct {
	ID           string  `json:"id,omitempty"`
	Author       string  `json:"author,omitempty"`
	InvocationID string  `json:"invocationId,omitempty"`
	Timestamp    float64 `json:"timestamp,omitempty"`
	Content      Content `json:"content"`
	Actions      Actions `json:"actions"`

	// Note holds the raw text when the payload is not a JSON object
	// (e.g. the "starting" status or an error message).
	Note string `json:"-"`
}

// Content is the message body of an agent event.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts,omitempty"`
}

// Part is one piece of content. At most one field is normally set, but the
// classifier does not assume that.
type Part struct {
	Text             *string           `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// FunctionCall is a tool invocation requested by an agent.
type FunctionCall struct {
	ID   string          `json:"id,omitempty"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// FunctionResponse is the result of a tool invocation.
type FunctionResponse struct {
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response,omitempty"`
}

// Actions carries side effects attached to an agent event.
type Actions struct {
	Author     string     `json:"author,omitempty"`
	StateDelta StateDelta `json:"stateDelta"`
}

// StateDelta is the session state change; only the reporter output is read.
type StateDelta struct {
	ReporterOutput ReporterOutput `json:"reporter_output"`
}

// ReporterOutput lists generated figures. Entries stay raw because the
// backend does not guarantee they are strings.
type ReporterOutput struct {
	Figures []json.RawMessage `json:"figures,omitempty"`
}

// Agent decodes the payload into an AgentPayload. A payload that is absent,
// not an object, or fails to decode yields a zero value (with Note set for
// scalar payloads).
func (e Event) Agent() AgentPayload {
	var p AgentPayload
	raw := bytes.TrimSpace(e.Payload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return p
	}
	if raw[0] != '{' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			p.Note = s
		} else {
			p.Note = string(raw)
		}
		return p
	}
	// A mistyped nested field (e.g. parts as an object) must not hide the
	// rest of the event, so decode failures leave a partially filled value.
	_ = json.Unmarshal(raw, &p)
	return p
}

// ResolvedAuthor returns the author, falling back to actions.author.
func (p AgentPayload) ResolvedAuthor() string {
	if p.Author != "" {
		return p.Author
	}
	return p.Actions.Author
}

// FigureStrings returns the figure entries that are JSON strings, in order.
func (p AgentPayload) FigureStrings() []string {
	var out []string
	for _, raw := range p.Actions.StateDelta.ReporterOutput.Figures {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

// HasText reports whether the part carries non-blank text.
func (p Part) HasText() bool {
	return p.Text != nil && strings.TrimSpace(*p.Text) != ""
}
