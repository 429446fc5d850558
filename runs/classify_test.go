// ABOUTME: Tests for the priority-ordered event classifier and category parsing.
// ABOUTME: Covers tie-breaks, blank text, plot figures, scalar payloads, and malformed nesting.
package runs

import "testing"

func ev(typ, payload string) Event {
	return Event{Type: EventType(typ), Payload: []byte(payload)}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Category
	}{
		{
			name:    "text only",
			payload: `{"author":"x","content":{"parts":[{"text":"hi"}]}}`,
			want:    CategoryAgent,
		},
		{
			name:    "call wins over text and response",
			payload: `{"content":{"parts":[{"text":"thinking"},{"functionResponse":{"name":"f"}},{"functionCall":{"name":"g","args":{"a":1}}}]}}`,
			want:    CategoryCalls,
		},
		{
			name:    "call and text in the same part",
			payload: `{"content":{"parts":[{"text":"t","functionCall":{"name":"g"}}]}}`,
			want:    CategoryCalls,
		},
		{
			name:    "response wins over text",
			payload: `{"content":{"parts":[{"text":"done"},{"functionResponse":{"name":"f","response":{"ok":true}}}]}}`,
			want:    CategoryResponses,
		},
		{
			name:    "text wins over plots",
			payload: `{"content":{"parts":[{"text":"see plot"}]},"actions":{"stateDelta":{"reporter_output":{"figures":["p.html"]}}}}`,
			want:    CategoryAgent,
		},
		{
			name:    "plot only",
			payload: `{"actions":{"stateDelta":{"reporter_output":{"figures":["a/b/plot1.html"]}}}}`,
			want:    CategoryPlots,
		},
		{
			name:    "blank text with plot",
			payload: `{"content":{"parts":[{"text":"   "}]},"actions":{"stateDelta":{"reporter_output":{"figures":["p.html"]}}}}`,
			want:    CategoryPlots,
		},
		{
			name:    "non-html figures",
			payload: `{"actions":{"stateDelta":{"reporter_output":{"figures":["a.png","b.html.bak"]}}}}`,
			want:    CategoryNone,
		},
		{
			name:    "non-string figures ignored",
			payload: `{"actions":{"stateDelta":{"reporter_output":{"figures":[42,{"path":"x.html"}]}}}}`,
			want:    CategoryNone,
		},
		{
			name:    "whitespace text",
			payload: `{"content":{"parts":[{"text":" \n\t"}]}}`,
			want:    CategoryNone,
		},
		{
			name:    "empty parts",
			payload: `{"content":{"parts":[]}}`,
			want:    CategoryNone,
		},
		{
			name:    "string payload",
			payload: `"starting"`,
			want:    CategoryNone,
		},
		{
			name:    "no payload",
			payload: ``,
			want:    CategoryNone,
		},
		{
			name:    "parts not an array",
			payload: `{"content":{"parts":{"text":"hi"}}}`,
			want:    CategoryNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(ev("event", tt.payload))
			if got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMatches_NoneMatchesNoView(t *testing.T) {
	e := ev("status", `{"content":{"parts":[{"text":"  "}]}}`)
	for _, c := range Categories() {
		if Matches(e, c) {
			t.Errorf("unclassified event matched %q", c)
		}
	}
	if Matches(e, CategoryNone) {
		t.Error("unclassified event matched CategoryNone")
	}
}

func TestMatches_OnlyOneCategory(t *testing.T) {
	e := ev("event", `{"content":{"parts":[{"text":"x"},{"functionCall":{"name":"f"}}]}}`)
	n := 0
	for _, c := range Categories() {
		if Matches(e, c) {
			n++
		}
	}
	if n != 1 {
		t.Errorf("event matched %d categories, want 1", n)
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{in: "agent", want: CategoryAgent},
		{in: "Function calls", want: CategoryCalls},
		{in: " RESPONSES ", want: CategoryResponses},
		{in: "plots", want: CategoryPlots},
		{in: "bogus", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCategory(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCategoryLabel(t *testing.T) {
	if CategoryAgent.Label() != "Agent responses" {
		t.Errorf("unexpected label %q", CategoryAgent.Label())
	}
	if CategoryNone.Label() != "none" || CategoryNone.String() != "none" {
		t.Error("expected none label for CategoryNone")
	}
}
