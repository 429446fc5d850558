// ABOUTME: Display categories an event can be sorted into, with labels and parsing.
// ABOUTME: Categories are derived from event shape on demand and never stored on the event.
package runs

import (
	"fmt"
	"strings"
)

// Category is a mutually exclusive display bucket.
type Category string

const (
	CategoryNone      Category = ""
	CategoryAgent     Category = "agent"
	CategoryCalls     Category = "calls"
	CategoryResponses Category = "responses"
	CategoryPlots     Category = "plots"
)

var categoryOrder = []Category{CategoryAgent, CategoryCalls, CategoryResponses, CategoryPlots}

var categoryLabels = map[Category]string{
	CategoryAgent:     "Agent responses",
	CategoryCalls:     "Function calls",
	CategoryResponses: "Function responses",
	CategoryPlots:     "Plots",
}

// Categories returns the selectable categories in sidebar order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Label returns the human-readable name of the category.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return "none"
}

func (c Category) String() string {
	if c == CategoryNone {
		return "none"
	}
	return string(c)
}

// ParseCategory accepts a category id or its label, case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, c := range categoryOrder {
		if s == string(c) || s == strings.ToLower(categoryLabels[c]) {
			return c, nil
		}
	}
	return CategoryNone, fmt.Errorf("unknown category %q", s)
}
