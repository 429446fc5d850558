// ABOUTME: Pure, priority-ordered classifier mapping one event to at most one Category.
// ABOUTME: Shape summarizes content once; Shape.Category applies the tie-break table.
package runs

// Shape records which markers an event's content carries.
type Shape struct {
	HasCall     bool
	HasResponse bool
	HasText     bool
	HasPlot     bool
}

// ShapeOf scans every content part and the reporter figures of e.
func ShapeOf(e Event) Shape {
	p := e.Agent()
	var s Shape
	for _, part := range p.Content.Parts {
		if part.FunctionCall != nil {
			s.HasCall = true
		}
		if part.FunctionResponse != nil {
			s.HasResponse = true
		}
		if part.HasText() {
			s.HasText = true
		}
	}
	for _, f := range p.FigureStrings() {
		if IsPlotPath(f) {
			s.HasPlot = true
			break
		}
	}
	return s
}

// Category applies the decision table. Order matters: an event with both a
// function call and text is a call and nothing else.
func (s Shape) Category() Category {
	switch {
	case s.HasCall:
		return CategoryCalls
	case s.HasResponse:
		return CategoryResponses
	case s.HasText:
		return CategoryAgent
	case s.HasPlot:
		return CategoryPlots
	default:
		return CategoryNone
	}
}

// Classify returns the single category of e, or CategoryNone.
func Classify(e Event) Category {
	return ShapeOf(e).Category()
}

// Matches reports whether e belongs in the view for c. Unclassified events
// match no view.
func Matches(e Event, c Category) bool {
	cat := Classify(e)
	return cat != CategoryNone && cat == c
}
