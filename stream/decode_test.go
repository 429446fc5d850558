// ABOUTME: Tests for frame decoding: newline splitting, envelope validation, and malformed line reporting.
package stream

import (
	"errors"
	"strings"
	"testing"

	"github.com/2389-research/crystalens/runs"
)

func TestDecodeFrame_SingleEvent(t *testing.T) {
	events, errs := DecodeFrame([]byte(`{"type":"status","payload":"starting"}`))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(events) != 1 || events[0].Type != runs.EventStatus {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestDecodeFrame_NewlineDelimited(t *testing.T) {
	frame := "{\"type\":\"event\",\"payload\":{\"id\":\"1\"}}\n\n  {\"type\":\"done\"}\n"
	events, errs := DecodeFrame([]byte(frame))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != runs.EventAgent || events[1].Type != runs.EventDone {
		t.Errorf("order not preserved: %q, %q", events[0].Type, events[1].Type)
	}
}

func TestDecodeFrame_MalformedLinesDropped(t *testing.T) {
	frame := `{"type":"status"}
not json
{"payload":{}}
{"type":42}
{"type":""}
[1,2]
{"type":"done"}`
	events, errs := DecodeFrame([]byte(frame))
	if len(events) != 2 {
		t.Fatalf("expected 2 good events, got %d", len(events))
	}
	if len(errs) != 5 {
		t.Fatalf("expected 5 malformed lines, got %d: %v", len(errs), errs)
	}
	for _, err := range errs {
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("error %v does not wrap ErrMalformed", err)
		}
	}
	var le *LineError
	if !errors.As(errs[0], &le) || le.Line != 2 {
		t.Errorf("expected first bad line to be line 2, got %v", errs[0])
	}
}

func TestDecodeFrame_Empty(t *testing.T) {
	events, errs := DecodeFrame(nil)
	if len(events) != 0 || len(errs) != 0 {
		t.Errorf("expected nothing from empty frame, got %v %v", events, errs)
	}
}

func TestDecodeFrame_SchemaInvalidLine(t *testing.T) {
	events, errs := DecodeFrame([]byte(`{"type":42,"payload":{}}`))
	if len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	var le *LineError
	if !errors.As(errs[0], &le) {
		t.Fatalf("expected *LineError, got %T", errs[0])
	}
	if le.Line != 1 || !strings.Contains(le.Reason, "type") {
		t.Errorf("unexpected line error: %+v", le)
	}
}

func TestMustSchema(t *testing.T) {
	if mustSchema(envelopeSchema) == nil {
		t.Fatal("expected envelope schema to compile")
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid schema")
		}
	}()
	mustSchema(`{"type": 12}`)
}
