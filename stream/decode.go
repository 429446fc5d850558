// ABOUTME: Decodes newline-delimited JSON frames into run events, validating each line's envelope.
// ABOUTME: Lines that are not JSON objects with a string "type" are reported as malformed, never fatal.
package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/2389-research/crystalens/runs"
)

const envelopeSchema = `{
  "type": "object",
  "required": ["type"],
  "properties": {
    "type": {"type": "string", "minLength": 1}
  }
}`

var envelope = mustSchema(envelopeSchema)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("stream: invalid schema: %v", err))
	}
	return schema
}

// ErrMalformed wraps every line that fails to decode.
var ErrMalformed = errors.New("malformed stream line")

// LineError describes one dropped line.
type LineError struct {
	Line   int
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("%v %d: %s", ErrMalformed, e.Line, e.Reason)
}

func (e *LineError) Unwrap() error { return ErrMalformed }

// DecodeFrame splits a frame on newlines and decodes each non-blank line.
// Good lines are returned in order; bad lines are returned as errors.
func DecodeFrame(frame []byte) ([]runs.Event, []error) {
	var events []runs.Event
	var errs []error
	for i, line := range bytes.Split(frame, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		evt, err := decodeLine(line)
		if err != nil {
			errs = append(errs, &LineError{Line: i + 1, Reason: err.Error()})
			continue
		}
		events = append(events, evt)
	}
	return events, errs
}

func decodeLine(line []byte) (runs.Event, error) {
	result, err := envelope.Validate(gojsonschema.NewBytesLoader(line))
	if err != nil {
		return runs.Event{}, fmt.Errorf("invalid json: %w", err)
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			reasons = append(reasons, re.String())
		}
		return runs.Event{}, errors.New(strings.Join(reasons, "; "))
	}
	var evt runs.Event
	if err := json.Unmarshal(line, &evt); err != nil {
		return runs.Event{}, fmt.Errorf("decode event: %w", err)
	}
	return evt, nil
}
