/*
PURPOSE:
  Decodes the agent's event stream line by line.
  Accumulates content deltas and times the first non-empty fragment.

REQUIREMENTS:
  User-specified:
  - Data lines carry JSON chunks; "[DONE]" and "done" end the stream.
  - Malformed lines are skipped, never fatal.

  Implementation-discovered:
  - A plain-text line mentioning invalid_request is the agent's error channel.
  - Latency is taken at the first fragment with content, not the first line.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/client.go

ERROR HANDLING:
  - Only invalid_request escapes as an error (wraps ErrInvalidRequest).
  - Malformed payloads are counted in Malformed.

IMPLEMENTATION RULES:
  - Explicit states: awaitingLine -> parsingData -> finished.
  - No I/O here; the clock is injected.

USAGE:
    dec := &StreamDecoder{}
  ev, ok, err := dec.Feed(line)

SELF-HEALING INSTRUCTIONS:
  - If the agent adds event types, extend chunk rather than the state machine.

RELATED FILES:
  - internal/engine/client.go

MAINTENANCE:
  - Update when the wire format changes.
*/

package engine

import (
	"encoding/json"
	"strings"
	"time"
)

const dataPrefix = "data:"

// StreamEvent is one decoded unit of the event stream.
type StreamEvent struct {
	Delta string
	Done  bool
}

type decoderState int

const (
	awaitingLine decoderState = iota
	parsingData
	finished
)

// chunk is the JSON payload of a data line.
type chunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// StreamDecoder turns event-stream lines into StreamEvents.
// Non-data lines and malformed payloads are ignored; the only line that
// fails the stream is a plain-text invalid_request notice.
type StreamDecoder struct {
	state     decoderState
	payload   string
	Malformed int
}

// Done reports whether the terminating sentinel was seen.
func (d *StreamDecoder) Done() bool {
	return d.state == finished
}

// Feed consumes one line. ok is false when the line carries no event.
func (d *StreamDecoder) Feed(line string) (ev StreamEvent, ok bool, err error) {
	for {
		switch d.state {
		case finished:
			return StreamEvent{}, false, nil

		case awaitingLine:
			trimmed := strings.TrimSpace(line)
			if !strings.HasPrefix(trimmed, dataPrefix) {
				if strings.Contains(trimmed, "invalid_request") {
					return StreamEvent{}, false, &invalidRequestError{line: excerpt(trimmed, bodyExcerptLimit)}
				}
				return StreamEvent{}, false, nil
			}
			d.payload = strings.TrimSpace(trimmed[len(dataPrefix):])
			d.state = parsingData

		case parsingData:
			payload := d.payload
			d.payload = ""
			if payload == "[DONE]" || payload == "done" {
				d.state = finished
				return StreamEvent{Done: true}, true, nil
			}
			d.state = awaitingLine
			var c chunk
			if err := json.Unmarshal([]byte(payload), &c); err != nil {
				d.Malformed++
				return StreamEvent{}, false, nil
			}
			if len(c.Choices) == 0 {
				return StreamEvent{}, true, nil
			}
			return StreamEvent{Delta: c.Choices[0].Delta.Content}, true, nil
		}
	}
}

type invalidRequestError struct {
	line string
}

func (e *invalidRequestError) Error() string {
	return ErrInvalidRequest.Error() + ": " + e.line
}

func (e *invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

// answerBuilder concatenates deltas and remembers when the first
// non-empty one arrived relative to start.
type answerBuilder struct {
	start   time.Time
	now     func() time.Time
	text    strings.Builder
	latency time.Duration
	seen    bool
}

func newAnswerBuilder(start time.Time, now func() time.Time) *answerBuilder {
	return &answerBuilder{start: start, now: now}
}

func (b *answerBuilder) add(delta string) {
	if delta != "" && !b.seen {
		b.latency = b.now().Sub(b.start)
		if b.latency < 0 {
			b.latency = 0
		}
		b.seen = true
	}
	b.text.WriteString(delta)
}

func (b *answerBuilder) firstFragment() (time.Duration, bool) {
	return b.latency, b.seen
}
