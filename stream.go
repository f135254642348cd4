package main

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// StreamEventType discriminates decoded stream events.
type StreamEventType string

const (
	EventText       StreamEventType = "text"
	EventEditResult StreamEventType = "edit_result"
	EventError      StreamEventType = "error"
)

// StreamEvent is one decoded event from the command stream.
type StreamEvent struct {
	Type    StreamEventType
	Text    string          // set for text events
	Edit    *ChatEditResult // set for edit_result events
	Message string          // set for error events
}

// StreamDecoder turns incrementally arriving chunks of the wire format into
// typed events. A frame is one "event: <type>" line, one "data: <json>" line
// and a terminating blank line; frames may be split at arbitrary chunk
// boundaries, so any incomplete tail is buffered until more data arrives.
// An incomplete frame at end-of-stream is dropped, never emitted.
type StreamDecoder struct {
	pending   strings.Builder
	eventType string
	data      string
	hasData   bool
}

// NewStreamDecoder returns a decoder ready to accept chunks.
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{}
}

// Feed consumes one chunk and returns the events completed by it, in arrival
// order. A frame whose data fails to parse as JSON is skipped without
// aborting the stream; unknown event types are ignored.
func (d *StreamDecoder) Feed(chunk []byte) []StreamEvent {
	d.pending.Write(chunk)

	buffered := d.pending.String()
	var events []StreamEvent
	for {
		idx := strings.IndexByte(buffered, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSuffix(buffered[:idx], "\r")
		buffered = buffered[idx+1:]

		if ev, ok := d.consumeLine(line); ok {
			events = append(events, ev)
		}
	}

	d.pending.Reset()
	d.pending.WriteString(buffered)
	return events
}

// consumeLine advances the frame state machine by one complete line. It
// returns an event when the line terminates a decodable frame.
func (d *StreamDecoder) consumeLine(line string) (StreamEvent, bool) {
	switch {
	case line == "":
		return d.flushFrame()
	case strings.HasPrefix(line, ":"):
		// comment line, ignored
		return StreamEvent{}, false
	case strings.HasPrefix(line, "event:"):
		d.eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		return StreamEvent{}, false
	case strings.HasPrefix(line, "data:"):
		data := strings.TrimPrefix(line, "data:")
		d.data = strings.TrimPrefix(data, " ")
		d.hasData = true
		return StreamEvent{}, false
	default:
		// unknown framing line, ignored
		return StreamEvent{}, false
	}
}

// flushFrame decodes the buffered frame, if any. A frame is recognized only
// when both a type line and a data line have been seen.
func (d *StreamDecoder) flushFrame() (StreamEvent, bool) {
	eventType, data, hasData := d.eventType, d.data, d.hasData
	d.eventType = ""
	d.data = ""
	d.hasData = false

	if eventType == "" || !hasData {
		return StreamEvent{}, false
	}

	switch StreamEventType(eventType) {
	case EventText:
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			slog.Debug("skipping malformed text event", "error", err)
			return StreamEvent{}, false
		}
		return StreamEvent{Type: EventText, Text: payload.Text}, true

	case EventEditResult:
		var payload ChatEditResult
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			slog.Debug("skipping malformed edit_result event", "error", err)
			return StreamEvent{}, false
		}
		return StreamEvent{Type: EventEditResult, Edit: &payload}, true

	case EventError:
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			slog.Debug("skipping malformed error event", "error", err)
			return StreamEvent{}, false
		}
		return StreamEvent{Type: EventError, Message: payload.Message}, true

	default:
		slog.Debug("ignoring unknown stream event", "type", eventType)
		return StreamEvent{}, false
	}
}
