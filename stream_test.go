package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(eventType, data string) string {
	return "event: " + eventType + "\ndata: " + data + "\n\n"
}

func TestStreamDecoderSingleTextFrame(t *testing.T) {
	d := NewStreamDecoder()

	events := d.Feed([]byte(frame("text", `{"text":"Hello"}`)))

	require.Len(t, events, 1)
	assert.Equal(t, EventText, events[0].Type)
	assert.Equal(t, "Hello", events[0].Text)
}

func TestStreamDecoderMultipleFramesInOneChunk(t *testing.T) {
	d := NewStreamDecoder()
	chunk := frame("text", `{"text":"I'll add "}`) +
		frame("text", `{"text":"Python to your skills."}`) +
		frame("edit_result", `{"operations":[{"section":"skills","value":"Python"}],"diffs":[{"section":"skills","type":"added","after":"Python"}]}`)

	events := d.Feed([]byte(chunk))

	require.Len(t, events, 3)
	assert.Equal(t, EventText, events[0].Type)
	assert.Equal(t, EventText, events[1].Type)
	assert.Equal(t, EventEditResult, events[2].Type)
	require.NotNil(t, events[2].Edit)
	require.Len(t, events[2].Edit.Operations, 1)
	assert.Equal(t, "skills", events[2].Edit.Operations[0].Section)
	assert.Equal(t, "Python", events[2].Edit.Operations[0].Value)
}

// Decoding must not depend on where the transport splits the byte stream.
func TestStreamDecoderChunkBoundaryIndependence(t *testing.T) {
	full := frame("text", `{"text":"one"}`) +
		frame("edit_result", `{"operations":[],"diffs":[],"confidence":"low"}`) +
		frame("text", `{"text":"two"}`)

	whole := NewStreamDecoder()
	expected := whole.Feed([]byte(full))
	require.Len(t, expected, 3)

	for _, size := range []int{1, 2, 3, 7, 16} {
		d := NewStreamDecoder()
		var got []StreamEvent
		for i := 0; i < len(full); i += size {
			end := i + size
			if end > len(full) {
				end = len(full)
			}
			got = append(got, d.Feed([]byte(full[i:end]))...)
		}
		assert.Equal(t, expected, got, "chunk size %d", size)
	}
}

func TestStreamDecoderDropsIncompleteTrailingFrame(t *testing.T) {
	d := NewStreamDecoder()

	events := d.Feed([]byte(frame("text", `{"text":"done"}`) + "event: text\ndata: {\"text\":\"cut off"))

	// the truncated frame never saw its terminating blank line
	require.Len(t, events, 1)
	assert.Equal(t, "done", events[0].Text)
}

func TestStreamDecoderSkipsMalformedJSON(t *testing.T) {
	d := NewStreamDecoder()
	chunk := frame("text", `{"text": not json`) + frame("text", `{"text":"recovered"}`)

	events := d.Feed([]byte(chunk))

	require.Len(t, events, 1)
	assert.Equal(t, "recovered", events[0].Text)
}

func TestStreamDecoderIgnoresUnknownEventTypes(t *testing.T) {
	d := NewStreamDecoder()
	chunk := frame("telemetry", `{"spans":12}`) + frame("text", `{"text":"hi"}`)

	events := d.Feed([]byte(chunk))

	require.Len(t, events, 1)
	assert.Equal(t, EventText, events[0].Type)
}

func TestStreamDecoderIgnoresCommentsAndStrayLines(t *testing.T) {
	d := NewStreamDecoder()
	chunk := ": keepalive\n" + "retry: 3000\n" + frame("text", `{"text":"hi"}`)

	events := d.Feed([]byte(chunk))

	require.Len(t, events, 1)
	assert.Equal(t, "hi", events[0].Text)
}

func TestStreamDecoderRequiresBothTypeAndData(t *testing.T) {
	d := NewStreamDecoder()

	// data without an event type
	events := d.Feed([]byte("data: {\"text\":\"orphan\"}\n\n"))
	assert.Empty(t, events)

	// event type without data
	events = d.Feed([]byte("event: text\n\n"))
	assert.Empty(t, events)

	// a well formed frame afterwards still decodes
	events = d.Feed([]byte(frame("text", `{"text":"ok"}`)))
	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].Text)
}

func TestStreamDecoderHandlesCRLF(t *testing.T) {
	d := NewStreamDecoder()
	chunk := strings.ReplaceAll(frame("text", `{"text":"windows"}`), "\n", "\r\n")

	events := d.Feed([]byte(chunk))

	require.Len(t, events, 1)
	assert.Equal(t, "windows", events[0].Text)
}

func TestStreamDecoderErrorEvent(t *testing.T) {
	d := NewStreamDecoder()

	events := d.Feed([]byte(frame("error", `{"message":"model overloaded"}`)))

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Equal(t, "model overloaded", events[0].Message)
}
