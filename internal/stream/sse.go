package stream

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// EventType identifies a protocol event.
type EventType string

// Event types emitted by the chat endpoint.
const (
	EventTextDelta     EventType = "text_delta"
	EventToolStart     EventType = "tool_start"
	EventToolExecuting EventType = "tool_executing"
	EventToolResult    EventType = "tool_result"
	EventDone          EventType = "done"
	EventError         EventType = "error"
)

// Event is one decoded protocol event. Fields beyond Type are filled
// according to the event's payload.
type Event struct {
	Type          EventType
	Text          string                 // text_delta
	ToolName      string                 // tool_start, tool_executing, tool_result
	ToolID        string                 // tool_start, tool_executing, tool_result
	Input         map[string]interface{} // tool_executing
	ResultPreview string                 // tool_result
	Message       string                 // error
}

// payload covers every event's data fields; decodeEvent picks the ones
// the named event carries.
type payload struct {
	Text          string                 `json:"text"`
	ToolName      string                 `json:"tool_name"`
	ToolID        string                 `json:"tool_id"`
	Input         map[string]interface{} `json:"input"`
	ResultPreview string                 `json:"result_preview"`
	Message       string                 `json:"message"`
}

// decodeEvent maps a named SSE frame onto a typed Event. Unknown event
// names and malformed payloads report ok=false and are skipped by the
// reader.
func decodeEvent(name, data string) (Event, bool) {
	var p payload
	if data != "" {
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return Event{}, false
		}
	}

	switch EventType(name) {
	case EventTextDelta:
		return Event{Type: EventTextDelta, Text: p.Text}, true
	case EventToolStart:
		return Event{Type: EventToolStart, ToolName: p.ToolName, ToolID: p.ToolID}, true
	case EventToolExecuting:
		return Event{Type: EventToolExecuting, ToolName: p.ToolName, ToolID: p.ToolID, Input: p.Input}, true
	case EventToolResult:
		return Event{Type: EventToolResult, ToolName: p.ToolName, ToolID: p.ToolID, ResultPreview: p.ResultPreview}, true
	case EventDone:
		return Event{Type: EventDone}, true
	case EventError:
		return Event{Type: EventError, Message: p.Message}, true
	default:
		return Event{}, false
	}
}

// Reader decodes server-sent events off a streaming response body.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps the stream body in an SSE decoder.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next decoded event. Frames with unknown names or
// malformed data are dropped and the stream continues. Returns io.EOF
// when the stream ends cleanly, or the transport error otherwise.
func (r *Reader) Next() (Event, error) {
	var name string
	var data strings.Builder

	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		// Blank line dispatches the accumulated frame.
		if line == "" {
			if name != "" {
				if ev, ok := decodeEvent(name, data.String()); ok {
					return ev, nil
				}
			}
			name = ""
			data.Reset()
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		default:
			// Comments and unknown fields are ignored.
		}
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	return Event{}, io.EOF
}
