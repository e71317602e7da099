package chat

// Transform maps a message sequence to its successor. Transforms must
// treat their input as read-only; the log commits whatever they return.
type Transform func([]Message) []Message

// patchLast rewrites the last message of the sequence. An empty
// sequence passes through untouched.
func patchLast(msgs []Message, fn func(Message) Message) []Message {
	if len(msgs) == 0 {
		return msgs
	}
	next := make([]Message, len(msgs))
	copy(next, msgs)
	next[len(next)-1] = fn(next[len(next)-1])
	return next
}

// patchTool rewrites the tool call with the given id on the last
// message. An unknown id leaves the sequence unchanged.
func patchTool(msgs []Message, id string, fn func(ToolCall) ToolCall) []Message {
	return patchLast(msgs, func(m Message) Message {
		calls := make([]ToolCall, len(m.ToolCalls))
		copy(calls, m.ToolCalls)
		for i, tc := range calls {
			if tc.ID == id {
				calls[i] = fn(tc)
			}
		}
		m.ToolCalls = calls
		return m
	})
}

// AppendTurn appends a user message and its assistant placeholder as
// one atomic step.
func AppendTurn(user, assistant Message) Transform {
	return func(msgs []Message) []Message {
		next := make([]Message, 0, len(msgs)+2)
		next = append(next, msgs...)
		return append(next, user, assistant)
	}
}

// AppendText appends streamed text to the last message's content.
func AppendText(text string) Transform {
	return func(msgs []Message) []Message {
		return patchLast(msgs, func(m Message) Message {
			m.Content += text
			return m
		})
	}
}

// StartTool records a new tool invocation on the last message. A
// duplicate id is dropped.
func StartTool(name, id string) Transform {
	return func(msgs []Message) []Message {
		return patchLast(msgs, func(m Message) Message {
			for _, tc := range m.ToolCalls {
				if tc.ID == id {
					return m
				}
			}
			calls := make([]ToolCall, 0, len(m.ToolCalls)+1)
			calls = append(calls, m.ToolCalls...)
			m.ToolCalls = append(calls, ToolCall{ID: id, Name: name, Status: ToolStarted})
			return m
		})
	}
}

// ExecuteTool moves a started tool call to executing and attaches its
// input. Unknown ids and already-finished calls are left alone.
func ExecuteTool(id string, input map[string]interface{}) Transform {
	return func(msgs []Message) []Message {
		return patchTool(msgs, id, func(tc ToolCall) ToolCall {
			if tc.Status != ToolStarted {
				return tc
			}
			tc.Status = ToolExecuting
			tc.Input = input
			return tc
		})
	}
}

// FinishTool moves a tool call to done and attaches the result preview.
func FinishTool(id, preview string) Transform {
	return func(msgs []Message) []Message {
		return patchTool(msgs, id, func(tc ToolCall) ToolCall {
			if tc.Status == ToolDone {
				return tc
			}
			tc.Status = ToolDone
			tc.ResultPreview = preview
			return tc
		})
	}
}

// FinishStreaming clears the streaming flag on the last message.
func FinishStreaming() Transform {
	return func(msgs []Message) []Message {
		return patchLast(msgs, func(m Message) Message {
			m.IsStreaming = false
			return m
		})
	}
}

// FailStreaming appends the error annotation to the last message and
// clears its streaming flag.
func FailStreaming(errText string) Transform {
	return func(msgs []Message) []Message {
		return patchLast(msgs, func(m Message) Message {
			m.Content += "\n\n오류가 발생했습니다: " + errText
			m.IsStreaming = false
			return m
		})
	}
}
