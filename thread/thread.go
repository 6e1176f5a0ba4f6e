// Package thread holds the conversation state shared across one assistant
// run: an ordered log of messages, oldest first.
package thread

// Message is one conversational turn. It is a value and is never modified
// after creation. Role is either a conversational role such as "user" or
// "assistant", or the synthetic "<tool_name>_output" produced when a tool
// result re-enters the conversation.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ToolOutputRole returns the synthetic role under which the named tool's
// output is appended to the thread.
func ToolOutputRole(toolName string) string {
	return toolName + "_output"
}

// Thread is an ordered message log. Appends go to the tail; the only other
// mutation is removing the oldest message, which prompt truncation uses to
// shrink history. A thread has one logical writer at a time and is not safe
// for concurrent use.
type Thread struct {
	messages []Message
}

// New returns an empty thread.
func New() *Thread {
	return &Thread{}
}

// Append adds a message at the tail.
func (t *Thread) Append(msg Message) {
	t.messages = append(t.messages, msg)
}

// RemoveOldest removes and returns the oldest message. The second return is
// false when the thread is already empty.
func (t *Thread) RemoveOldest() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	oldest := t.messages[0]
	t.messages = t.messages[1:]
	return oldest, true
}

// Messages returns a copy of the log in conversational order. Callers may
// keep the slice; later thread mutations do not affect it.
func (t *Thread) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages currently held.
func (t *Thread) Len() int {
	return len(t.messages)
}
