// Package conversation holds the bounded per-session chat context.
//
// DESIGN: The Window is an immutable value - Append returns a new Window
// and never mutates the receiver - so a window snapshot can be read during
// generation while the session lease guarantees no second writer exists.
// Capacity is fixed at config.WindowCapacity with FIFO eviction: recency of
// dialogue matters, not access order.
package conversation

import "github.com/veilsearch/gateway/internal/config"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one conversation turn. Never mutated after append.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Window is a bounded, ordered sequence of recent conversation turns.
// The zero value is an empty window.
type Window struct {
	msgs []Message
}

// FromMessages builds a window from the caller's view of the conversation,
// keeping only the most recent config.WindowCapacity entries. This is the
// shared truncation rule callers and server agree on.
func FromMessages(msgs []Message) Window {
	if len(msgs) > config.WindowCapacity {
		msgs = msgs[len(msgs)-config.WindowCapacity:]
	}
	w := Window{msgs: make([]Message, len(msgs))}
	copy(w.msgs, msgs)
	return w
}

// Append returns a new window with m added, evicting the oldest entry when
// the window is at capacity. The receiver is unchanged.
func (w Window) Append(m Message) Window {
	next := make([]Message, 0, config.WindowCapacity)
	msgs := w.msgs
	if len(msgs) >= config.WindowCapacity {
		msgs = msgs[len(msgs)-config.WindowCapacity+1:]
	}
	next = append(next, msgs...)
	next = append(next, m)
	return Window{msgs: next}
}

// Messages returns the window contents in insertion order. The returned
// slice is a copy; mutating it does not affect the window.
func (w Window) Messages() []Message {
	out := make([]Message, len(w.msgs))
	copy(out, w.msgs)
	return out
}

// Len returns the number of turns currently held.
func (w Window) Len() int { return len(w.msgs) }
