package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is the control-flow directive carried by a Decision.
type Action string

const (
	// ActionDispatch directs the loop to send the decision content to the
	// named target service and feed the result back into the history.
	ActionDispatch Action = "dispatch"
	// ActionFinal directs the loop to terminate with the decision content
	// as the answer.
	ActionFinal Action = "final"
)

// Entry represents one record in a request's conversation history. Concrete
// entry types implement the unexported isEntry marker enabling a closed set.
type Entry interface{ isEntry() }

// UserRequest is the original natural-language request. It is always the
// first entry of a History.
type UserRequest struct {
	Text string `json:"text"`
}

// isEntry implements the Entry interface for UserRequest.
func (UserRequest) isEntry() {}

// Decision is one Decision Engine output as recorded in the history.
// Thought is advisory free text for observability; control flow depends only
// on Action, Target and Content.
type Decision struct {
	Thought string `json:"thought,omitempty"`
	Action  Action `json:"action"`
	Target  string `json:"target,omitempty"` // required iff Action == ActionDispatch
	Content string `json:"content"`
}

// isEntry implements the Entry interface for Decision.
func (Decision) isEntry() {}

// ServiceResult records the outcome of one dispatch: either the text a remote
// service produced, or a human-readable failure description with IsError set.
// Failures are recorded rather than dropped so the Decision Engine can reason
// about retries or alternate routing.
type ServiceResult struct {
	Target  string `json:"target"`
	Text    string `json:"text"`
	IsError bool   `json:"is_error,omitempty"`
}

// isEntry implements the Entry interface for ServiceResult.
func (ServiceResult) isEntry() {}

// History is the ordered, append-only record of a single request's exchange.
// It has a single writer (the orchestration loop) and is not safe for
// concurrent mutation; Entries returns a defensive copy so snapshots handed
// to collaborators cannot observe later appends.
type History struct {
	id      string
	created time.Time
	entries []Entry
}

// NewHistory creates a History seeded with the user's request text as its
// first entry.
func NewHistory(requestText string) *History {
	return &History{
		id:      NewID(),
		created: time.Now().UTC(),
		entries: []Entry{UserRequest{Text: requestText}},
	}
}

// ID returns the unique identifier assigned to this request's history.
func (h *History) ID() string { return h.id }

// Created returns the UTC creation time of the history.
func (h *History) Created() time.Time { return h.created }

// Append adds an entry to the end of the history. Entries are never mutated
// or removed once appended.
func (h *History) Append(e Entry) { h.entries = append(h.entries, e) }

// Len returns the number of entries recorded so far.
func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy of the recorded entries in append order.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Request returns the text of the initial UserRequest entry, or the empty
// string for an unseeded history.
func (h *History) Request() string {
	if len(h.entries) == 0 {
		return ""
	}
	if ur, ok := h.entries[0].(UserRequest); ok {
		return ur.Text
	}
	return ""
}

// LastDispatch returns the most recent Decision with ActionDispatch, if any.
// The orchestration loop uses it to synthesize a best-effort partial answer
// when the iteration bound is reached.
func (h *History) LastDispatch() (Decision, bool) {
	for i := len(h.entries) - 1; i >= 0; i-- {
		if d, ok := h.entries[i].(Decision); ok && d.Action == ActionDispatch {
			return d, true
		}
	}
	return Decision{}, false
}

// String renders a compact single-line summary useful in logs and errors.
func (h *History) String() string {
	return fmt.Sprintf("history(id=%s entries=%d)", h.id, len(h.entries))
}

// NewID generates a new unique identifier for histories, messages and tasks.
func NewID() string { return uuid.NewString() }
