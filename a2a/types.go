// Package a2a implements the wire protocol used to exchange tasks with
// remote services: the JSON-RPC message/send envelope, the task and artifact
// response shapes, and the Client that dispatches a text payload to a
// resolved endpoint and aggregates exactly one textual result per call.
package a2a

import (
	"encoding/json"

	"github.com/hupe1980/routermesh/core"
)

// MethodMessageSend is the JSON-RPC method used to submit a task request.
const MethodMessageSend = "message/send"

// Part is a content segment of a message or artifact. Only text parts are
// produced by this client; unknown kinds are preserved for callers that
// inspect raw payloads.
type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

// NewTextPart builds a text content part.
func NewTextPart(text string) Part {
	return Part{Kind: "text", Text: text}
}

// Message is the unit sent to a remote service: a role, ordered content
// parts and a unique message identifier.
type Message struct {
	Kind      string `json:"kind"`
	Role      string `json:"role"`
	Parts     []Part `json:"parts"`
	MessageID string `json:"messageId"`
}

// NewUserMessage builds a user-role message carrying a single text part and
// a fresh message identifier.
func NewUserMessage(text string) Message {
	return Message{
		Kind:      "message",
		Role:      "user",
		Parts:     []Part{NewTextPart(text)},
		MessageID: core.NewID(),
	}
}

// TaskStatus carries the lifecycle state of a task ("submitted", "working",
// "completed", "failed", ...).
type TaskStatus struct {
	State   string   `json:"state"`
	Message *Message `json:"message,omitempty"`
}

// Artifact is one produced output of a task. The result text of a dispatch
// lives at Artifacts[0].Parts[0].Text.
type Artifact struct {
	ArtifactID string `json:"artifactId"`
	Name       string `json:"name,omitempty"`
	Parts      []Part `json:"parts"`
}

// Task is the response envelope a remote service returns for a dispatched
// message.
type Task struct {
	Kind      string     `json:"kind"`
	ID        string     `json:"id"`
	ContextID string     `json:"contextId,omitempty"`
	Status    TaskStatus `json:"status"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// SendParams wraps the message for the message/send method.
type SendParams struct {
	Message Message `json:"message"`
}

// Request is a JSON-RPC 2.0 request envelope for the message/send method.
type Request struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      string     `json:"id"`
	Method  string     `json:"method"`
	Params  SendParams `json:"params"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is a JSON-RPC 2.0 response envelope. Result stays raw so the
// extraction path can fall back to the stringified payload when the expected
// task shape is absent.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Text returns the concatenated text of all text parts of the message.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Kind == "text" {
			out += p.Text
		}
	}
	return out
}
