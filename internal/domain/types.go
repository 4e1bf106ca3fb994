// Package domain defines the core types shared by the streaming client.
package domain

import "encoding/json"

// EventType identifies a protocol event on the wire.
type EventType string

const (
	EventToken     EventType = "token"     // incremental text fragment
	EventReasoning EventType = "reasoning" // provisional thinking text
	EventDone      EventType = "done"      // terminal, carries the result object
	EventError     EventType = "error"     // terminal, carries a server message
)

// Terminal reports whether the event type ends the stream.
func (t EventType) Terminal() bool {
	return t == EventDone || t == EventError
}

// ProtocolEvent is one decoded server-sent event.
// Text is set for token/reasoning events, Payload for done events.
type ProtocolEvent struct {
	Type    EventType
	Text    string
	Payload json.RawMessage
}

// StreamResult is the decoded payload of the done event.
type StreamResult struct {
	Payload map[string]any
	Raw     json.RawMessage
}

// StreamState tracks the lifecycle of one streaming call.
type StreamState string

const (
	StateConnecting StreamState = "connecting"
	StateStreaming  StreamState = "streaming"
	StateResolved   StreamState = "resolved"
	StateRejected   StreamState = "rejected"
	StateCancelled  StreamState = "cancelled"
)

// Terminal reports whether the state is a settlement state.
func (s StreamState) Terminal() bool {
	return s == StateResolved || s == StateRejected || s == StateCancelled
}

// ConnectionSettings defines HTTP connection pool settings for the backend
type ConnectionSettings struct {
	MaxConnections     int  `json:"max_connections"`      // Max TCP connections to the backend
	MaxIdleConnections int  `json:"max_idle_connections"` // Connections kept warm for reuse
	IdleTimeoutSec     int  `json:"idle_timeout_sec"`     // Close idle connections after this time
	RequestTimeoutSec  int  `json:"request_timeout_sec"`  // Max time for a plain (non-streaming) request
	EnableHTTP2        bool `json:"enable_http2"`         // Use HTTP/2 for better performance
	EnableKeepAlive    bool `json:"enable_keep_alive"`    // Reuse connections
}

// DefaultConnectionSettings returns sensible defaults
func DefaultConnectionSettings() ConnectionSettings {
	return ConnectionSettings{
		MaxConnections:     10,
		MaxIdleConnections: 5,
		IdleTimeoutSec:     90,
		RequestTimeoutSec:  120,
		EnableHTTP2:        true,
		EnableKeepAlive:    true,
	}
}
