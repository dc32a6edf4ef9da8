// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

// Message is a single JSON text frame broadcast to clients
type Message struct {
	Data []byte
}

// NewJSONMessage creates a message from pre-encoded JSON
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}
