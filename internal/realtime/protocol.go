// Package realtime maintains the push channel that delivers order lifecycle
// events to the restaurant terminal.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the wire protocol version embedded in every envelope.
const Version = 1

// Envelope type constants (wire-stable).
const (
	// TypeSubscribe requests delivery for a topic (client -> server).
	TypeSubscribe = "subscribe"
	// TypeEvent carries a topic payload (server -> client).
	TypeEvent = "event"
	// TypeError is a protocol error frame (server -> client).
	TypeError = "error"
)

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs structural validation of a received envelope.
func (e Envelope) Validate() error {
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %d", e.V)
	}
	if e.Type == "" {
		return errors.New("missing type")
	}
	switch e.Type {
	case TypeSubscribe, TypeEvent, TypeError:
		return nil
	default:
		return fmt.Errorf("unknown type: %q", e.Type)
	}
}

// ErrorPayload is the body of an error frame.
type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Text returns a human-readable message for the error frame, falling back
// to a generic string when the frame carries none.
func (p ErrorPayload) Text() string {
	if p.Message != "" {
		return p.Message
	}
	if p.Code != "" {
		return "realtime error: " + p.Code
	}
	return "realtime error"
}

// Per-user order topics. The snapshot topic replaces the whole orders view,
// the updated topic merges a single order by id, the created topic feeds the
// alert queue.
func TopicOrdersSnapshot(userID int64) string {
	return fmt.Sprintf("restaurant.%d.orders.snapshot", userID)
}

func TopicOrdersUpdated(userID int64) string {
	return fmt.Sprintf("restaurant.%d.orders.updated", userID)
}

func TopicOrdersCreated(userID int64) string {
	return fmt.Sprintf("restaurant.%d.orders.created", userID)
}

// subscribeFrame builds the subscribe envelope for a topic.
func subscribeFrame(topic string) ([]byte, error) {
	return json.Marshal(Envelope{V: Version, Type: TypeSubscribe, Topic: topic})
}
