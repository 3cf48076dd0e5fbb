package websocket

import (
	"encoding/json"
	"fmt"
)

// Wire protocol: every message in either direction is a single JSON object
// with exactly two top-level fields, type and payload.

// Inbound message types (client -> server).
const (
	MessageUpdateList     = "update-list"
	MessageAddHistory     = "add-history"
	MessageGetHistory     = "get-history"
	MessageUndoLastAction = "undo-last-action"
)

// Outbound message types (server -> client).
const (
	MessageInitialData    = "initial-data"
	MessageListUpdated    = "list-updated"
	MessageHistoryUpdated = "history-updated"
	MessageError          = "error"
	MessageInfo           = "info"
)

// Envelope is the wire framing for both directions. The payload stays raw
// until the type is known.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// messagePayload is the payload of error and info messages.
type messagePayload struct {
	Message string `json:"message"`
}

// undoPayload is the payload of undo-last-action. The action id is part of
// the protocol but the engine always undoes the head of the log.
type undoPayload struct {
	ActionID string `json:"actionId"`
}

func encodeMessage(messageType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", messageType, err)
	}
	return json.Marshal(Envelope{Type: messageType, Payload: raw})
}

func errorMessage(message string) []byte {
	data, _ := encodeMessage(MessageError, messagePayload{Message: message})
	return data
}

func infoMessage(message string) []byte {
	data, _ := encodeMessage(MessageInfo, messagePayload{Message: message})
	return data
}
