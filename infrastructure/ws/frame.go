package ws

import (
	"chat-relay/domain/event"
	"chat-relay/errors"
	"encoding/json"
)

const AckType = "ack"

// Frame is the envelope of everything exchanged over the socket.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Ack answers a frame carrying a request id.
type Ack struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *AckError `json:"error,omitempty"`
}

type AckError struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func toAck(data any, err error) Ack {
	if err == nil {
		return Ack{Success: true, Data: data}
	}
	code, message := errors.ToCode(err)
	return Ack{Error: &AckError{Code: code, Message: message}}
}

func encodeFrame(frameType, requestID string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: frameType, RequestID: requestID, Payload: raw})
}

func eventFrame(e event.DomainEvent) ([]byte, error) {
	return encodeFrame(string(e.Type()), "", e)
}

func ackFrame(requestID string, ack Ack) ([]byte, error) {
	return encodeFrame(AckType, requestID, ack)
}
