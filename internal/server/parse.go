package server

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SaveRequest is the payload of a SAVE_PAGE_REQUEST.
type SaveRequest struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Favicon string `json:"favicon"`
}

// ParseMessage decodes one frame from the extension.
func ParseMessage(data []byte) (IncomingMsg, error) {
	var msg IncomingMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return IncomingMsg{}, fmt.Errorf("parse message: %w", err)
	}
	if msg.Type == "" {
		return IncomingMsg{}, errors.New("parse message: missing type")
	}
	return msg, nil
}

// ParseSaveRequest decodes the payload of a SAVE_PAGE_REQUEST. A missing
// payload yields an empty request.
func ParseSaveRequest(msg IncomingMsg) (SaveRequest, error) {
	var req SaveRequest
	if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
		return req, nil
	}
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return SaveRequest{}, fmt.Errorf("parse save payload: %w", err)
	}
	return req, nil
}
