// Package otrs turns ticket snapshots scraped from OTRS into board tickets.
package otrs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/jsonc"

	"github.com/boozedog/ticketflow/internal/ticket"
)

// MessageType tags the sync messages posted by the browser extension.
const MessageType = "OTRS_TICKETS_SYNC"

// ErrIgnoredMessage is returned for well-formed messages of another type.
var ErrIgnoredMessage = errors.New("not a ticket sync message")

// Message is the cross-window envelope posted by the extension.
type Message struct {
	Type    string           `json:"type"`
	Payload []ExternalTicket `json:"payload"`
}

// ExternalTicket is one scraped ticket row.
type ExternalTicket struct {
	TicketID string `json:"ticketId"`
	Title    string `json:"title"`
	Owner    string `json:"owner"`
	Priority string `json:"priority"`
	Age      Age    `json:"age"`
}

// Age is an elapsed time in minutes. It decodes from either the scraped label
// ("2 d 3 h") or a plain number of minutes.
type Age int

func (a *Age) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var label string
		if err := json.Unmarshal(data, &label); err != nil {
			return err
		}
		*a = Age(ticket.ParseAgeInput(label))
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("age: %w", err)
	}
	*a = Age(int(n))
	return nil
}

// DecodeMessage parses a sync message. Comments and trailing commas are
// tolerated so hand-edited payload files can be replayed.
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(jsonc.ToJSON(data), &msg); err != nil {
		return Message{}, fmt.Errorf("decode sync message: %w", err)
	}
	if msg.Type != MessageType {
		return Message{}, fmt.Errorf("%w: %q", ErrIgnoredMessage, msg.Type)
	}
	return msg, nil
}

// DecodePayload parses either a full message or a bare array of tickets.
func DecodePayload(data []byte) ([]ExternalTicket, error) {
	stripped := bytes.TrimSpace(jsonc.ToJSON(data))
	if len(stripped) > 0 && stripped[0] == '[' {
		var records []ExternalTicket
		if err := json.Unmarshal(stripped, &records); err != nil {
			return nil, fmt.Errorf("decode sync payload: %w", err)
		}
		return records, nil
	}
	msg, err := DecodeMessage(stripped)
	if err != nil {
		return nil, err
	}
	return msg.Payload, nil
}
