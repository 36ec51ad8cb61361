package websocket

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Wire frames exchanged with clients. Inbound payloads and outbound events
// are explicit typed records rather than free-form maps.

// InboundFrame is one client chat submission.
type InboundFrame struct {
	Message string `json:"message"`
	CaseID  CaseID `json:"case_id"`
}

// ChatEvent is the outbound frame fanned out to every session in a group.
type ChatEvent struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Message  string `json:"message"`
}

// ErrorFrame is sent only to the originating connection, never broadcast.
type ErrorFrame struct {
	Error string `json:"error"`
}

// CaseID tolerates clients sending the case identifier as either a JSON
// number or a string.
type CaseID string

func (c *CaseID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = CaseID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = CaseID(n.String())
	return nil
}

func (c CaseID) String() string {
	return string(c)
}
