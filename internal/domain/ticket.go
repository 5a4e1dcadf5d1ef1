package domain

import (
	"bytes"
	"encoding/json"
)

type TicketStatus int

type TicketSource int

const (
	TicketStatusOpen   TicketStatus = 2 // Open
	TicketSourcePortal TicketSource = 2 // Portal
)

// TicketPayload is the body of POST /tickets. Field order is the wire order.
type TicketPayload struct {
	Email        string       `json:"email"`
	Subject      string       `json:"subject"`
	Description  string       `json:"description"`
	Status       TicketStatus `json:"status"`
	Priority     Priority     `json:"priority"`
	Category     string       `json:"category"`
	SubCategory  string       `json:"sub_category"`
	ItemCategory string       `json:"item_category"`
	WorkspaceID  int64        `json:"workspace_id"`
	Source       TicketSource `json:"source"`
}

// Encode serializes the payload without HTML escaping so descriptions
// containing markup reach the API untouched.
func (p TicketPayload) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Ticket is the subset of the created ticket echoed back by the API.
type Ticket struct {
	ID          int64  `json:"id"`
	Subject     string `json:"subject"`
	WorkspaceID int64  `json:"workspace_id"`
}

type TicketEnvelope struct {
	Ticket *Ticket `json:"ticket"`
}
