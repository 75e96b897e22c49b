// Package queue carries outbound SMS through RabbitMQ: the API process
// publishes OutboundMessage payloads and a background consumer hands them
// to the delivery provider.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Message kinds.  They only label logs; delivery is identical.
const (
	KindVerification = "verification"
	KindWelcome      = "welcome"
	KindIntro        = "intro"
	KindCongrats     = "congrats"
	KindNudge        = "nudge"
	KindPartner      = "partner"
)

// OutboundMessage is one SMS waiting to be delivered.  It contains
// everything the consumer needs so delivery never touches the database.
type OutboundMessage struct {
	ID        string    `json:"id"`
	To        string    `json:"to"`
	Body      string    `json:"body"`
	Kind      string    `json:"kind,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewOutboundMessage stamps a message with a fresh id and the current UTC
// time.
func NewOutboundMessage(to, body, kind string) OutboundMessage {
	return OutboundMessage{
		ID:        uuid.NewString(),
		To:        to,
		Body:      body,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
}
