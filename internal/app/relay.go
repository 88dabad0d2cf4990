package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/beamlink/signaling/internal/domain"
)

// Kind classifies a negotiation message. The payload itself stays opaque.
type Kind string

const (
	KindOffer     Kind = "offer"
	KindAnswer    Kind = "answer"
	KindCandidate Kind = "candidate"
)

// Outcome of a relay attempt. A Dropped message is not an error condition:
// the negotiation protocol above this layer times out and retries on its own.
type Outcome int

const (
	Dropped Outcome = iota
	Delivered
)

func (o Outcome) String() string {
	if o == Delivered {
		return "delivered"
	}
	return "dropped"
}

// Envelope is the routed form of a negotiation message. Sender is always
// filled by the server, never trusted from the client.
type Envelope struct {
	Kind    Kind
	Sender  domain.ConnID
	Target  domain.ConnID
	Payload json.RawMessage
}

type relayNotification struct {
	Type      string          `json:"type"`
	Sender    domain.ConnID   `json:"sender_connection_id"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// Relay forwards envelopes to their target connection. It never buffers,
// queues or retries: one synchronous TrySend per envelope, and the send
// happens outside any registry lock so a slow peer cannot stall others.
type Relay struct {
	registry *Registry
}

func NewRelay(reg *Registry) *Relay {
	return &Relay{registry: reg}
}

func (r *Relay) Forward(env Envelope) Outcome {
	_, conn, ok := r.registry.Lookup(env.Target)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("kind", string(env.Kind)).Str("target", string(env.Target)).Msg("target not registered, dropped")
		return Dropped
	}

	note := relayNotification{Type: "relay_" + string(env.Kind), Sender: env.Sender}
	switch env.Kind {
	case KindOffer:
		note.Offer = env.Payload
	case KindAnswer:
		note.Answer = env.Payload
	case KindCandidate:
		note.Candidate = env.Payload
	default:
		log.Warn().Str("module", "app.relay").Str("kind", string(env.Kind)).Msg("unknown relay kind, dropped")
		return Dropped
	}

	frame, err := json.Marshal(note)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Msg("marshal relay notification")
		return Dropped
	}
	if err := conn.TrySend(frame); err != nil {
		log.Debug().Err(err).Str("module", "app.relay").Str("target", string(env.Target)).Msg("send failed, dropped")
		return Dropped
	}
	return Delivered
}
