package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/beamlink/signaling/internal/app"
	"github.com/beamlink/signaling/internal/domain"
)

// handleRelay parses one relay_offer / relay_answer / relay_candidate event.
// A missing target or payload discards the event; nothing is reported back
// to the sender.
func (ctl *SignalWSController) handleRelay(id domain.ConnID, kind app.Kind, data []byte) {
	type relayPayload struct {
		Type      string          `json:"type"`
		Target    domain.ConnID   `json:"target_connection_id"`
		Offer     json.RawMessage `json:"offer"`
		Answer    json.RawMessage `json:"answer"`
		Candidate json.RawMessage `json:"candidate"`
	}
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad relay payload")
		return
	}
	if p.Target == "" {
		log.Warn().Str("module", "signal").Str("conn", string(id)).Str("kind", string(kind)).Msg("relay without target, discarded")
		return
	}

	var payload json.RawMessage
	switch kind {
	case app.KindOffer:
		payload = p.Offer
	case app.KindAnswer:
		payload = p.Answer
	case app.KindCandidate:
		payload = p.Candidate
	}
	if len(payload) == 0 {
		log.Warn().Str("module", "signal").Str("conn", string(id)).Str("kind", string(kind)).Msg("relay without payload, discarded")
		return
	}

	outcome := ctl.Life.OnRelay(id, kind, p.Target, payload)
	log.Debug().Str("module", "signal").Str("conn", string(id)).Str("kind", string(kind)).Str("target", string(p.Target)).Str("outcome", outcome.String()).Msg("relay")
}
