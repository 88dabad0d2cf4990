package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/beamlink/signaling/internal/domain"
)

func (ctl *SignalWSController) handleJoin(id domain.ConnID, data []byte) {
	type joinPayload struct {
		Type       string `json:"type"`
		RoomID     string `json:"room_id"`
		DeviceName string `json:"device_name"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad join payload")
		return
	}

	roomID := domain.SanitizeRoomID(p.RoomID)
	deviceName := domain.SanitizeDeviceName(p.DeviceName)

	log.Info().Str("module", "signal").Str("conn", string(id)).Str("room", string(roomID)).Msg("join")
	ctl.Life.OnJoin(id, roomID, deviceName)
}

// handleLeave exits the current room; the connection itself stays up.
func (ctl *SignalWSController) handleLeave(id domain.ConnID, c *WsSignalConn) {
	log.Info().Str("module", "signal").Str("conn", string(id)).Msg("leave")
	ctl.Life.OnLeave(id)
	ctl.sendJSON(c, map[string]any{
		"type": "left",
	})
}
