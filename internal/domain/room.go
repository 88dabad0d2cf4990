package domain

type RoomID string

// DefaultRoom is joined when a client omits room_id.
const DefaultRoom RoomID = "default"

const MaxRoomIDLen = 64

// SanitizeRoomID applies the join defaults: empty means the shared default
// room, overlong ids are truncated.
func SanitizeRoomID(raw string) RoomID {
	if raw == "" {
		return DefaultRoom
	}
	if len(raw) > MaxRoomIDLen {
		raw = raw[:MaxRoomIDLen]
	}
	return RoomID(raw)
}
