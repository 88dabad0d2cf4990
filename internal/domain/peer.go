// Package domain contains entity without logic, just meta-data
package domain

import (
	"time"

	"github.com/google/uuid"
)

const MaxDeviceNameLen = 64

type ConnID string

// NewConnID assigns the opaque identifier for a transport session. It is
// unique for the lifetime of the connection and never reused.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

// Peer is the metadata held for one live transport session. RoomID stays
// empty until the first join.
type Peer struct {
	ID         ConnID    `json:"connection_id"`
	DeviceName string    `json:"device_name"`
	RoomID     RoomID    `json:"room_id,omitempty"`
	JoinedAt   time.Time `json:"joined_at,omitzero"`
}

// SanitizeDeviceName applies the join defaults: absent names get a generated
// placeholder, overlong names are truncated.
func SanitizeDeviceName(raw string) string {
	if raw == "" {
		return "Device_" + uuid.NewString()[:8]
	}
	if len(raw) > MaxDeviceNameLen {
		raw = raw[:MaxDeviceNameLen]
	}
	return raw
}
