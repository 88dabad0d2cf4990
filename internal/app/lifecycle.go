package app

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/beamlink/signaling/internal/core"
	"github.com/beamlink/signaling/internal/domain"
)

// MemberDTO is the per-peer view sent in join notifications.
type MemberDTO struct {
	ConnectionID domain.ConnID `json:"connection_id"`
	DeviceName   string        `json:"device_name"`
	JoinedAt     time.Time     `json:"joined_at"`
}

type joinedAck struct {
	Type         string        `json:"type"`
	ConnectionID domain.ConnID `json:"connection_id"`
	RoomID       domain.RoomID `json:"room_id"`
	Members      []MemberDTO   `json:"members"`
}

type peerJoined struct {
	Type         string        `json:"type"`
	ConnectionID domain.ConnID `json:"connection_id"`
	DeviceName   string        `json:"device_name"`
	RoomID       domain.RoomID `json:"room_id"`
	JoinedAt     time.Time     `json:"joined_at"`
}

type peerLeft struct {
	Type         string        `json:"type"`
	ConnectionID domain.ConnID `json:"connection_id"`
}

// Status is the live observability view over both registries.
type Status struct {
	Connections int        `json:"connections"`
	Rooms       int        `json:"rooms"`
	RoomMembers []RoomInfo `json:"room_members"`
}

// Lifecycle orchestrates connect, join, leave, relay and disconnect events.
// Every handler tolerates events arriving after the connection is gone:
// a missing registration is a logged no-op, never a failure that escapes.
type Lifecycle struct {
	Registry  *Registry
	Directory *Directory
	Relay     *Relay
}

func NewLifecycle(reg *Registry, dir *Directory, relay *Relay) *Lifecycle {
	return &Lifecycle{Registry: reg, Directory: dir, Relay: relay}
}

func (l *Lifecycle) OnConnect(id domain.ConnID, conn core.SignalConnection) {
	// Register already logs the duplicate case; nothing else to do here.
	_ = l.Registry.Register(id, conn)
}

// OnJoin moves the connection into roomID. A connection already in another
// room is switched: the old room's remaining members get peer_left first.
func (l *Lifecycle) OnJoin(id domain.ConnID, roomID domain.RoomID, deviceName string) {
	prior, _, ok := l.Registry.Lookup(id)
	if !ok {
		log.Warn().Str("module", "app.lifecycle").Str("conn", string(id)).Msg("join from unregistered connection")
		return
	}
	if prior.RoomID != "" && prior.RoomID != roomID {
		l.leaveRoom(id, prior.RoomID)
	}

	if err := l.Registry.AttachRoom(id, roomID, deviceName); err != nil {
		log.Warn().Err(err).Str("module", "app.lifecycle").Str("conn", string(id)).Msg("attach room")
		return
	}
	others := l.Directory.Join(roomID, id)
	self, _, _ := l.Registry.Lookup(id)

	members := make([]MemberDTO, 0, len(others))
	for _, oid := range others {
		if p, _, ok := l.Registry.Lookup(oid); ok {
			members = append(members, MemberDTO{ConnectionID: p.ID, DeviceName: p.DeviceName, JoinedAt: p.JoinedAt})
		}
	}
	l.send(id, joinedAck{Type: "joined_ack", ConnectionID: id, RoomID: roomID, Members: members})
	l.broadcast(others, peerJoined{
		Type:         "peer_joined",
		ConnectionID: id,
		DeviceName:   self.DeviceName,
		RoomID:       roomID,
		JoinedAt:     self.JoinedAt,
	})
	log.Info().Str("module", "app.lifecycle").Str("conn", string(id)).Str("room", string(roomID)).Int("peers", len(others)).Msg("joined room")
}

// OnRelay routes one negotiation message. Sender and target are not required
// to share a room: rooms are discovery scopes, not security boundaries.
func (l *Lifecycle) OnRelay(sender domain.ConnID, kind Kind, target domain.ConnID, payload json.RawMessage) Outcome {
	if _, _, ok := l.Registry.Lookup(sender); !ok {
		log.Debug().Str("module", "app.lifecycle").Str("conn", string(sender)).Msg("relay from unregistered connection")
		return Dropped
	}
	return l.Relay.Forward(Envelope{Kind: kind, Sender: sender, Target: target, Payload: payload})
}

// OnLeave exits the current room without dropping the transport.
func (l *Lifecycle) OnLeave(id domain.ConnID) {
	peer, _, ok := l.Registry.Lookup(id)
	if !ok || peer.RoomID == "" {
		return
	}
	l.leaveRoom(id, peer.RoomID)
	l.Registry.DetachRoom(id)
	log.Info().Str("module", "app.lifecycle").Str("conn", string(id)).Str("room", string(peer.RoomID)).Msg("left room")
}

// OnDisconnect removes the peer from both registries and notifies its room.
// Safe to call more than once for the same connection.
func (l *Lifecycle) OnDisconnect(id domain.ConnID) {
	peer, ok := l.Registry.Remove(id)
	if !ok {
		return
	}
	if peer.RoomID != "" {
		l.leaveRoom(id, peer.RoomID)
	}
	log.Info().Str("module", "app.lifecycle").Str("conn", string(id)).Msg("disconnected")
}

func (l *Lifecycle) Status() Status {
	return Status{
		Connections: l.Registry.Count(),
		Rooms:       l.Directory.Count(),
		RoomMembers: l.Directory.Rooms(),
	}
}

func (l *Lifecycle) leaveRoom(id domain.ConnID, room domain.RoomID) {
	l.Directory.Leave(room, id)
	remaining := l.Directory.MembersOf(room)
	l.broadcast(remaining, peerLeft{Type: "peer_left", ConnectionID: id})
}

func (l *Lifecycle) send(id domain.ConnID, v any) {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.lifecycle").Msg("marshal notification")
		return
	}
	_, conn, ok := l.Registry.Lookup(id)
	if !ok {
		return
	}
	if err := conn.TrySend(frame); err != nil {
		log.Debug().Err(err).Str("module", "app.lifecycle").Str("conn", string(id)).Msg("notification dropped")
	}
}

// broadcast marshals once and fans out with non-blocking sends; a slow peer
// only loses its own copy.
func (l *Lifecycle) broadcast(ids []domain.ConnID, v any) {
	if len(ids) == 0 {
		return
	}
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.lifecycle").Msg("marshal notification")
		return
	}
	for _, id := range ids {
		_, conn, ok := l.Registry.Lookup(id)
		if !ok {
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			log.Debug().Err(err).Str("module", "app.lifecycle").Str("conn", string(id)).Msg("notification dropped")
		}
	}
}
