package app

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/beamlink/signaling/internal/core"
	"github.com/beamlink/signaling/internal/domain"
)

var (
	// ErrDuplicateConnection means the transport handed out a connection id
	// twice. That must not happen; the later registration is ignored.
	ErrDuplicateConnection = errors.New("duplicate connection")

	// ErrUnknownConnection means an operation referenced a connection that is
	// not (or no longer) registered.
	ErrUnknownConnection = errors.New("unknown connection")
)

type regEntry struct {
	peer *domain.Peer
	conn core.SignalConnection
}

// Registry owns the mapping from a live transport connection to its peer
// metadata. It is the only holder of mutable Peer state; Lookup hands out
// copies so nothing outside survives a mutation.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*regEntry
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[domain.ConnID]*regEntry)}
}

func (r *Registry) Register(id domain.ConnID, conn core.SignalConnection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id]; ok {
		log.Error().Str("module", "app.registry").Str("conn", string(id)).Msg("duplicate registration ignored")
		return ErrDuplicateConnection
	}
	r.conns[id] = &regEntry{peer: &domain.Peer{ID: id}, conn: conn}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("connection registered")
	return nil
}

// AttachRoom records room membership metadata on an already registered
// connection and stamps the join time.
func (r *Registry) AttachRoom(id domain.ConnID, room domain.RoomID, deviceName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return ErrUnknownConnection
	}
	e.peer.RoomID = room
	e.peer.DeviceName = deviceName
	e.peer.JoinedAt = time.Now().UTC()
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("room", string(room)).Str("device", deviceName).Msg("room attached")
	return nil
}

// DetachRoom clears the room association but keeps the connection registered.
func (r *Registry) DetachRoom(id domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok {
		e.peer.RoomID = ""
	}
}

func (r *Registry) Lookup(id domain.ConnID) (domain.Peer, core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return domain.Peer{}, nil, false
	}
	return *e.peer, e.conn, true
}

// Remove deletes the entry and returns the prior state so the caller can
// notify the peer's room.
func (r *Registry) Remove(id domain.ConnID) (domain.Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return domain.Peer{}, false
	}
	delete(r.conns, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("connection removed")
	return *e.peer, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
