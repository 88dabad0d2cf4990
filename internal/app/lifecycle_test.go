package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/beamlink/signaling/internal/core"
	"github.com/beamlink/signaling/internal/domain"
)

// fakeConn captures frames instead of writing to a socket.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backpressure")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

type wireNote struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connection_id"`
	Sender       string `json:"sender_connection_id"`
	RoomID       string `json:"room_id"`
	DeviceName   string `json:"device_name"`
	Members      []struct {
		ConnectionID string `json:"connection_id"`
		DeviceName   string `json:"device_name"`
	} `json:"members"`
	Offer json.RawMessage `json:"offer"`
}

func (f *fakeConn) notes(t *testing.T) []wireNote {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]wireNote, 0, len(f.frames))
	for _, fr := range f.frames {
		var n wireNote
		if err := json.Unmarshal(fr, &n); err != nil {
			t.Fatalf("decode frame %q: %v", fr, err)
		}
		out = append(out, n)
	}
	return out
}

func (f *fakeConn) lastOfType(t *testing.T, typ string) (wireNote, bool) {
	t.Helper()
	var found wireNote
	ok := false
	for _, n := range f.notes(t) {
		if n.Type == typ {
			found = n
			ok = true
		}
	}
	return found, ok
}

func newLifecycle() *Lifecycle {
	reg := NewRegistry()
	return NewLifecycle(reg, NewDirectory(), NewRelay(reg))
}

func TestLifecycle_TwoPeerScenario(t *testing.T) {
	l := newLifecycle()
	connA, connB := &fakeConn{}, &fakeConn{}
	a, b := domain.ConnID("conn-a"), domain.ConnID("conn-b")

	l.OnConnect(a, connA)
	l.OnConnect(b, connB)

	l.OnJoin(a, "lobby", "alpha")
	ack, ok := connA.lastOfType(t, "joined_ack")
	if !ok {
		t.Fatalf("A got no joined_ack, frames: %v", connA.notes(t))
	}
	if ack.ConnectionID != string(a) {
		t.Fatalf("A ack connection_id=%q, want %q", ack.ConnectionID, a)
	}
	if len(ack.Members) != 0 {
		t.Fatalf("A ack members=%v, want empty (joined first)", ack.Members)
	}

	l.OnJoin(b, "lobby", "bravo")
	ack, ok = connB.lastOfType(t, "joined_ack")
	if !ok {
		t.Fatal("B got no joined_ack")
	}
	if len(ack.Members) != 1 || ack.Members[0].ConnectionID != string(a) {
		t.Fatalf("B ack members=%v, want [%s]", ack.Members, a)
	}
	if ack.Members[0].DeviceName != "alpha" {
		t.Fatalf("B ack member device=%q, want alpha", ack.Members[0].DeviceName)
	}

	joined, ok := connA.lastOfType(t, "peer_joined")
	if !ok {
		t.Fatal("A got no peer_joined for B")
	}
	if joined.ConnectionID != string(b) || joined.DeviceName != "bravo" || joined.RoomID != "lobby" {
		t.Fatalf("peer_joined=%+v, want conn-b/bravo/lobby", joined)
	}

	if got := l.OnRelay(a, KindOffer, b, json.RawMessage(`"x"`)); got != Delivered {
		t.Fatalf("relay outcome=%v, want Delivered", got)
	}
	offer, ok := connB.lastOfType(t, "relay_offer")
	if !ok {
		t.Fatal("B got no relay_offer")
	}
	if offer.Sender != string(a) || string(offer.Offer) != `"x"` {
		t.Fatalf("relay_offer=%+v, want sender=conn-a offer=\"x\"", offer)
	}

	l.OnDisconnect(a)
	left, ok := connB.lastOfType(t, "peer_left")
	if !ok {
		t.Fatal("B got no peer_left for A")
	}
	if left.ConnectionID != string(a) {
		t.Fatalf("peer_left connection_id=%q, want %q", left.ConnectionID, a)
	}

	members := l.Directory.MembersOf("lobby")
	if len(members) != 1 || members[0] != b {
		t.Fatalf("members of lobby=%v, want [%s]", members, b)
	}
}

func TestLifecycle_RoomSwitchLeavesOldRoom(t *testing.T) {
	l := newLifecycle()
	connA, connC := &fakeConn{}, &fakeConn{}
	a, c := domain.ConnID("conn-a"), domain.ConnID("conn-c")

	l.OnConnect(a, connA)
	l.OnConnect(c, connC)
	l.OnJoin(c, "r1", "charlie")
	l.OnJoin(a, "r1", "alpha")
	l.OnJoin(a, "r2", "alpha")

	for _, id := range l.Directory.MembersOf("r1") {
		if id == a {
			t.Fatal("r1 still contains conn-a after switch")
		}
	}
	members := l.Directory.MembersOf("r2")
	if len(members) != 1 || members[0] != a {
		t.Fatalf("members of r2=%v, want [%s]", members, a)
	}

	left, ok := connC.lastOfType(t, "peer_left")
	if !ok {
		t.Fatal("old room member got no peer_left on switch")
	}
	if left.ConnectionID != string(a) {
		t.Fatalf("peer_left connection_id=%q, want %q", left.ConnectionID, a)
	}
}

func TestLifecycle_RejoinSameRoomIsSetSemantics(t *testing.T) {
	l := newLifecycle()
	connA := &fakeConn{}
	a := domain.ConnID("conn-a")

	l.OnConnect(a, connA)
	l.OnJoin(a, "lobby", "alpha")
	l.OnJoin(a, "lobby", "alpha")

	members := l.Directory.MembersOf("lobby")
	if len(members) != 1 || members[0] != a {
		t.Fatalf("members=%v, want exactly [%s]", members, a)
	}
	ack, _ := connA.lastOfType(t, "joined_ack")
	if len(ack.Members) != 0 {
		t.Fatalf("re-join ack members=%v, want empty", ack.Members)
	}
}

func TestLifecycle_RelayToUnknownTargetDropsSilently(t *testing.T) {
	l := newLifecycle()
	connA := &fakeConn{}
	a := domain.ConnID("conn-a")
	l.OnConnect(a, connA)
	l.OnJoin(a, "lobby", "alpha")

	before := len(connA.notes(t))
	if got := l.OnRelay(a, KindOffer, "never-registered", json.RawMessage(`{}`)); got != Dropped {
		t.Fatalf("outcome=%v, want Dropped", got)
	}
	if after := len(connA.notes(t)); after != before {
		t.Fatalf("sender received %d extra frames for a dropped relay", after-before)
	}
}

func TestLifecycle_LastMemberDisconnectDeletesRoom(t *testing.T) {
	l := newLifecycle()
	a := domain.ConnID("conn-a")
	l.OnConnect(a, &fakeConn{})
	l.OnJoin(a, "lonely", "alpha")
	l.OnDisconnect(a)

	if members := l.Directory.MembersOf("lonely"); len(members) != 0 {
		t.Fatalf("members=%v, want empty", members)
	}
	if got := l.Directory.Count(); got != 0 {
		t.Fatalf("room count=%d, want 0", got)
	}
}

func TestLifecycle_EventsAfterDisconnectAreNoOps(t *testing.T) {
	l := newLifecycle()
	a := domain.ConnID("conn-a")
	l.OnConnect(a, &fakeConn{})
	l.OnJoin(a, "lobby", "alpha")
	l.OnDisconnect(a)

	// None of these may panic or mutate anything.
	l.OnDisconnect(a)
	l.OnLeave(a)
	l.OnJoin(a, "lobby", "alpha")
	if got := l.OnRelay(a, KindAnswer, a, json.RawMessage(`{}`)); got != Dropped {
		t.Fatalf("relay after disconnect=%v, want Dropped", got)
	}

	if got := l.Registry.Count(); got != 0 {
		t.Fatalf("connection count=%d, want 0", got)
	}
	if got := l.Directory.Count(); got != 0 {
		t.Fatalf("room count=%d, want 0", got)
	}
}

func TestLifecycle_LeaveKeepsConnectionRegistered(t *testing.T) {
	l := newLifecycle()
	a := domain.ConnID("conn-a")
	l.OnConnect(a, &fakeConn{})
	l.OnJoin(a, "lobby", "alpha")
	l.OnLeave(a)

	peer, _, ok := l.Registry.Lookup(a)
	if !ok {
		t.Fatal("connection gone after leave")
	}
	if peer.RoomID != "" {
		t.Fatalf("room after leave=%q, want empty", peer.RoomID)
	}
	if got := l.Directory.Count(); got != 0 {
		t.Fatalf("room count=%d, want 0", got)
	}
}

func TestLifecycle_Status(t *testing.T) {
	l := newLifecycle()
	a, b := domain.ConnID("conn-a"), domain.ConnID("conn-b")
	l.OnConnect(a, &fakeConn{})
	l.OnConnect(b, &fakeConn{})
	l.OnJoin(a, "lobby", "alpha")

	st := l.Status()
	if st.Connections != 2 {
		t.Fatalf("connections=%d, want 2", st.Connections)
	}
	if st.Rooms != 1 {
		t.Fatalf("rooms=%d, want 1", st.Rooms)
	}
	if len(st.RoomMembers) != 1 || st.RoomMembers[0].ID != "lobby" || st.RoomMembers[0].MemberCount != 1 {
		t.Fatalf("room members=%v, want [{lobby 1}]", st.RoomMembers)
	}
}
