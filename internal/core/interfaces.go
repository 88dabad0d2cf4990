package core

// Frame is a raw outbound payload, already encoded for the wire.
type Frame []byte

// SignalConnection abstracts the messaging transport of one peer.
// Owned by the adapter; the adapter must Close() it. TrySend must never
// block: a full or closed connection reports an error and the frame is
// dropped by the caller.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
