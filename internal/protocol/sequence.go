package protocol

// SequenceGuard suppresses duplicate retransmissions of the same physical
// reading. The device alternates a single header bit per new measurement and
// resends the previous frame unchanged until it is acknowledged, so two
// consecutive frames with equal bits are the same reading. This is a 1-bit
// edge detector, not a sequence number space.
//
// State is per connection: create a fresh guard (or call Reset) whenever the
// link is reopened, since the device's bit phase is unknown after a reconnect.
type SequenceGuard struct {
	seen bool
	last bool
}

// NewSequenceGuard returns a guard in the unset state; the first frame after
// connection open is always accepted.
func NewSequenceGuard() *SequenceGuard {
	return &SequenceGuard{}
}

// Accept reports whether a frame carrying the given sequence bit is a new
// reading. The first call after Reset accepts unconditionally; afterwards a
// frame is accepted exactly when its bit differs from the last accepted one.
func (g *SequenceGuard) Accept(sequenceBit bool) bool {
	if g.seen && g.last == sequenceBit {
		return false
	}
	g.seen = true
	g.last = sequenceBit
	return true
}

// Reset discards the guard state, as on disconnect/reconnect.
func (g *SequenceGuard) Reset() {
	g.seen = false
	g.last = false
}
