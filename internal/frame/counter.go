package frame

// SendCounter is the local rolling counter, always in [4,7], initialised to 4.
type SendCounter struct {
	value byte
}

// NewSendCounter returns a counter starting at 4, per the protocol's reset value.
func NewSendCounter() *SendCounter { return &SendCounter{value: 4} }

// Current returns the counter value to use for the next outbound frame
// without advancing it.
func (c *SendCounter) Current() byte { return c.value }

// Advance returns the value used for the frame just sent, then wraps
// 7 -> 4 for the next call.
func (c *SendCounter) Advance() byte {
	used := c.value
	if c.value == 7 {
		c.value = 4
	} else {
		c.value++
	}
	return used
}

// ReceiveCounter is the peer-derived counter. It is a sum type in spirit:
// Unset until Establish is called (during the handshake), Set afterwards.
// Callers must not call Advance before Establish; the session's control flow
// guarantees this by construction (handshake always precedes steady state).
type ReceiveCounter struct {
	value byte
	set   bool
}

// IsSet reports whether the handshake has established a receive counter.
func (r *ReceiveCounter) IsSet() bool { return r.set }

// Value returns the current counter value; only meaningful once IsSet.
func (r *ReceiveCounter) Value() byte { return r.value }

// Establish derives the initial receive counter from the first peer frame's
// counter byte, as observed during the handshake.
func (r *ReceiveCounter) Establish(peerCounterByte byte) byte {
	r.value = peerCounterByte & 0x0F
	r.set = true
	return r.value
}

// wrap folds n into the inclusive range [4,7].
func wrap(n byte) byte {
	return 4 + (n-4)%4
}

// Advance predicts the next expected counter, compares it against the
// peer's actual type byte, and resynchronises on mismatch. It returns the
// new receive counter value and whether a resync (sync error) occurred.
func (r *ReceiveCounter) Advance(typeByte byte) (newValue byte, syncError bool) {
	expected := wrap(r.value + 1)
	if typeByte == (0xC0 | expected) {
		r.value = expected
		return r.value, false
	}
	// Peer disagrees with our prediction: the peer owns counter phase, so we
	// adopt its value and surface the anomaly instead of rejecting the frame.
	r.value = typeByte & 0x0F
	return r.value, true
}
