package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSendCounter_WrapsFourToSeven(t *testing.T) {
	c := NewSendCounter()
	var got []byte
	for i := 0; i < 8; i++ {
		got = append(got, c.Advance())
	}
	assert.Equal(t, []byte{4, 5, 6, 7, 4, 5, 6, 7}, got)
}

func TestReceiveCounter_EstablishMasksToLowNibble(t *testing.T) {
	var rc ReceiveCounter
	assert.False(t, rc.IsSet())
	got := rc.Establish(0xC6)
	assert.True(t, rc.IsSet())
	assert.Equal(t, byte(6), got)
	assert.Equal(t, byte(6), rc.Value())
}

func TestReceiveCounter_AdvanceFollowsPrediction(t *testing.T) {
	var rc ReceiveCounter
	rc.Establish(0xC4) // value = 4
	newVal, syncErr := rc.Advance(0xC5)
	assert.False(t, syncErr)
	assert.Equal(t, byte(5), newVal)
}

func TestReceiveCounter_AdvanceWrapsSevenToFour(t *testing.T) {
	var rc ReceiveCounter
	rc.Establish(0xC7) // value = 7
	newVal, syncErr := rc.Advance(0xC4)
	assert.False(t, syncErr)
	assert.Equal(t, byte(4), newVal)
}

func TestReceiveCounter_AdvanceResyncsOnMismatch(t *testing.T) {
	var rc ReceiveCounter
	rc.Establish(0xC4) // value = 4, expected next = 5
	newVal, syncErr := rc.Advance(0xC7)
	assert.True(t, syncErr)
	assert.Equal(t, byte(7), newVal, "adopts the peer's actual counter on mismatch")
}

// TestReceiveCounter_AdvanceStaysInRange is a property: whatever sequence of
// type bytes arrives, the receive counter never leaves [4,7].
func TestReceiveCounter_AdvanceStaysInRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var rc ReceiveCounter
		rc.Establish(rapid.SampledFrom([]byte{0xC4, 0xC5, 0xC6, 0xC7}).Draw(t, "start"))
		steps := rapid.IntRange(0, 50).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			tb := rapid.SampledFrom([]byte{0xC4, 0xC5, 0xC6, 0xC7}).Draw(t, "type_byte")
			val, _ := rc.Advance(tb)
			assert.GreaterOrEqual(t, val, byte(4))
			assert.LessOrEqual(t, val, byte(7))
		}
	})
}
