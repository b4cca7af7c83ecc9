package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestCRC8_CheckValue verifies the implementation against the well-known
// CRC-8/MAXIM check value (input "123456789" -> 0xA1), the standard vector
// used to validate any CRC-8/MAXIM implementation.
func TestCRC8_CheckValue(t *testing.T) {
	assert.Equal(t, byte(0xA1), CRC8([]byte("123456789")))
}

func TestCRC8_EmptyInput(t *testing.T) {
	assert.Equal(t, byte(0x00), CRC8(nil))
}

// TestCRC8_Deterministic checks that CRC8 is a pure function of its input:
// any two calls on the same bytes agree.
func TestCRC8_Deterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOf(rapid.Byte()).Draw(t, "data")
		a := CRC8(data)
		b := CRC8(data)
		assert.Equal(t, a, b)
	})
}
