package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Shape(t *testing.T) {
	payload := RequestPayload(0x00, 0x01, 0x00, 0x00)
	out, err := Build(PrefixRequest, 4, payload)
	require.NoError(t, err)

	assert.Equal(t, HDR[:], out[0:2])
	assert.Equal(t, byte(0x40|4), out[2], "prefix nibble 4 in the high bits, counter in the low bits")
	assert.Equal(t, payload, out[3:9])
	assert.Equal(t, EOM[:], out[9:11])
	assert.Equal(t, CRC8(out[2:9]), out[11])
}

func TestBuild_HandshakePrefix(t *testing.T) {
	out, err := Build(PrefixHandshake, 5, HandshakePayload())
	require.NoError(t, err)
	assert.Equal(t, byte(0x80|5), out[2])
}

func TestBuild_RejectsOversizedPrefix(t *testing.T) {
	_, err := Build(0x10, 4, nil)
	assert.Error(t, err)
}

func TestRequestPayload_Shape(t *testing.T) {
	p := RequestPayload(0x07, 0x21, 0x00, 0x00)
	assert.Equal(t, []byte{0x0B, 0x01, 0x07, 0x21, 0x00, 0x00}, p)
}

func TestIsValidTypeByte(t *testing.T) {
	for tb := 0; tb < 256; tb++ {
		want := tb >= 0xC4 && tb <= 0xC7
		assert.Equal(t, want, isValidTypeByte(byte(tb)), "type byte %#x", tb)
	}
}
