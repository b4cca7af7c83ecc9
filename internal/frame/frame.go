// Package frame implements the half-duplex framing protocol used to talk to
// the vacuum-pump controller over the serial link: delimiter recognition,
// CRC-8/MAXIM integrity, and the rolling 4-7 counter byte.
package frame

import "fmt"

// Delimiters fixed by the wire protocol.
var (
	ACK = [2]byte{0x10, 0x06}
	HDR = [2]byte{0x10, 0x02}
	EOM = [2]byte{0x10, 0x03}
)

const (
	// PrefixRequest marks parameter-request and keep-alive frames.
	PrefixRequest byte = 0x4
	// PrefixHandshake marks the handshake-completion frame.
	PrefixHandshake byte = 0x8

	typeByteMin = 0xC4
	typeByteMax = 0xC7
)

// DecodedFrame is one validated inbound frame, as delivered by DecodeStream.
type DecodedFrame struct {
	TypeByte       byte
	Byte6, Byte7   byte
	Payload        []byte
	FullFrame      []byte
	ReceiveCounter byte
	IsValidType    bool
	// SyncError reports whether accepting this frame required the receive
	// counter to resynchronise against the peer's actual counter byte.
	SyncError bool
}

// Build constructs one outbound frame: HDR | counterByte | payload | EOM | crc8.
// prefixNibble must fit in the high nibble (0-15); only PrefixRequest and
// PrefixHandshake are used by the session.
func Build(prefixNibble byte, counter byte, payload []byte) ([]byte, error) {
	if prefixNibble > 0x0F {
		return nil, fmt.Errorf("frame: prefix nibble %#x out of range", prefixNibble)
	}
	counterByte := (prefixNibble << 4) | (counter & 0x0F)

	body := make([]byte, 0, 1+len(payload))
	body = append(body, counterByte)
	body = append(body, payload...)
	crc := CRC8(body)

	out := make([]byte, 0, 2+len(body)+2+1)
	out = append(out, HDR[:]...)
	out = append(out, body...)
	out = append(out, EOM[:]...)
	out = append(out, crc)
	return out, nil
}

// RequestPayload builds the payload body for a parameter request.
func RequestPayload(idHigh, idLow, ph, pl byte) []byte {
	return []byte{0x0B, 0x01, idHigh, idLow, ph, pl}
}

// HandshakePayload is the fixed two-byte payload of the handshake-completion frame.
func HandshakePayload() []byte { return []byte{0x00, 0x00} }

func isValidTypeByte(b byte) bool { return b >= typeByteMin && b <= typeByteMax }
