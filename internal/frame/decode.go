package frame

import (
	"bytes"
	"errors"

	"github.com/kstaniek/vacuum-monitor/internal/metrics"
)

// ErrNeedMoreData signals the buffer does not yet hold a complete frame;
// callers should wait for more bytes and retry.
var ErrNeedMoreData = errors.New("frame: need more data")

// ErrHandshakeCRC is returned by DecodeHandshake when the first candidate
// frame's CRC does not match; per the protocol this aborts the handshake
// rather than retrying against the next candidate.
var ErrHandshakeCRC = errors.New("frame: handshake crc mismatch")

// DecodeHandshake scans buf for the first complete frame (HDR ... EOM crc)
// and validates its CRC. On success it returns the frame's counter byte and
// discards the consumed bytes. On CRC mismatch it discards through the CRC
// byte and returns ErrHandshakeCRC. If the buffer does not yet contain a
// full candidate it returns ErrNeedMoreData and leaves buf untouched.
func DecodeHandshake(buf *bytes.Buffer) (counterByte byte, err error) {
	data := buf.Bytes()

	hdrIdx := bytes.Index(data, HDR[:])
	if hdrIdx < 0 {
		return 0, ErrNeedMoreData
	}
	bodyStart := hdrIdx + len(HDR)
	eomIdx := bytes.Index(data[bodyStart:], EOM[:])
	if eomIdx < 0 {
		return 0, ErrNeedMoreData
	}
	eomIdx += bodyStart
	crcIdx := eomIdx + len(EOM)
	if crcIdx >= len(data) {
		return 0, ErrNeedMoreData
	}

	body := data[bodyStart:eomIdx]
	want := data[crcIdx]
	got := CRC8(body)

	consumed := crcIdx + 1
	if got != want {
		buf.Next(consumed)
		metrics.IncCRCError()
		return 0, ErrHandshakeCRC
	}
	buf.Next(consumed)
	if len(body) == 0 {
		return 0, ErrHandshakeCRC
	}
	return body[0], nil
}

// DecodeStream drains complete, CRC-valid frames from buf in steady-state
// mode, invoking onFrame for each. It never blocks: when the buffer does not
// contain a full frame it returns having consumed only garbage bytes
// needed to resynchronise. rc must already be established (post-handshake).
func DecodeStream(buf *bytes.Buffer, rc *ReceiveCounter, onFrame func(DecodedFrame)) {
	for {
		data := buf.Bytes()

		ackIdx := bytes.Index(data, ACK[:])
		if ackIdx < 0 {
			return
		}
		hdrStart := ackIdx + len(ACK)
		if hdrStart+len(HDR) > len(data) {
			return
		}
		if !bytes.Equal(data[hdrStart:hdrStart+len(HDR)], HDR[:]) {
			buf.Next(ackIdx + 1)
			continue
		}
		typeIdx := hdrStart + len(HDR)
		if typeIdx >= len(data) {
			return
		}
		typeByte := data[typeIdx]
		if !isValidTypeByte(typeByte) {
			buf.Next(ackIdx + 1)
			continue
		}

		eomIdx := bytes.Index(data[typeIdx:], EOM[:])
		if eomIdx < 0 {
			return
		}
		eomIdx += typeIdx
		crcIdx := eomIdx + len(EOM)
		if crcIdx >= len(data) {
			return
		}

		body := data[typeIdx:eomIdx] // typeByte || rest-of-payload-bytes
		want := data[crcIdx]
		got := CRC8(body)
		consumed := crcIdx + 1

		if got != want {
			metrics.IncCRCError()
			buf.Next(consumed)
			continue
		}

		newRecv, syncErr := rc.Advance(typeByte)
		if syncErr {
			metrics.IncSyncError()
		}

		var b6, b7 byte
		if len(body) >= 3 {
			b6, b7 = body[1], body[2]
		}
		var payload []byte
		if len(body) > 3 {
			payload = append([]byte(nil), body[3:]...)
		}
		full := append([]byte(nil), data[ackIdx:consumed]...)

		onFrame(DecodedFrame{
			TypeByte:       typeByte,
			Byte6:          b6,
			Byte7:          b7,
			Payload:        payload,
			FullFrame:      full,
			ReceiveCounter: newRecv,
			IsValidType:    true,
			SyncError:      syncErr,
		})
		metrics.IncFrameDecoded()
		buf.Next(consumed)
	}
}
