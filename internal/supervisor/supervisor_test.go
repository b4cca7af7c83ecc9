package supervisor

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kstaniek/vacuum-monitor/internal/frame"
	"github.com/kstaniek/vacuum-monitor/internal/session"
)

// fakePort is an in-memory transportserial.Port: reads come from a
// producer-fed byte queue, writes are captured for assertions.
type fakePort struct {
	mu      sync.Mutex
	pending bytes.Buffer
	writes  [][]byte
	closed  bool
}

func (p *fakePort) feed(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending.Write(b)
}

func (p *fakePort) Read(b []byte) (int, error) {
	for {
		p.mu.Lock()
		if p.pending.Len() > 0 {
			n, _ := p.pending.Read(b)
			p.mu.Unlock()
			return n, nil
		}
		closed := p.closed
		p.mu.Unlock()
		if closed {
			return 0, timeoutErr{}
		}
		time.Sleep(time.Millisecond)
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := append([]byte(nil), b...)
	p.writes = append(p.writes, cp)
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakePort) writeAt(i int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes[i]
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func buildHandshakeFrame(counterByte byte) []byte {
	body := []byte{counterByte, 0x00, 0x00}
	out := append([]byte(nil), frame.HDR[:]...)
	out = append(out, body...)
	out = append(out, frame.EOM[:]...)
	out = append(out, frame.CRC8(body))
	return out
}

// buildReplyFrame builds a reply carrying an arbitrary payload tail after
// byte6/byte7, mirroring the wire shape ACK HDR typeByte byte6 byte7 payload... EOM crc.
func buildReplyFrame(typeByte, b6, b7 byte, payload []byte) []byte {
	body := append([]byte{typeByte, b6, b7}, payload...)
	out := append([]byte(nil), frame.ACK[:]...)
	out = append(out, frame.HDR[:]...)
	out = append(out, body...)
	out = append(out, frame.EOM[:]...)
	out = append(out, frame.CRC8(body))
	return out
}

func TestSessionRequester_ReadsValueFromPayloadNotByte6Byte7(t *testing.T) {
	port := &fakePort{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := session.New(ctx, port, nil)
	defer s.Close()

	port.feed(buildHandshakeFrame(0xC4))
	require.NoError(t, s.Handshake(ctx))

	// byte6/byte7 deliberately differ from the payload so a defect that
	// reads them instead of Payload would produce a different value.
	port.feed(buildReplyFrame(0xC5, 0xFF, 0xFF, []byte{0x01, 0x2C}))

	req := sessionRequester{s}
	reply, err := req.Request(ctx, 0x03, 0x42, 0x00, 0x01)
	require.NoError(t, err)
	assert.False(t, reply.SyncError)
	assert.Equal(t, 0x012C, reply.Value)
}

func TestSessionRequester_SendsPayloadLowOne(t *testing.T) {
	port := &fakePort{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := session.New(ctx, port, nil)
	defer s.Close()

	port.feed(buildHandshakeFrame(0xC4))
	require.NoError(t, s.Handshake(ctx))

	port.feed(buildReplyFrame(0xC5, 0x00, 0x00, nil))

	req := sessionRequester{s}
	_, err := req.Request(ctx, 0x03, 0x42, 0x00, 0x01)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		port.mu.Lock()
		defer port.mu.Unlock()
		// writes[0] handshake ACK, writes[1] handshake-completion frame,
		// writes[2] the request, writes[3] the reply ACK
		return len(port.writes) >= 4
	}, time.Second, time.Millisecond)

	sent := port.writeAt(2)
	require.GreaterOrEqual(t, len(sent), 8)
	// sent: HDR(2) counterByte payload(0x0B,0x01,idHigh,idLow,ph,pl) EOM(2) crc
	payload := sent[3:9]
	assert.Equal(t, []byte{0x0B, 0x01, 0x03, 0x42, 0x00, 0x01}, payload)
}
