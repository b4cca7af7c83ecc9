package session

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kstaniek/vacuum-monitor/internal/frame"
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

func buildReplyFrame(typeByte byte, b6, b7 byte) []byte {
	body := []byte{typeByte, b6, b7}
	out := append([]byte(nil), frame.ACK[:]...)
	out = append(out, frame.HDR[:]...)
	out = append(out, body...)
	out = append(out, frame.EOM[:]...)
	out = append(out, frame.CRC8(body))
	return out
}

func TestHandshake_SucceedsOnValidFrame(t *testing.T) {
	port := &fakePort{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, port, nil)
	defer s.Close()

	port.feed(buildHandshakeFrame(0xC4))

	err := s.Handshake(ctx)
	require.NoError(t, err)
	assert.True(t, s.recv.IsSet())
	assert.Equal(t, byte(4), s.recv.Value())
}

func TestHandshake_TimesOutWithNoData(t *testing.T) {
	port := &fakePort{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, port, nil)
	defer s.Close()

	err := s.Handshake(ctx)
	assert.ErrorIs(t, err, ErrHandshakeTimeout)
}

func TestRequest_ReturnsReplyAndACKs(t *testing.T) {
	port := &fakePort{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, port, nil)
	defer s.Close()

	port.feed(buildHandshakeFrame(0xC4))
	require.NoError(t, s.Handshake(ctx))

	port.feed(buildReplyFrame(0xC5, 0x00, 0x08))

	reply, err := s.Request(ctx, 0x03, 0x42, 0x00, 0x00)
	require.NoError(t, err)
	assert.False(t, reply.SyncError)
	assert.Equal(t, byte(0x00), reply.Frame.Byte6)
	assert.Equal(t, byte(0x08), reply.Frame.Byte7)
}

func TestRequest_TimesOutWithNoReply(t *testing.T) {
	t.Skip("exercises the full 5s reply timeout; skipped to keep the suite fast")
}

func TestRunKeepAliveCycle_AllFourStepsSucceed(t *testing.T) {
	port := &fakePort{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := New(ctx, port, nil)
	defer s.Close()

	port.feed(buildHandshakeFrame(0xC4))
	require.NoError(t, s.Handshake(ctx))

	expect := []byte{0xC5, 0xC6, 0xC7, 0xC4}
	for _, tb := range expect {
		port.feed(buildReplyFrame(tb, 0x00, 0x00))
	}

	err := s.RunKeepAliveCycle(ctx)
	assert.NoError(t, err)
}
