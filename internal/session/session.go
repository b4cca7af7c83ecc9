// Package session implements the link session state machine: handshake,
// the per-message request/ACK/reply/ACK exchange, and the keep-alive cycle.
// Structurally it mirrors the teacher's internal/server.Server (accept,
// handshake, spawn per-connection work, teardown on any fatal condition)
// generalised from "accept one TCP client" to "run one polling epoch
// against the already-open serial port", and its handshake deadline/errCh
// shape is lifted from internal/cnl.Handshake.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kstaniek/vacuum-monitor/internal/frame"
	"github.com/kstaniek/vacuum-monitor/internal/logging"
	"github.com/kstaniek/vacuum-monitor/internal/metrics"
	"github.com/kstaniek/vacuum-monitor/internal/transportserial"
	"github.com/kstaniek/vacuum-monitor/internal/txqueue"
)

// reader goroutine modes: handshaking until Handshake() establishes the
// receive counter, steady thereafter.
const (
	modeHandshake int32 = iota
	modeSteady
)

// handshakeResult is pushed by the reader goroutine to the session goroutine
// once a candidate handshake frame has been scanned.
type handshakeResult struct {
	counterByte byte
	err         error
}

// Sentinel errors, classifiable via errors.Is, mirroring the teacher's
// internal/server/errors.go convention.
var (
	ErrHandshakeTimeout = errors.New("session: handshake timeout")
	ErrHandshakeCRC     = errors.New("session: handshake crc mismatch")
	ErrReplyTimeout     = errors.New("session: reply timeout")
	ErrKeepAliveFailed  = errors.New("session: keep-alive cycle failed")
	ErrSyncLost         = errors.New("session: counter sync lost")
	ErrTransportWrite   = errors.New("session: transport write")
)

const (
	handshakeDeadline = 1 * time.Second
	replyTimeout      = 5 * time.Second
	keepAliveTimeout  = 200 * time.Millisecond
	// The handshake queues its ACK and completion frame back to back and the
	// first keep-alive request follows at once, so up to three writes can be
	// queued before the session waits on the peer; a full queue drops writes.
	writerQueueBuffer = 4
)

// keepAlivePayloads are reproduced bit-for-bit from the original Python
// implementation's run_keep_alive_cycle; their semantics are undocumented
// upstream and are not reinterpreted here.
var keepAlivePayloads = [][]byte{
	{0x0B, 0x00, 0x02, 0x75, 0x00, 0x00},
	{0x0B, 0x00, 0x02, 0x66, 0x00, 0x00},
	{0x2A, 0x0C},
	{0x0B, 0x01, 0x03, 0x40, 0x00, 0x01},
}

// Reply is what Request hands back to the poller: the validated frame
// plus whether this exchange raised a counter sync error.
type Reply struct {
	Frame     frame.DecodedFrame
	SyncError bool
}

// Session owns one open serial port for its lifetime and runs the
// handshake/keep-alive/request protocol against it. It is not safe for
// concurrent use: exactly one operation is in flight at a time by the
// protocol's own design (§5 of the spec).
type Session struct {
	port   transportserial.Port
	logger *slog.Logger

	buf     bytes.Buffer
	readBuf []byte
	recv    frame.ReceiveCounter
	send    *frame.SendCounter
	writer  *txqueue.Writer

	mode        int32 // atomic, one of modeHandshake/modeSteady
	inbox       chan frame.DecodedFrame
	handshakeCh chan handshakeResult
	readErr     chan error
}

// New wraps an already-open serial port in a fresh session. The caller owns
// closing the port; the session only reads and writes it.
func New(ctx context.Context, port transportserial.Port, logger *slog.Logger) *Session {
	if logger == nil {
		logger = logging.L()
	}
	s := &Session{
		port:        port,
		logger:      logger,
		readBuf:     make([]byte, 4096),
		send:        frame.NewSendCounter(),
		inbox:       make(chan frame.DecodedFrame, 4),
		handshakeCh: make(chan handshakeResult, 1),
		readErr:     make(chan error, 1),
	}
	s.writer = txqueue.New(ctx, writerQueueBuffer, s.writeNow, txqueue.Hooks{
		OnError: func(err error) {
			metrics.IncError(metrics.ErrTransportWrite)
			s.logger.Error("serial_write_error", "error", err)
		},
		OnAfter: metrics.IncFrameSent,
	})
	go s.readLoop(ctx)
	return s
}

// Close releases the session's writer goroutine. The underlying port is
// closed by the caller (the supervisor), not by the session; closing it is
// what unblocks the reader goroutine's pending Read.
func (s *Session) Close() { s.writer.Close() }

// readLoop owns the byte buffer exclusively: it is the only goroutine that
// reads the serial port or touches buf, and it decodes frames inline,
// handing finished results to the session goroutine over channels. This is
// the Go-idiomatic stand-in for the original's single-threaded event loop
// (§5 of the design): ownership by exclusive access instead of by a lock.
func (s *Session) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := s.port.Read(s.readBuf)
		if n > 0 {
			s.buf.Write(s.readBuf[:n])
		}
		if err != nil && !isTransientReadErr(err) {
			select {
			case s.readErr <- err:
			default:
			}
			return
		}

		if atomic.LoadInt32(&s.mode) == modeHandshake {
			counterByte, derr := frame.DecodeHandshake(&s.buf)
			switch {
			case derr == nil:
				select {
				case s.handshakeCh <- handshakeResult{counterByte: counterByte}:
				case <-ctx.Done():
					return
				}
			case errors.Is(derr, frame.ErrNeedMoreData):
				// wait for more bytes
			default:
				select {
				case s.handshakeCh <- handshakeResult{err: derr}:
				case <-ctx.Done():
					return
				}
			}
			continue
		}

		frame.DecodeStream(&s.buf, &s.recv, func(df frame.DecodedFrame) {
			select {
			case s.inbox <- df:
			case <-ctx.Done():
			}
		})
	}
}

func (s *Session) writeNow(payload []byte) error {
	_, err := s.port.Write(payload)
	return err
}

func (s *Session) send_(prefix, counter byte, payload []byte) error {
	out, err := frame.Build(prefix, counter, payload)
	if err != nil {
		return err
	}
	return s.writer.Send(out)
}

func (s *Session) sendAck() error {
	return s.writer.Send(append([]byte(nil), frame.ACK[:]...))
}

// isTransientReadErr reports whether err is an expected read-timeout
// signal rather than a fatal transport fault.
func isTransientReadErr(err error) bool {
	if err == nil {
		return true
	}
	type timeouter interface{ Timeout() bool }
	if te, ok := err.(timeouter); ok {
		return te.Timeout()
	}
	return false
}

func wrapTransport(err error) error {
	return fmt.Errorf("%w: %v", ErrTransportWrite, err)
}
