package session

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/kstaniek/vacuum-monitor/internal/frame"
	"github.com/kstaniek/vacuum-monitor/internal/metrics"
)

// Handshake waits up to handshakeDeadline for the peer's first valid frame,
// ACKs it, establishes the receive counter from its counter byte, and
// transmits the handshake-completion frame. On any failure the caller
// (the supervisor) tears the session down; per the protocol a CRC mismatch
// on the candidate frame aborts the handshake outright rather than waiting
// for a second candidate.
func (s *Session) Handshake(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, handshakeDeadline)
	defer cancel()

	select {
	case res := <-s.handshakeCh:
		if res.err != nil {
			metrics.IncHandshakeFailure()
			return fmt.Errorf("%w: %v", ErrHandshakeCRC, res.err)
		}
		if err := s.sendAck(); err != nil {
			metrics.IncHandshakeFailure()
			return wrapTransport(err)
		}
		s.recv.Establish(res.counterByte)

		counter := s.send.Advance()
		if err := s.send_(frame.PrefixHandshake, counter, frame.HandshakePayload()); err != nil {
			metrics.IncHandshakeFailure()
			return wrapTransport(err)
		}

		atomic.StoreInt32(&s.mode, modeSteady)
		metrics.IncHandshakeSuccess()
		s.logger.Info("handshake_ok", "receive_counter", s.recv.Value())
		return nil

	case err := <-s.readErr:
		metrics.IncHandshakeFailure()
		return fmt.Errorf("%w: %v", ErrTransportWrite, err)

	case <-hctx.Done():
		metrics.IncHandshakeFailure()
		return ErrHandshakeTimeout
	}
}
