package session

import (
	"context"

	"github.com/kstaniek/vacuum-monitor/internal/frame"
)

// Request runs one complete parameter-request exchange: transmit a
// parameter-request frame, await its reply (bounded by replyTimeout),
// then immediately ACK. Calls must not overlap; the session is strictly
// single-request-in-flight by protocol design (§5).
func (s *Session) Request(ctx context.Context, idHigh, idLow, ph, pl byte) (Reply, error) {
	counter := s.send.Advance()
	payload := frame.RequestPayload(idHigh, idLow, ph, pl)
	if err := s.send_(frame.PrefixRequest, counter, payload); err != nil {
		return Reply{}, wrapTransport(err)
	}

	rctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	select {
	case df := <-s.inbox:
		if err := s.sendAck(); err != nil {
			return Reply{}, wrapTransport(err)
		}
		return Reply{Frame: df, SyncError: df.SyncError}, nil

	case err := <-s.readErr:
		return Reply{}, wrapTransport(err)

	case <-rctx.Done():
		return Reply{}, ErrReplyTimeout
	}
}

// requestCustom runs the same exchange shape as Request but with a
// caller-supplied raw payload and timeout, for the keep-alive cycle's
// fixed, non-parameter-shaped payloads.
func (s *Session) requestCustom(ctx context.Context, payload []byte, timeout func() (context.Context, context.CancelFunc)) (Reply, error) {
	counter := s.send.Advance()
	if err := s.send_(frame.PrefixRequest, counter, payload); err != nil {
		return Reply{}, wrapTransport(err)
	}

	rctx, cancel := timeout()
	defer cancel()

	select {
	case df := <-s.inbox:
		if err := s.sendAck(); err != nil {
			return Reply{}, wrapTransport(err)
		}
		return Reply{Frame: df, SyncError: df.SyncError}, nil

	case err := <-s.readErr:
		return Reply{}, wrapTransport(err)

	case <-rctx.Done():
		return Reply{}, ErrReplyTimeout
	}
}
