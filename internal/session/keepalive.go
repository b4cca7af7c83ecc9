package session

import (
	"context"
	"fmt"

	"github.com/kstaniek/vacuum-monitor/internal/metrics"
)

// RunKeepAliveCycle runs the four fixed, back-to-back request/ACK exchanges
// that keep the peer from timing out its own side of the link between poll
// cycles. Any single step timing out or erroring fails the whole cycle.
func (s *Session) RunKeepAliveCycle(ctx context.Context) error {
	for i, payload := range keepAlivePayloads {
		reply, err := s.requestCustom(ctx, payload, func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(ctx, keepAliveTimeout)
		})
		if err != nil {
			metrics.IncKeepAliveFailure()
			return fmt.Errorf("%w: step %d: %v", ErrKeepAliveFailed, i, err)
		}
		if reply.SyncError {
			metrics.IncKeepAliveFailure()
			return fmt.Errorf("%w: step %d: %v", ErrKeepAliveFailed, i, ErrSyncLost)
		}
	}
	return nil
}
