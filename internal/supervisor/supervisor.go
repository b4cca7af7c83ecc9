// Package supervisor runs the outer reconnect loop: open the serial port,
// run one session to completion, close the port unconditionally, back off,
// and try again, forever. Structurally grounded on the teacher's
// Server.Serve/acceptOnce shape (listen -> accept -> handshake -> spawn ->
// teardown-on-fault loop), generalised from "accept TCP clients forever"
// to "run one polling session against a serial port forever, reopening on
// every fault".
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/kstaniek/vacuum-monitor/internal/logging"
	"github.com/kstaniek/vacuum-monitor/internal/metrics"
	"github.com/kstaniek/vacuum-monitor/internal/poller"
	"github.com/kstaniek/vacuum-monitor/internal/session"
	"github.com/kstaniek/vacuum-monitor/internal/sink"
	"github.com/kstaniek/vacuum-monitor/internal/transportserial"
)

const (
	defaultMinBackoff  = 5 * time.Second
	defaultMaxBackoff  = 10 * time.Second
	defaultBaud        = 57600
	defaultReadTimeout = 100 * time.Millisecond
	keepAliveSpacing   = 1 * time.Second
)

// Supervisor owns the reconnect loop for one serial port.
type Supervisor struct {
	mu   sync.RWMutex
	port string
	baud int

	readTimeout time.Duration
	minBackoff  time.Duration
	maxBackoff  time.Duration

	sink   sink.Sink
	logger *slog.Logger

	readyOnce sync.Once
	readyCh   chan struct{}
	lastErrMu sync.Mutex
	lastErr   error
	errCh     chan error

	openPort func(name string, baud int, readTimeout time.Duration) (transportserial.Port, error)
}

// Option configures a Supervisor, the same functional-options pattern as
// the teacher's ServerOption.
type Option func(*Supervisor)

// New builds a Supervisor for the given serial port name; apply Options to
// override defaults.
func New(port string, opts ...Option) *Supervisor {
	s := &Supervisor{
		port:        port,
		baud:        defaultBaud,
		readTimeout: defaultReadTimeout,
		minBackoff:  defaultMinBackoff,
		maxBackoff:  defaultMaxBackoff,
		logger:      logging.L(),
		readyCh:     make(chan struct{}),
		errCh:       make(chan error, 1),
		openPort:    transportserial.Open,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithBaud(baud int) Option {
	return func(s *Supervisor) {
		if baud > 0 {
			s.baud = baud
		}
	}
}

func WithReadTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.readTimeout = d
		}
	}
}

func WithBackoffRange(min, max time.Duration) Option {
	return func(s *Supervisor) {
		if min > 0 && max >= min {
			s.minBackoff = min
			s.maxBackoff = max
		}
	}
}

func WithSink(sk sink.Sink) Option {
	return func(s *Supervisor) { s.sink = sk }
}

// Ready returns a channel closed once the supervisor has opened the serial
// port for the first time, mirrored from the teacher's Server.Ready.
func (s *Supervisor) Ready() <-chan struct{} { return s.readyCh }

// Errors surfaces the most recent recoverable faults for an observing
// process, mirrored from the teacher's Server.Errors.
func (s *Supervisor) Errors() <-chan error { return s.errCh }

func (s *Supervisor) setError(err error) {
	if err == nil {
		return
	}
	s.lastErrMu.Lock()
	s.lastErr = err
	s.lastErrMu.Unlock()
	select {
	case s.errCh <- err:
	default:
	}
}

// LastError returns the most recently recorded fault, if any.
func (s *Supervisor) LastError() error {
	s.lastErrMu.Lock()
	defer s.lastErrMu.Unlock()
	return s.lastErr
}

func (s *Supervisor) newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.minBackoff
	b.MaxInterval = s.maxBackoff
	b.MaxElapsedTime = 0 // never gives up; the supervisor runs forever
	return b
}

// clamp folds a raw backoff duration into [minBackoff, maxBackoff]; the
// library's own jitter can otherwise undershoot InitialInterval slightly.
func (s *Supervisor) clamp(d time.Duration) time.Duration {
	if d < s.minBackoff {
		return s.minBackoff
	}
	if d > s.maxBackoff {
		return s.maxBackoff
	}
	return d
}

// Run loops forever until ctx is cancelled: open the port, run one session,
// close the port, back off, repeat. It never returns a fatal error to the
// caller — every fault is logged, recorded via setError, and retried.
func (s *Supervisor) Run(ctx context.Context) {
	b := s.newBackoff()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.runOnce(ctx); err != nil {
			wrap := fmt.Errorf("%w: %w", ErrSession, err)
			metrics.IncError(mapErrToMetric(wrap))
			s.setError(wrap)
			s.logger.Warn("session_ended", "error", wrap)
		} else {
			b.Reset()
		}

		metrics.IncReconnect()
		wait := s.clamp(b.NextBackOff())
		s.logger.Info("reconnect_backoff", "wait", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// runOnce opens the port, runs exactly one session to completion, and
// guarantees the port is closed on every exit path (including a panic
// recovery boundary would be overkill here since nothing in the session
// panics by design; the defer alone satisfies the close-on-every-exit
// requirement).
func (s *Supervisor) runOnce(ctx context.Context) error {
	port, err := s.openPort(s.port, s.baud, s.readTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenPort, err)
	}
	defer port.Close()

	s.readyOnce.Do(func() { close(s.readyCh) })

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := session.New(sessCtx, port, s.logger)
	defer sess.Close()

	return s.runSession(sessCtx, sess)
}

// runSession drives one session from handshake through alternating
// keep-alive/polling epochs until a fault ends it, mirroring the
// CLOSED->OPENING->HANDSHAKING->KEEPALIVE<->POLLING->CLOSED state machine
// described for internal/session.
func (s *Supervisor) runSession(ctx context.Context, sess *session.Session) error {
	if err := sess.Handshake(ctx); err != nil {
		return err
	}

	req := sessionRequester{sess}
	pl := poller.New(req, s.sink, s.logger)

	lastPoll := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if time.Since(lastPoll) < keepAliveSpacing {
			if err := sess.RunKeepAliveCycle(ctx); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(keepAliveSpacing):
			}
			continue
		}

		lastPoll = time.Now()
		if err := pl.Poll(ctx); err != nil {
			return err
		}
	}
}

// sessionRequester adapts *session.Session to poller.Requester, translating
// a session.Reply's payload bytes into the plain integer value the poller
// scales and formats. byte6/byte7 are frame header fields, not the
// measurement; the value is the big-endian integer carried in the frame's
// payload, following the payload_int = int.from_bytes(payload, 'big') of
// the original parameter request handler.
type sessionRequester struct{ s *session.Session }

func (r sessionRequester) Request(ctx context.Context, idHigh, idLow, ph, pl byte) (poller.Reply, error) {
	reply, err := r.s.Request(ctx, idHigh, idLow, ph, pl)
	if err != nil {
		return poller.Reply{}, err
	}
	value := 0
	for _, b := range reply.Frame.Payload {
		value = value<<8 | int(b)
	}
	return poller.Reply{Value: value, SyncError: reply.SyncError}, nil
}
