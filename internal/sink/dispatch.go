package sink

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/vacuum-monitor/internal/logging"
	"github.com/kstaniek/vacuum-monitor/internal/metrics"
)

// Dispatch funnels datagram lines to a single underlying Sink through a
// bounded channel, dropping and counting on overflow instead of blocking
// the poller. Adapted from the teacher's internal/hub.Hub broadcast loop,
// narrowed from "fan out to N registered clients, drop-or-kick per client"
// to "deliver to the one configured sink, drop and count".
type Dispatch struct {
	out    chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sink   Sink
	logger *slog.Logger
	closed atomic.Bool
}

// NewDispatch starts the delivery goroutine, queuing up to buf lines ahead
// of the underlying sink.
func NewDispatch(parent context.Context, sink Sink, buf int, logger *slog.Logger) *Dispatch {
	if logger == nil {
		logger = logging.L()
	}
	ctx, cancel := context.WithCancel(parent)
	d := &Dispatch{
		out:    make(chan string, buf),
		ctx:    ctx,
		cancel: cancel,
		sink:   sink,
		logger: logger,
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Dispatch) loop() {
	defer d.wg.Done()
	for {
		select {
		case line, ok := <-d.out:
			if !ok {
				return
			}
			if err := d.sink.Send(line); err != nil {
				metrics.IncDatagramDropped()
				metrics.IncError(metrics.ErrSink)
				d.logger.Warn("sink_send_failed", "error", err)
				continue
			}
			metrics.IncDatagramSent()
		case <-d.ctx.Done():
			return
		}
	}
}

// Send queues line for delivery, or drops and counts it if the queue is full.
func (d *Dispatch) Send(line string) error {
	if d.closed.Load() {
		return ErrClosed
	}
	select {
	case d.out <- line:
		return nil
	default:
		metrics.IncDatagramDropped()
		d.logger.Warn("sink_queue_full_drop")
		return nil
	}
}

// Close stops the delivery goroutine and waits for it to exit.
func (d *Dispatch) Close() {
	if d.closed.Swap(true) {
		return
	}
	d.cancel()
	d.wg.Wait()
}
