// Package txqueue funnels outbound writes through a single goroutine so a
// caller never blocks behind a slow or wedged transport. Adapted from the
// CAN-gateway's internal/transport.AsyncTx: the payload type is generalised
// from a fixed CAN frame struct to a plain byte slice. This protocol's
// session is its only producer and queues at most a few writes before it
// waits on the peer (the serial link is strictly request/reply) — here the
// queue exists to centralise the error/metrics hook plumbing around each
// write, not to decouple concurrent producers the way the original CAN
// gateway needed to.
package txqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Send once the queue has been closed.
var ErrClosed = errors.New("txqueue: closed")

// Hooks customize Writer behavior around each send.
type Hooks struct {
	// OnError is called when send returns a non-nil error.
	OnError func(error)
	// OnAfter is called only after a successful send.
	OnAfter func()
	// OnDrop is called when the buffer is full; its returned error is
	// returned from Send. If nil, the overflow is silently dropped.
	OnDrop func() error
}

// Writer is a single-goroutine funnel for outbound byte-slice writes.
type Writer struct {
	mu     sync.Mutex
	ch     chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	send   func([]byte) error
	hooks  Hooks
	closed atomic.Bool
}

// New constructs a Writer with a buffered channel of size buf, draining
// through send and invoking hooks around each attempt.
func New(parent context.Context, buf int, send func([]byte) error, hooks Hooks) *Writer {
	ctx, cancel := context.WithCancel(parent)
	w := &Writer{
		ch:     make(chan []byte, buf),
		ctx:    ctx,
		cancel: cancel,
		send:   send,
		hooks:  hooks,
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for {
		select {
		case payload, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.send(payload); err != nil {
				if w.hooks.OnError != nil {
					w.hooks.OnError(err)
				}
				continue
			}
			if w.hooks.OnAfter != nil {
				w.hooks.OnAfter()
			}
		case <-w.ctx.Done():
			return
		}
	}
}

// Send queues a payload for asynchronous write, or invokes OnDrop if the
// buffer is full.
func (w *Writer) Send(payload []byte) error {
	if w.closed.Load() {
		return ErrClosed
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed.Load() {
		return ErrClosed
	}
	select {
	case w.ch <- payload:
		return nil
	default:
		if w.hooks.OnDrop != nil {
			return w.hooks.OnDrop()
		}
		return nil
	}
}

// Close stops the worker and waits for it to exit.
func (w *Writer) Close() {
	if w.closed.Swap(true) {
		return
	}
	w.cancel()
	w.mu.Lock()
	close(w.ch)
	w.mu.Unlock()
	w.wg.Wait()
}
