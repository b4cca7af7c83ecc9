package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	lines []string
	err   error
}

func (r *recordingSink) Send(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.lines = append(r.lines, line)
	return nil
}

func (r *recordingSink) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func TestDispatch_DeliversInOrder(t *testing.T) {
	rs := &recordingSink{}
	d := NewDispatch(context.Background(), rs, 8, nil)
	defer d.Close()

	want := []string{"line-0", "line-1", "line-2", "line-3", "line-4"}
	for _, line := range want {
		require.NoError(t, d.Send(line))
	}

	require.Eventually(t, func() bool { return len(rs.snapshot()) == 5 }, time.Second, time.Millisecond)
	assert.Equal(t, want, rs.snapshot())
}

func TestDispatch_DropsOnFullQueueWithoutBlocking(t *testing.T) {
	rs := &recordingSink{err: errors.New("stall")}
	d := NewDispatch(context.Background(), rs, 1, nil)
	defer d.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			_ = d.Send("line")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked instead of dropping")
	}
}

func TestDispatch_SendAfterCloseReturnsErrClosed(t *testing.T) {
	rs := &recordingSink{}
	d := NewDispatch(context.Background(), rs, 1, nil)
	d.Close()

	assert.ErrorIs(t, d.Send("line"), ErrClosed)
}
