package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kstaniek/vacuum-monitor/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"frames_decoded", snap.FramesDecoded,
					"frames_sent", snap.FramesSent,
					"crc_errors", snap.CRCErrors,
					"sync_errors", snap.SyncErrors,
					"handshake_failures", snap.HandshakeFailures,
					"keepalive_failures", snap.KeepAliveFailures,
					"poll_cycles", snap.PollCycles,
					"poll_cycles_ok", snap.PollCyclesOK,
					"reconnects", snap.Reconnects,
					"datagrams_sent", snap.DatagramsSent,
					"datagrams_dropped", snap.DatagramsDropped,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
