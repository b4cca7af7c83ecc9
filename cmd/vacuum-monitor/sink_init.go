package main

import (
	"fmt"
	"log/slog"

	"github.com/kstaniek/vacuum-monitor/internal/sink"
)

// initSink builds the configured sink.Sink and returns a matching cleanup
// function that releases its underlying resource.
func initSink(cfg *appConfig, l *slog.Logger) (sink.Sink, func() error, error) {
	switch cfg.sinkKind {
	case "udp":
		u, err := sink.DialUDP(cfg.udpAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("dial udp sink: %w", err)
		}
		l.Info("sink_udp", "addr", cfg.udpAddr)
		return u, u.Close, nil
	case "file":
		f, err := sink.OpenFile(cfg.filePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open file sink: %w", err)
		}
		l.Info("sink_file", "path", cfg.filePath)
		return f, f.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink kind %q", cfg.sinkKind)
	}
}
