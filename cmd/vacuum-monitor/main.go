package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/kstaniek/vacuum-monitor/internal/metrics"
	"github.com/kstaniek/vacuum-monitor/internal/supervisor"
)

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("vacuum-monitor %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}

	l := setupLogger(cfg.logFormat, cfg.logLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	sk, sinkCleanup, err := initSink(cfg, l)
	if err != nil {
		l.Error("sink_init_error", "error", err)
		return
	}
	defer func() { _ = sinkCleanup() }()

	sup := supervisor.New(cfg.serialDev,
		supervisor.WithLogger(l),
		supervisor.WithBaud(cfg.baud),
		supervisor.WithReadTimeout(cfg.serialReadTO),
		supervisor.WithBackoffRange(cfg.backoffMin, cfg.backoffMax),
		supervisor.WithSink(sk),
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		sup.Run(ctx)
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-sup.Errors():
				if !ok {
					return
				}
				l.Warn("supervisor_error", "error", err)
			}
		}
	}()

	if cfg.mdnsEnable {
		go func() {
			select {
			case <-sup.Ready():
			case <-ctx.Done():
				return
			}
			port := 0
			cleanupMDNS, err := startMDNS(ctx, cfg, port)
			if err != nil {
				l.Warn("mdns_start_failed", "error", err)
				return
			}
			l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName)
			go func() { <-ctx.Done(); cleanupMDNS() }()
		}()
	}

	metrics.SetReadinessFunc(func() bool {
		select {
		case <-sup.Ready():
		default:
			return false
		}
		return ctx.Err() == nil
	})
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	wg.Wait()
}
