package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/vacuum-monitor/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	FramesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frames_decoded_total",
		Help: "Total validated frames decoded from the serial link.",
	})
	FramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frames_sent_total",
		Help: "Total frames written to the serial link.",
	})
	CRCErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crc_errors_total",
		Help: "Total frames rejected for a CRC-8/MAXIM mismatch.",
	})
	SyncErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_errors_total",
		Help: "Total inbound frames whose counter required a resynchronisation.",
	})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "malformed_frames_total",
		Help: "Total rejected malformed frames (bad type byte, missing delimiter).",
	})
	HandshakeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handshake_failures_total",
		Help: "Total failed handshake attempts (timeout or CRC mismatch).",
	})
	HandshakeSuccesses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handshake_successes_total",
		Help: "Total successful handshakes.",
	})
	KeepAliveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keepalive_failures_total",
		Help: "Total failed keep-alive cycles.",
	})
	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poll_cycles_total",
		Help: "Total completed poll cycles (successful or aborted).",
	})
	PollCyclesOK = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poll_cycles_success_total",
		Help: "Total poll cycles that produced an emitted datagram.",
	})
	PollAborts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_aborts_total",
		Help: "Total poll cycles aborted, by reason.",
	}, []string{"reason"})
	SessionReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_reconnects_total",
		Help: "Total times the supervisor reopened the serial port after a session teardown.",
	})
	DatagramsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datagrams_sent_total",
		Help: "Total datagram lines handed to the active sink.",
	})
	DatagramsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datagrams_dropped_total",
		Help: "Total datagram lines dropped (sink error or full dispatch queue).",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrTransportOpen  = "transport_open"
	ErrTransportRead  = "transport_read"
	ErrTransportWrite = "transport_write"
	ErrHandshake      = "handshake"
	ErrSink           = "sink"
)

// StartHTTP serves Prometheus metrics at /metrics and readiness at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for easy logging (avoid Prometheus scraping in-process)
var (
	localFramesDecoded   uint64
	localFramesSent      uint64
	localCRCErrors       uint64
	localSyncErrors      uint64
	localMalformed       uint64
	localHandshakeFail   uint64
	localHandshakeOK     uint64
	localKeepAliveFail   uint64
	localPollCycles      uint64
	localPollCyclesOK    uint64
	localReconnects      uint64
	localDatagramsSent   uint64
	localDatagramsDrop   uint64
	localErrors          uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	FramesDecoded     uint64
	FramesSent        uint64
	CRCErrors         uint64
	SyncErrors        uint64
	Malformed         uint64
	HandshakeFailures uint64
	HandshakeSuccess  uint64
	KeepAliveFailures uint64
	PollCycles        uint64
	PollCyclesOK      uint64
	Reconnects        uint64
	DatagramsSent     uint64
	DatagramsDropped  uint64
	Errors            uint64
}

func Snap() Snapshot {
	return Snapshot{
		FramesDecoded:     atomic.LoadUint64(&localFramesDecoded),
		FramesSent:        atomic.LoadUint64(&localFramesSent),
		CRCErrors:         atomic.LoadUint64(&localCRCErrors),
		SyncErrors:        atomic.LoadUint64(&localSyncErrors),
		Malformed:         atomic.LoadUint64(&localMalformed),
		HandshakeFailures: atomic.LoadUint64(&localHandshakeFail),
		HandshakeSuccess:  atomic.LoadUint64(&localHandshakeOK),
		KeepAliveFailures: atomic.LoadUint64(&localKeepAliveFail),
		PollCycles:        atomic.LoadUint64(&localPollCycles),
		PollCyclesOK:      atomic.LoadUint64(&localPollCyclesOK),
		Reconnects:        atomic.LoadUint64(&localReconnects),
		DatagramsSent:     atomic.LoadUint64(&localDatagramsSent),
		DatagramsDropped:  atomic.LoadUint64(&localDatagramsDrop),
		Errors:            atomic.LoadUint64(&localErrors),
	}
}

// Wrapper helpers to keep call sites simple.
func IncFrameDecoded() {
	FramesDecoded.Inc()
	atomic.AddUint64(&localFramesDecoded, 1)
}

func IncFrameSent() {
	FramesSent.Inc()
	atomic.AddUint64(&localFramesSent, 1)
}

func IncCRCError() {
	CRCErrors.Inc()
	atomic.AddUint64(&localCRCErrors, 1)
}

func IncSyncError() {
	SyncErrors.Inc()
	atomic.AddUint64(&localSyncErrors, 1)
}

func IncMalformed() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

func IncHandshakeFailure() {
	HandshakeFailures.Inc()
	atomic.AddUint64(&localHandshakeFail, 1)
}

func IncHandshakeSuccess() {
	HandshakeSuccesses.Inc()
	atomic.AddUint64(&localHandshakeOK, 1)
}

func IncKeepAliveFailure() {
	KeepAliveFailures.Inc()
	atomic.AddUint64(&localKeepAliveFail, 1)
}

// IncPollCycle records one completed poll cycle, successful or not.
func IncPollCycle(ok bool, abortReason string) {
	PollCycles.Inc()
	atomic.AddUint64(&localPollCycles, 1)
	if ok {
		PollCyclesOK.Inc()
		atomic.AddUint64(&localPollCyclesOK, 1)
		return
	}
	PollAborts.WithLabelValues(abortReason).Inc()
}

func IncReconnect() {
	SessionReconnects.Inc()
	atomic.AddUint64(&localReconnects, 1)
}

func IncDatagramSent() {
	DatagramsSent.Inc()
	atomic.AddUint64(&localDatagramsSent, 1)
}

func IncDatagramDropped() {
	DatagramsDropped.Inc()
	atomic.AddUint64(&localDatagramsDrop, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrTransportOpen, ErrTransportRead, ErrTransportWrite, ErrHandshake, ErrSink} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil { // if not set yet, treat as ready so metrics endpoint doesn't flap
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
