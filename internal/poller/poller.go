package poller

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kstaniek/vacuum-monitor/internal/logging"
	"github.com/kstaniek/vacuum-monitor/internal/metrics"
)

// Requester is the subset of *session.Session the poller depends on,
// narrowed to a plain interface so the poller can be tested without a real
// serial session.
type Requester interface {
	Request(ctx context.Context, idHigh, idLow, ph, pl byte) (reply Reply, err error)
}

// Reply is the poller's own view of one exchange: the decoded integer value
// and session.Reply's sync-error flag. Keeping it here means this package
// does not import internal/session; the supervisor adapts one to the other.
type Reply struct {
	Value     int
	SyncError bool
}

// Sink is the one-method datagram output the poller hands its formatted
// line to on a successful poll cycle.
type Sink interface {
	Send(line string) error
}

// AbortReason values feed metrics.IncPollCycle's label.
const (
	AbortShortReply   = "short_reply"
	AbortSyncError    = "sync_error"
	AbortIntegrity    = "integrity_check"
	AbortRequestError = "request_error"
)

// Poller walks the fixed channel catalogue once per cycle and publishes the
// resulting datagram to sink.
type Poller struct {
	req    Requester
	sink   Sink
	logger *slog.Logger
}

// New builds a Poller against req (issuing one Request per catalogue entry)
// and sink (receiving the formatted datagram line on success).
func New(req Requester, sink Sink, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = logging.L()
	}
	return &Poller{req: req, sink: sink, logger: logger}
}

// Poll runs one full traversal of the catalogue. It returns an error only
// when the cycle must be aborted (the supervisor then restarts the
// handshake); a sink delivery failure is not one of those errors (§7).
func (p *Poller) Poll(ctx context.Context) error {
	values := make([]string, 0, len(Catalogue))

	for _, ch := range Catalogue {
		// Every request is built with payload_low = 0x01, mirroring
		// send_msg in the original parameter request handler.
		reply, err := p.req.Request(ctx, ch.IDHigh, ch.IDLow, 0x00, 0x01)
		if err != nil {
			metrics.IncPollCycle(false, AbortRequestError)
			return fmt.Errorf("poller: request %s: %w", ch.Name, err)
		}
		if reply.SyncError {
			metrics.IncPollCycle(false, AbortSyncError)
			return fmt.Errorf("poller: channel %s raised a sync error", ch.Name)
		}
		values = append(values, formatValue(ch, reply.Value))
	}

	if values[0] != "8" {
		metrics.IncPollCycle(false, AbortIntegrity)
		return fmt.Errorf("poller: integrity check failed, power_sw_version=%q", values[0])
	}

	line := "VAC;PUMP1;" + strings.Join(values[1:], ";")
	metrics.IncPollCycle(true, "")

	if err := p.sink.Send(line); err != nil {
		metrics.IncDatagramDropped()
		metrics.IncError(metrics.ErrSink)
		p.logger.Warn("sink_send_failed", "error", err)
		return nil
	}
	metrics.IncDatagramSent()
	return nil
}

// formatValue applies the scaling and formatting rules for one channel.
func formatValue(ch ChannelSpec, raw int) string {
	scaled := float64(raw) * ch.Multiplier

	if ch.ChannelID == reservoirVacuumChannelID {
		final := -1000 + scaled
		return strconv.Itoa(int(final))
	}
	if ch.Multiplier < 1 {
		return strconv.FormatFloat(scaled, 'f', 2, 64)
	}
	return strconv.Itoa(int(scaled))
}
