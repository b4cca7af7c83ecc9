package supervisor

import (
	"errors"

	"github.com/kstaniek/vacuum-monitor/internal/metrics"
)

// Sentinel errors used for wrapping so callers can classify via errors.Is,
// mirroring the teacher's internal/server/errors.go convention.
var (
	ErrOpenPort = errors.New("supervisor: open serial port")
	ErrSession  = errors.New("supervisor: session")
)

// mapErrToMetric maps a wrapped sentinel error to a metrics error label.
func mapErrToMetric(err error) string {
	switch {
	case errors.Is(err, ErrOpenPort):
		return metrics.ErrTransportOpen
	case errors.Is(err, ErrSession):
		return metrics.ErrHandshake
	default:
		return "other"
	}
}
