package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kstaniek/vacuum-monitor/internal/sink"
)

type appConfig struct {
	serialDev    string
	baud         int
	serialReadTO time.Duration
	logFormat    string
	logLevel     string
	metricsAddr  string

	backoffMin time.Duration
	backoffMax time.Duration

	sinkKind string
	udpAddr  string
	filePath string

	logMetricsEvery time.Duration

	mdnsEnable bool
	mdnsName   string
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	serialDev := flag.String("serial", "/dev/ttyUSB0", "Serial device path")
	baud := flag.Int("baud", 57600, "Serial baud rate")
	serialReadTO := flag.Duration("serial-read-timeout", 100*time.Millisecond, "Serial read timeout")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	backoffMin := flag.Duration("backoff-min", 5*time.Second, "Minimum reconnect backoff")
	backoffMax := flag.Duration("backoff-max", 10*time.Second, "Maximum reconnect backoff")
	sinkKind := flag.String("sink", "udp", "Datagram sink: udp|file")
	udpAddr := flag.String("udp-addr", sink.DefaultUDPAddr, "Collector UDP address (host:port)")
	filePath := flag.String("file-path", sink.DefaultFilePath, "Fallback file path when --sink=file")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters")
	mdnsEnable := flag.Bool("mdns-enable", false, "Enable mDNS advertisement of this collector process")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default vacuum-monitor-<hostname>)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })

	cfg.serialDev = *serialDev
	cfg.baud = *baud
	cfg.serialReadTO = *serialReadTO
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.backoffMin = *backoffMin
	cfg.backoffMax = *backoffMax
	cfg.sinkKind = *sinkKind
	cfg.udpAddr = *udpAddr
	cfg.filePath = *filePath
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

// validate performs basic semantic validation of the parsed configuration;
// it does not attempt to open the device or dial the sink.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	switch c.sinkKind {
	case "udp", "file":
	default:
		return fmt.Errorf("invalid sink: %s", c.sinkKind)
	}
	if c.baud <= 0 {
		return fmt.Errorf("baud must be > 0 (got %d)", c.baud)
	}
	if c.serialReadTO <= 0 {
		return fmt.Errorf("serial-read-timeout must be > 0")
	}
	if c.backoffMin <= 0 || c.backoffMax < c.backoffMin {
		return fmt.Errorf("backoff-min/backoff-max must satisfy 0 < min <= max")
	}
	return nil
}

// applyEnvOverrides maps VACMON_* environment variables onto config fields
// unless the corresponding flag was explicitly set (flag wins).
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }

	if _, ok := set["serial"]; !ok {
		if v, ok := get("VACMON_SERIAL"); ok && v != "" {
			c.serialDev = v
		}
	}
	if _, ok := set["baud"]; !ok {
		if v, ok := get("VACMON_BAUD"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.baud = n
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid VACMON_BAUD: %w", err)
			}
		}
	}
	if _, ok := set["serial-read-timeout"]; !ok {
		if v, ok := get("VACMON_SERIAL_READ_TIMEOUT"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.serialReadTO = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid VACMON_SERIAL_READ_TIMEOUT: %w", err)
			}
		}
	}
	if _, ok := set["log-format"]; !ok {
		if v, ok := get("VACMON_LOG_FORMAT"); ok && v != "" {
			c.logFormat = v
		}
	}
	if _, ok := set["log-level"]; !ok {
		if v, ok := get("VACMON_LOG_LEVEL"); ok && v != "" {
			c.logLevel = v
		}
	}
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("VACMON_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	if _, ok := set["backoff-min"]; !ok {
		if v, ok := get("VACMON_BACKOFF_MIN"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.backoffMin = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid VACMON_BACKOFF_MIN: %w", err)
			}
		}
	}
	if _, ok := set["backoff-max"]; !ok {
		if v, ok := get("VACMON_BACKOFF_MAX"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				c.backoffMax = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid VACMON_BACKOFF_MAX: %w", err)
			}
		}
	}
	if _, ok := set["sink"]; !ok {
		if v, ok := get("VACMON_SINK"); ok && v != "" {
			c.sinkKind = v
		}
	}
	if _, ok := set["udp-addr"]; !ok {
		if v, ok := get("VACMON_UDP_ADDR"); ok && v != "" {
			c.udpAddr = v
		}
	}
	if _, ok := set["file-path"]; !ok {
		if v, ok := get("VACMON_FILE_PATH"); ok && v != "" {
			c.filePath = v
		}
	}
	if _, ok := set["mdns-enable"]; !ok {
		if v, ok := get("VACMON_MDNS_ENABLE"); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				c.mdnsEnable = true
			case "0", "false", "no", "off":
				c.mdnsEnable = false
			}
		}
	}
	if _, ok := set["mdns-name"]; !ok {
		if v, ok := get("VACMON_MDNS_NAME"); ok && v != "" {
			c.mdnsName = v
		}
	}
	if _, ok := set["log-metrics-interval"]; !ok {
		if v, ok := get("VACMON_LOG_METRICS_INTERVAL"); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil && d >= 0 {
				c.logMetricsEvery = d
			} else if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("invalid VACMON_LOG_METRICS_INTERVAL: %w", err)
			}
		}
	}
	return firstErr
}
