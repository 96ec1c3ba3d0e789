package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/mixy/configurator/config"
)

// Setup builds the process logger. Diagnostics always go to stderr because
// stdout carries the machine-readable results (price breakdowns,
// configuration codes) that callers pipe onward. The returned cleanup must
// run before exit: invocations are short-lived and would otherwise drop
// buffered Loki batches.
func Setup(cfg config.LoggingConfig) (zerolog.Logger, func(), error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	var sink io.Writer = os.Stderr
	if strings.EqualFold(cfg.Format, "text") {
		sink = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	writers := []io.Writer{sink}
	cleanup := func() {}
	if cfg.Loki.Enabled {
		shipper, stop, err := newLokiShipper(cfg.Loki)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, shipper)
		cleanup = stop
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().Timestamp().Str("app", "configurator").Logger().
		Level(level)
	return logger, cleanup, nil
}

// lokiShipper forwards log lines to Loki under a fixed label set.
type lokiShipper struct {
	client *loki.Client
	labels model.LabelSet
}

func newLokiShipper(cfg config.LokiConfig) (io.Writer, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("loki url is required")
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create loki client: %w", err)
	}

	labels := make(model.LabelSet, len(cfg.Labels)+1)
	for k, v := range cfg.Labels {
		labels[model.LabelName(k)] = model.LabelValue(v)
	}
	if _, ok := labels["app"]; !ok {
		labels["app"] = "configurator"
	}

	// Stop drains pending entries before returning, which is what makes the
	// cleanup safe for a one-shot CLI process.
	stop := func() {
		client.Stop()
	}
	return &lokiShipper{client: client, labels: labels}, stop, nil
}

func (l *lokiShipper) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	if line == "" {
		return len(p), nil
	}
	err := l.client.Handle(l.labels, time.Now(), line)
	return len(p), err
}
