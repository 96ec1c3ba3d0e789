package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/mixy/configurator/codec"
	"github.com/mixy/configurator/config"
	"github.com/mixy/configurator/engine"
	"github.com/mixy/configurator/logging"
	"github.com/mixy/configurator/pricing"
	"github.com/mixy/configurator/telemetry"
)

type setFlags []string

func (s *setFlags) String() string { return strings.Join(*s, ",") }

func (s *setFlags) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	dataPath := flag.String("data", "data", "Path to catalog/capability/rule documents (file or directory)")
	modelID := flag.String("model", "", "Base model to configure")
	codeArg := flag.String("code", "", "Decode a configuration code instead of starting from a model")
	configCheck := flag.Bool("config-check", false, "Validate the documents and exit")
	var sets setFlags
	flag.Var(&sets, "set", "Assign option=value (repeatable)")
	flag.Parse()

	cfg, err := config.Load(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if *configCheck {
		fmt.Println("configuration ok")
		return
	}

	logger, cleanup, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup logger")
	}
	defer cleanup()
	log.Logger = logger

	collector := telemetry.Collector(telemetry.Noop())
	if cfg.Telemetry.Enabled {
		prom, err := telemetry.NewPrometheusCollector(prometheus.DefaultRegisterer)
		if err != nil {
			logger.Warn().Err(err).Msg("telemetry disabled")
		} else {
			collector = prom
		}
	}

	eng, err := engine.New(cfg, engine.WithLogger(logger), engine.WithCollector(collector))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build engine")
	}
	codes := codec.New(cfg)
	prices := pricing.NewResolver(cfg, pricing.WithLogger(logger))

	var current engine.Configuration
	switch {
	case *codeArg != "":
		parsed, err := codes.Parse(*codeArg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to parse code")
		}
		current = eng.Resolve(parsed)
	case *modelID != "":
		current = eng.CreateInitialConfig(*modelID)
		if current.ModelID == "" {
			logger.Fatal().Str("model", *modelID).Msg("unknown model")
		}
	default:
		logger.Fatal().Msg("either -model or -code is required")
	}

	for _, assignment := range sets {
		id, value, err := parseAssignment(assignment)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid -set flag")
		}
		next := eng.ToggleOption(current, id, value)
		if next.Equal(current) {
			logger.Warn().Str("option", id).Msg("assignment had no effect")
		}
		current = next
	}

	result := eng.Validate(current)
	for _, msg := range result.Errors {
		fmt.Printf("violation: %s\n", msg)
	}

	breakdown := prices.Breakdown(current)
	fmt.Printf("model: %s\n", current.ModelID)
	fmt.Printf("base:  %s\n", breakdown.Base)
	for _, line := range breakdown.Lines {
		fmt.Printf("  %-32s %s\n", line.Label, line.Price)
	}
	fmt.Printf("total: %s\n", breakdown.Total)
	fmt.Printf("code:  %s\n", codes.Encode(current))

	if !result.Valid {
		os.Exit(1)
	}
}

func parseAssignment(raw string) (string, config.Value, error) {
	idx := strings.IndexByte(raw, '=')
	if idx <= 0 {
		return "", config.Value{}, fmt.Errorf("expected option=value, got %q", raw)
	}
	id := raw[:idx]
	literal := raw[idx+1:]
	if b, err := strconv.ParseBool(literal); err == nil {
		return id, config.BoolValue(b), nil
	}
	if n, err := strconv.ParseFloat(literal, 64); err == nil {
		return id, config.NumberValue(n), nil
	}
	return id, config.StringValue(literal), nil
}
