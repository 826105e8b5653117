package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/zde37/ringlookup/internal/api"
	"github.com/zde37/ringlookup/internal/cluster"
	"github.com/zde37/ringlookup/internal/config"
	"github.com/zde37/ringlookup/internal/input"
	"github.com/zde37/ringlookup/internal/transport"
	"github.com/zde37/ringlookup/pkg"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ringlookup: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("ringlookup", flag.ContinueOnError)
	configPath := flags.String("config", "", "YAML configuration file")
	inputDir := flags.String("input-dir", "", "Directory holding the per-participant input files")
	pattern := flags.String("pattern", "", "Input file name pattern, formatted with the rank (default in%d.txt)")
	participants := flags.Int("n", -1, "Number of participants (0 discovers consecutive input files)")
	bits := flags.Int("m", 0, "Identifier space size in bits")
	transportKind := flags.String("transport", "", "Transport between participants (local, grpc)")
	host := flags.String("host", "", "Host the gRPC participants bind to")
	basePort := flags.Int("base-port", -1, "First gRPC port; rank r uses base-port+r (0 picks free ports)")
	traceAddr := flags.String("trace-addr", "", "Serve a live lookup trace websocket on this address")
	logLevel := flags.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	logFormat := flags.String("log-format", "", "Log format (json, console)")
	logFile := flags.String("log-file", "", "Also write logs to this rotated file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	// Configuration: defaults, then file, then environment, then flags
	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return err
	}

	setString(&cfg.InputDir, *inputDir)
	setString(&cfg.InputPattern, *pattern)
	setString(&cfg.Transport, *transportKind)
	setString(&cfg.Host, *host)
	setString(&cfg.TraceAddr, *traceAddr)
	setString(&cfg.LogLevel, *logLevel)
	setString(&cfg.LogFormat, *logFormat)
	setString(&cfg.LogFile, *logFile)
	if *participants >= 0 {
		cfg.Participants = *participants
	}
	if *bits > 0 {
		cfg.M = *bits
	}
	if *basePort >= 0 {
		cfg.BasePort = *basePort
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	loggerConfig := pkg.DefaultConfig()
	loggerConfig.Level = cfg.LogLevel
	loggerConfig.Format = cfg.LogFormat
	if cfg.LogFile != "" {
		loggerConfig.File.Enable = true
		loggerConfig.File.Path = cfg.LogFile
	}

	logger, err := pkg.New(loggerConfig)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	if cfg.Participants == 0 {
		n, err := input.Discover(cfg.InputDir, cfg.InputPattern)
		if err != nil {
			return err
		}
		cfg.Participants = n

		// the port range depends on the discovered count
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	// Every input must be readable before anything runs
	inputs, err := input.LoadAll(cfg.InputDir, cfg.InputPattern, cfg.Participants)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load inputs")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cluster.Options{
		Bits: cfg.M,
		Transport: transport.Options{
			Kind:      cfg.Transport,
			Host:      cfg.Host,
			BasePort:  cfg.BasePort,
			AuthToken: cfg.AuthToken,
		},
	}

	if cfg.TraceAddr != "" {
		traceServer, err := api.NewServer(cfg.TraceAddr, logger)
		if err != nil {
			return err
		}
		if err := traceServer.Start(); err != nil {
			return fmt.Errorf("failed to start trace server: %w", err)
		}
		defer func() {
			if err := traceServer.Stop(); err != nil {
				logger.Error().Err(err).Msg("Error stopping trace server")
			}
		}()
		opts.Broadcaster = traceServer.Hub()
	}

	results, err := cluster.Run(ctx, opts, inputs, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Run aborted")
		return err
	}

	return cluster.WriteReports(stdout, results)
}

func setString(field *string, val string) {
	if val != "" {
		*field = val
	}
}
