// Command swspectrometer runs the multi-threaded software spectrometer of
// spec.md: <inifile> <infile1> [<infile2>], driving internal/config through
// internal/source, internal/worker and internal/dispatcher into
// internal/sink, with the optional ambient components of SPEC_FULL.md
// (metrics, status, monitor) enabled whenever their INI address is set.
// Grounded on the teacher's main.go: stdlib flag for CLI parsing, a single
// log.Logger fanned out to a run-log file and stderr, and a
// signal.Notify/os.Interrupt goroutine for graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwsl/swspectrometer/internal/config"
	"github.com/cwsl/swspectrometer/internal/dispatcher"
	"github.com/cwsl/swspectrometer/internal/metrics"
	"github.com/cwsl/swspectrometer/internal/monitor"
	"github.com/cwsl/swspectrometer/internal/sink"
	"github.com/cwsl/swspectrometer/internal/source"
	"github.com/cwsl/swspectrometer/internal/status"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <inifile> <infile1> [<infile2>]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 || len(args) > 3 {
		flag.Usage()
		os.Exit(2)
	}
	iniPath := args[0]
	inputFiles := args[1:]

	if err := run(iniPath, inputFiles); err != nil {
		log.Fatalf("swspectrometer: %v", err)
	}
}

func run(iniPath string, inputFiles []string) error {
	ini, err := config.OpenINI(iniPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", iniPath, err)
	}
	cfg, err := config.Load(ini, len(inputFiles))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", iniPath, err)
	}
	if err := config.ResolveNumCores(cfg); err != nil {
		return err
	}
	if err := config.Derive(cfg); err != nil {
		return err
	}
	if err := config.Finalize(cfg); err != nil {
		return err
	}

	runLog, err := os.Create(config.RunLogPath(cfg.BaseFilename1))
	if err != nil {
		return fmt.Errorf("creating run log: %w", err)
	}
	defer runLog.Close()
	logger := log.New(io.MultiWriter(os.Stderr, runLog), "", log.LstdFlags)
	logger.Printf("swspectrometer: run %s starting, %d core(s), %d source(s)", cfg.RunID, cfg.NumCores, cfg.NumSources)

	if err := writeStartTiming(cfg, inputFiles); err != nil {
		return err
	}
	if err := config.WriteManifest(cfg, cfg.BaseFilename1); err != nil {
		return err
	}

	sources := make([]source.Source, cfg.NumSources)
	channels := make([]int, cfg.NumSources)
	for i, path := range inputFiles {
		src, err := source.Open(cfg, path)
		if err != nil {
			return fmt.Errorf("opening source %d (%s): %w", i, path, err)
		}
		sources[i] = src
		if i == 0 {
			channels[i] = cfg.UseFile1Channel - 1
		} else {
			channels[i] = cfg.UseFile2Channel - 1
		}
	}

	sinks, closeSinks, err := buildSinks(cfg)
	if err != nil {
		return fmt.Errorf("building sinks: %w", err)
	}
	defer closeSinks()

	reg, err := metrics.New(cfg.PrometheusAddr)
	if err != nil {
		return fmt.Errorf("starting metrics: %w", err)
	}
	defer reg.Close()

	hub, err := monitor.NewHub(cfg.MonitorAddr)
	if err != nil {
		return fmt.Errorf("starting monitor: %w", err)
	}
	defer hub.Close()

	disp, err := dispatcher.New(cfg, sources, channels, sinks, reg)
	if err != nil {
		return fmt.Errorf("building dispatcher: %w", err)
	}

	var statusPub *status.Publisher
	if cfg.MQTTBrokerURL != "" {
		statusPub, err = status.New(cfg.MQTTBrokerURL, cfg.MQTTTopic, 30*time.Second, disp)
		if err != nil {
			logger.Printf("swspectrometer: MQTT heartbeat disabled: %v", err)
			statusPub = nil
		}
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	if statusPub != nil {
		statusCtx, cancelStatus := context.WithCancel(context.Background())
		go statusPub.Run(statusCtx)
		defer cancelStatus()
		defer statusPub.Close()
	}
	go func() {
		<-sigCh
		logger.Println("swspectrometer: received shutdown signal, stopping after the current cycle")
		cancelRun()
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- disp.Run(runCtx) }()

	if err := <-runErr; err != nil && err != context.Canceled {
		logger.Printf("swspectrometer: run ended with error: %v", err)
		return err
	}

	logger.Printf("swspectrometer: run %s complete", cfg.RunID)
	return nil
}

func writeStartTiming(cfg *config.Settings, inputFiles []string) error {
	f, err := os.Create(config.StartTimingPath(cfg.BaseFilename1))
	if err != nil {
		return fmt.Errorf("creating start-timing diagnostic: %w", err)
	}
	defer f.Close()
	for i, path := range inputFiles {
		fmt.Fprintf(f, "source %d: %s\n", i, path)
		fmt.Fprintf(f, "  skip_seconds: %d\n", cfg.SourceSkipSeconds)
		fmt.Fprintf(f, "  raw_bytes_per_channel_sample: %g\n", cfg.RawBytesPerChannelSample)
	}
	fmt.Fprintf(f, "run_id: %s\n", cfg.RunID)
	fmt.Fprintf(f, "started_at: %s\n", cfg.StartedAt.UTC().Format(time.RFC3339))
	return nil
}

// buildSinks constructs the Auto/XPol/PCal sink sets per source, honoring
// cfg.SinkFormat and cfg.CompressSink.
func buildSinks(cfg *config.Settings) (dispatcher.Sinks, func(), error) {
	var out dispatcher.Sinks
	var closers []io.Closer

	basenames := []string{cfg.BaseFilename1, cfg.BaseFilename2}
	for i := 0; i < cfg.NumSources; i++ {
		base := config.ResolveBaseFilename(basenames[i], cfg, i)
		s, err := newAutoSink(cfg, config.SwspecPath(base))
		if err != nil {
			return out, nil, err
		}
		out.Auto = append(out.Auto, s)
		closers = append(closers, s)

		if cfg.ExtractPCal {
			p, err := sink.NewXPolBinary(config.PCalPath(base))
			if err != nil {
				return out, nil, err
			}
			out.PCal = append(out.PCal, p)
			closers = append(closers, p)
		}
	}

	if cfg.NumXPols > 0 {
		base := config.ResolveBaseFilename(cfg.BaseFilename1, cfg, 0)
		x, err := sink.NewXPolBinary(config.XpolSwspecPath(base))
		if err != nil {
			return out, nil, err
		}
		out.XPol = append(out.XPol, x)
		closers = append(closers, x)
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				log.Printf("swspectrometer: closing sink: %v", err)
			}
		}
	}
	return out, closeAll, nil
}

func newAutoSink(cfg *config.Settings, path string) (sink.Sink, error) {
	if cfg.SinkFormat == config.SinkASCII {
		return sink.NewASCII(path)
	}
	if cfg.CompressSink {
		return sink.NewCompressedBinary(path + ".zst")
	}
	return sink.NewBinary(path)
}
