package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/johns/flowsense/internal/archive"
	"github.com/johns/flowsense/internal/config"
	"github.com/johns/flowsense/internal/detect"
	"github.com/johns/flowsense/internal/history"
	"github.com/johns/flowsense/internal/ledger"
	"github.com/johns/flowsense/internal/replay"
	"github.com/johns/flowsense/internal/spool"
	"github.com/johns/flowsense/internal/stats"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	switch os.Args[1] {
	case "run":
		if err := run(cfg); err != nil {
			fatal("%v", err)
		}

	case "stats":
		hours := 0
		if len(os.Args) > 2 {
			hours, err = strconv.Atoi(os.Args[2])
			if err != nil || hours < 0 {
				fatal("usage: flowd stats [hours]")
			}
		}
		if err := printStats(cfg, hours); err != nil {
			fatal("stats: %v", err)
		}

	case "sessions":
		n := 10
		if len(os.Args) > 2 {
			n, err = strconv.Atoi(os.Args[2])
			if err != nil || n < 1 {
				fatal("usage: flowd sessions [n]")
			}
		}
		if err := printSessions(cfg, n); err != nil {
			fatal("sessions: %v", err)
		}

	case "export":
		dest := ""
		if len(os.Args) > 2 {
			dest = os.Args[2]
		}
		if err := export(cfg, dest); err != nil {
			fatal("export: %v", err)
		}

	case "score":
		if len(os.Args) < 3 {
			fatal("usage: flowd score <spool.jsonl>")
		}
		if err := scoreFile(cfg, os.Args[2]); err != nil {
			fatal("score: %v", err)
		}

	case "version":
		fmt.Printf("flowd v%s (flowsense)\n", version)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

// detectionParams maps the config section onto detector parameters.
func detectionParams(d config.DetectionConfig) detect.Params {
	return detect.Params{
		CollectPeriod:  d.CollectPeriod(),
		TickPeriod:     d.TickPeriod(),
		WindowCapacity: d.WindowCapacity,
		ScoreWindow:    d.ScoreWindow,
		SampleBuffer:   d.SampleBuffer,
		EnterThreshold: d.EnterThreshold,
		ExitRatio:      d.ExitRatio,
		ConfirmSamples: d.ConfirmSamples,
		LedgerCapacity: d.LedgerCapacity,
	}
}

// run tails the event spool, detects flow, and persists completed sessions
// until interrupted.
func run(cfg config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := history.Open(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	reader, err := spool.Open(cfg.Spool.Path)
	if err != nil {
		return err
	}
	defer reader.Close()

	// Completed sessions are handed off to a writer goroutine so the exit
	// callback never blocks the detector.
	sessCh := make(chan ledger.Session, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for sess := range sessCh {
			if err := store.Insert(context.Background(), sess); err != nil {
				logger.Error("persist session", "id", sess.ID, "error", err)
				continue
			}
			logger.Info("flow session ended",
				"id", sess.ID,
				"duration", sess.Duration.Round(time.Second),
				"peak_score", fmt.Sprintf("%.2f", sess.PeakScore))
		}
	}()

	detector, err := detect.New(detectionParams(cfg.Detection),
		detect.WithOnEnter(func(st detect.State) {
			logger.Info("flow started",
				"score", fmt.Sprintf("%.2f", st.Score),
				"confidence", fmt.Sprintf("%.2f", st.Confidence))
		}),
		detect.WithOnExit(func(sess ledger.Session) {
			select {
			case sessCh <- sess:
			default:
				logger.Warn("session writer saturated, dropping", "id", sess.ID)
			}
		}),
	)
	if err != nil {
		return err
	}

	detector.Start()
	go func() {
		for ev := range reader.Events() {
			detector.HandleEvent(ev)
		}
	}()

	logger.Info("flowd running",
		"spool", cfg.Spool.Path,
		"db", cfg.History.DBPath,
		"collect_period", cfg.Detection.CollectPeriod(),
		"tick_period", cfg.Detection.TickPeriod())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	detector.Stop()
	close(sessCh)
	<-writerDone
	return nil
}

func printStats(cfg config.Config, hours int) error {
	store, err := history.Open(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	var sessions []ledger.Session
	if hours > 0 {
		sessions, err = store.Since(ctx, time.Now().Add(-time.Duration(hours)*time.Hour))
	} else {
		sessions, err = store.All(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Print(stats.Format(stats.Compute(sessions)))
	return nil
}

func printSessions(cfg config.Config, n int) error {
	store, err := history.Open(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.Recent(context.Background(), n)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no flow sessions recorded")
		return nil
	}

	for _, s := range sessions {
		ctxName := s.Context
		if ctxName == "" {
			ctxName = "-"
		}
		fmt.Printf("%s  %8s  peak %.2f  %s\n",
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			s.Duration.Round(time.Second),
			s.PeakScore,
			ctxName)
	}
	return nil
}

func export(cfg config.Config, dest string) error {
	store, err := history.Open(cfg.History.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.All(context.Background())
	if err != nil {
		return err
	}

	if dest == "" {
		dest = archive.ExportPath(cfg.Archive.Dir, time.Now(), cfg.Archive.Compress)
	}
	if err := archive.Export(sessions, dest); err != nil {
		return err
	}

	fmt.Printf("exported %d sessions to %s\n", len(sessions), dest)
	return nil
}

func scoreFile(cfg config.Config, path string) error {
	events, err := spool.ReadAll(path)
	if err != nil {
		return err
	}

	res, err := replay.Run(events, detectionParams(cfg.Detection))
	if err != nil {
		return err
	}

	fmt.Printf("replayed %d events: %d metrics, %d ticks\n", len(events), res.Metrics, res.Ticks)
	fmt.Printf("final score %.2f, confidence %.2f\n", res.Final.Score, res.Final.Confidence)
	if len(res.Sessions) == 0 {
		fmt.Println("no flow sessions detected")
		return nil
	}
	for _, s := range res.Sessions {
		fmt.Printf("flow %s -> %s  (%s, peak %.2f)\n",
			s.StartedAt.Format("15:04:05"),
			s.EndedAt.Format("15:04:05"),
			s.Duration.Round(time.Second),
			s.PeakScore)
	}
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `flowd v%s - flow-state detection daemon

Usage:
  flowd run                 Tail the event spool and detect flow sessions
  flowd stats [hours]       Aggregate session stats (all time, or last N hours)
  flowd sessions [n]        List recent sessions (default 10)
  flowd export [dest]       Export session history as JSONL (.zst to compress)
  flowd score <file.jsonl>  Replay a recorded event spool offline
  flowd version             Print version
  flowd help                Show this help

The frontend appends interaction events to the spool file as JSON lines:
  {"kind":"key_press","time":"2026-03-01T09:00:00Z"}
  {"kind":"focus_gain","time":"2026-03-01T09:05:00Z","context":"editor"}

Configuration: ~/.config/flowsense/config.toml
`, version)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "flowd: "+format+"\n", args...)
	os.Exit(1)
}
