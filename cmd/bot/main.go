package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paper-trader/internal/eod"
	"paper-trader/internal/id"
	"paper-trader/internal/journal"
	"paper-trader/internal/ledger"
	"paper-trader/internal/logger"
	"paper-trader/internal/scheduler"
	"paper-trader/internal/sink"
	"paper-trader/internal/status"
	"paper-trader/internal/trace"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := initializeSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return 1
	}

	runID := id.Run()
	l := ledger.New(cfg.Account.InitialCapital, cfg.Risk.MaxTradesPerDay, time.Now().UTC())

	decider, err := initializeDecider(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize decider", err)
		return 1
	}
	md := initializeMarketData(ctx, cfg)

	snk, j, err := initializeSink(ctx, cfg, runID)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize sink", err)
		return 1
	}

	sched, err := initializeScheduler(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize scheduler", err)
		return 1
	}
	sched.Start()

	srv := status.New(status.Config{Addr: cfg.Status.Addr, Ledger: l, RunID: runID, Assets: cfg.Assets})
	go func() {
		if err := srv.Start(); err != nil {
			logger.ErrorWithErr(ctx, "Status server failed", err)
		}
	}()

	logger.Info(ctx, "Bot started",
		"run_id", runID,
		"data_source", cfg.DataSource,
		"provider", cfg.LLM.Provider,
		"eod_schedule", cfg.EOD.Schedule,
	)

	cycle := initializeCycle(cfg, l, decider, md, snk)
	runErr := cycle.Run(ctx)

	code := 0
	if runErr != nil {
		code = 1
		if errors.Is(runErr, ledger.ErrInvariant) {
			logger.ErrorWithErr(ctx, "Ledger invariant violated - stopping", runErr, "ledger", l.Dump())
		} else {
			logger.ErrorWithErr(ctx, "Simulation failed", runErr)
		}
	}

	shutdown(srv, sched, snk, j)
	return code
}

// shutdown stops the outer surfaces first so no new records arrive, then
// drains the sink and writes today's EOD CSV from the flushed trade log.
func shutdown(srv *status.Server, sched *scheduler.Scheduler, snk *sink.Async, j *journal.SQLite) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info(ctx, "Shutting down...")

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn(ctx, "Status server shutdown", "error", err)
	}
	if err := sched.Stop(ctx); err != nil {
		logger.Warn(ctx, "Scheduler stop", "error", err)
	}
	if err := snk.Close(ctx); err != nil {
		logger.Warn(ctx, "Sink drain incomplete", "error", err)
	}
	if j != nil {
		if err := j.Close(); err != nil {
			logger.Warn(ctx, "Journal close", "error", err)
		}
	}

	if p, err := eod.SummarizeToday(); err != nil {
		logger.Warn(ctx, "EOD summary failed", "error", err)
	} else if p != "" {
		logger.Info(ctx, "EOD CSV written", "path", p)
	}

	if err := trace.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "trace shutdown: %v\n", err)
	}
}
