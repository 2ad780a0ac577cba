package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"paper-trader/internal/engine"
	"paper-trader/internal/engine/engineobs"
	"paper-trader/internal/eod"
	"paper-trader/internal/eod/eodobs"
	"paper-trader/internal/interfaces"
	"paper-trader/internal/journal"
	"paper-trader/internal/ledger"
	"paper-trader/internal/llm/claude"
	"paper-trader/internal/llm/llmobs"
	"paper-trader/internal/llm/noop"
	"paper-trader/internal/llm/openai"
	"paper-trader/internal/logger"
	"paper-trader/internal/marketdata"
	"paper-trader/internal/marketdata/mdobs"
	"paper-trader/internal/scheduler"
	rules "paper-trader/internal/signal"
	"paper-trader/internal/sink"
	"paper-trader/internal/store"
	"paper-trader/internal/trace"
	"paper-trader/internal/tradelog"
)

// initializeSystem loads .env and sets up logging and tracing.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	eod.SetDefaultSummarizer(eodobs.Wrap(eod.NewSummarizer()))
	return nil
}

func configPath() string {
	if p := os.Getenv("TRADER_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig(configPath())
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", configPath())
		return nil, err
	}
	return cfg, nil
}

func initializeDecider(ctx context.Context, cfg *store.Config) (interfaces.Decider, error) {
	var (
		decider interfaces.Decider
		err     error
	)

	switch cfg.LLM.Provider {
	case "OPENAI":
		decider, err = openai.NewOpenAIDecider(cfg)
	case "CLAUDE":
		decider, err = claude.NewClaudeDecider(cfg)
	case "NOOP":
		decider = noop.NewNoopDecider()
		logger.Warn(ctx, "Noop decider configured - every step will HOLD")
	default:
		decider = rules.NewRuleDecider(rules.Thresholds{
			BuyDrop:  cfg.Signal.BuyDropThreshold,
			SellGain: cfg.Signal.SellGainThreshold,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("init %s decider: %w", cfg.LLM.Provider, err)
	}

	return llmobs.Wrap(decider, cfg.LLM.Provider), nil
}

func initializeMarketData(ctx context.Context, cfg *store.Config) interfaces.MarketData {
	interval := time.Duration(cfg.CandleInterval) * time.Minute

	if cfg.DataSource == "STATIC" {
		seed := time.Now().UnixNano()
		if v := os.Getenv("STATIC_SEED"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				seed = n
			}
		}
		logger.Info(ctx, "Using STATIC random-walk candles", "seed", seed)
		return mdobs.Wrap(marketdata.NewStatic(seed, interval), "static")
	}

	logger.Info(ctx, "Using LIVE candles from Kraken", "base_url", cfg.Fetch.BaseURL)
	return mdobs.Wrap(marketdata.NewKraken(cfg), "kraken")
}

// initializeSink opens the journal (when configured) and starts the async
// writer feeding it and the JSON-lines trade log.
func initializeSink(ctx context.Context, cfg *store.Config, runID string) (*sink.Async, *journal.SQLite, error) {
	targets := []sink.Target{sink.TradeLog{}}

	var j *journal.SQLite
	if cfg.Journal.Path != "" {
		var err error
		j, err = journal.Open(cfg.Journal.Path, runID)
		if err != nil {
			return nil, nil, fmt.Errorf("open journal: %w", err)
		}
		targets = append(targets, j)
		logger.Info(ctx, "Journal opened", "path", cfg.Journal.Path, "run_id", runID)
	}

	return sink.NewAsync(cfg.Sink.Buffer, targets...), j, nil
}

func initializeCycle(cfg *store.Config, l *ledger.Ledger, d interfaces.Decider, md interfaces.MarketData, s interfaces.TradeSink) *engine.Cycle {
	eng := engineobs.Wrap(engine.New(cfg, l, d, s))
	return engine.NewCycle(cfg, l, eng, md, s)
}

// initializeScheduler registers the end-of-day CSV and log retention jobs.
func initializeScheduler(ctx context.Context, cfg *store.Config) (*scheduler.Scheduler, error) {
	sched := scheduler.New()

	err := sched.AddJob(cfg.EOD.Schedule, scheduler.JobFunc{
		JobName: "eod_summary",
		Fn: func() error {
			p, err := eod.SummarizeYesterday()
			if err == nil && p != "" {
				logger.Info(context.Background(), "EOD CSV written", "path", p)
			}
			return err
		},
	})
	if err != nil {
		return nil, fmt.Errorf("schedule eod: %w", err)
	}

	if days := retentionDays(); days > 0 {
		err = sched.AddJob(cfg.EOD.Schedule, scheduler.JobFunc{
			JobName: "tradelog_compress",
			Fn:      func() error { return tradelog.CompressOlder(days) },
		})
		if err != nil {
			return nil, fmt.Errorf("schedule compression: %w", err)
		}
		logger.Info(ctx, "Trade log retention enabled", "days", days)
	}

	return sched, nil
}

func retentionDays() int {
	n, err := strconv.Atoi(os.Getenv("TRADER_LOG_RETENTION_DAYS"))
	if err != nil {
		return 0
	}
	return n
}
