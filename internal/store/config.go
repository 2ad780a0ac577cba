package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DataSource     string   `yaml:"data_source"`
	Assets         []string `yaml:"assets"`
	TickSeconds    int      `yaml:"tick_seconds"`
	CooldownSecs   int      `yaml:"cooldown_seconds"`
	CandleInterval int      `yaml:"candle_interval_minutes"`
	TrendPeriods   int      `yaml:"trend_periods"`
	Fetch          struct {
		BaseURL        string `yaml:"base_url"`
		Candles        int    `yaml:"candles"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		Concurrency    int    `yaml:"concurrency"`
		RateBurst      int    `yaml:"rate_burst"`
		RateRefillMs   int    `yaml:"rate_refill_ms"`
	} `yaml:"fetch"`
	Account struct {
		InitialCapital float64 `yaml:"initial_capital"`
	} `yaml:"account"`
	Risk struct {
		MaxTradesPerDay   int     `yaml:"max_trades_per_day"`
		StopLossThreshold float64 `yaml:"stop_loss_threshold"`
		Fee               float64 `yaml:"fee"`
		MinCashFloor      float64 `yaml:"min_cash_floor"`
	} `yaml:"risk"`
	Signal struct {
		BuyDropThreshold  float64 `yaml:"buy_drop_threshold"`
		SellGainThreshold float64 `yaml:"sell_gain_threshold"`
	} `yaml:"signal"`
	LLM struct {
		Provider       string  `yaml:"provider"`
		Model          string  `yaml:"model"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float32 `yaml:"temperature"`
		System         string  `yaml:"system"`
		Schema         string  `yaml:"schema"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
	} `yaml:"llm"`
	Status struct {
		Addr string `yaml:"addr"`
	} `yaml:"status"`
	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`
	Sink struct {
		Buffer int `yaml:"buffer"`
	} `yaml:"sink"`
	EOD struct {
		Schedule string `yaml:"schedule"`
	} `yaml:"eod"`
}

// Defaults returns a config carrying the same values the bot was tuned with.
// ParseConfig decodes onto it, so keys absent from the file keep these values
// and explicit zeros survive.
func Defaults() *Config {
	c := &Config{}
	c.Risk.Fee = 0.0052
	c.Risk.MinCashFloor = 10
	c.applyDefaults()
	return c
}

// applyDefaults fills fields for which zero is never a usable value.
func (c *Config) applyDefaults() {
	if c.DataSource == "" {
		c.DataSource = "LIVE"
	}
	if c.TickSeconds == 0 {
		c.TickSeconds = 300
	}
	if c.CooldownSecs == 0 {
		c.CooldownSecs = 300
	}
	if c.CandleInterval == 0 {
		c.CandleInterval = 1
	}
	if c.TrendPeriods == 0 {
		c.TrendPeriods = 6
	}
	if c.Fetch.BaseURL == "" {
		c.Fetch.BaseURL = "https://api.kraken.com"
	}
	if c.Fetch.Candles == 0 {
		c.Fetch.Candles = 1
	}
	if c.Fetch.TimeoutSeconds == 0 {
		c.Fetch.TimeoutSeconds = 10
	}
	if c.Fetch.Concurrency == 0 {
		c.Fetch.Concurrency = 4
	}
	if c.Fetch.RateBurst == 0 {
		c.Fetch.RateBurst = 5
	}
	if c.Fetch.RateRefillMs == 0 {
		c.Fetch.RateRefillMs = 1000
	}
	if c.Account.InitialCapital == 0 {
		c.Account.InitialCapital = 5000
	}
	if c.Risk.MaxTradesPerDay == 0 {
		c.Risk.MaxTradesPerDay = 30
	}
	if c.Risk.StopLossThreshold == 0 {
		c.Risk.StopLossThreshold = -0.02
	}
	if c.Signal.BuyDropThreshold == 0 {
		c.Signal.BuyDropThreshold = -0.01
	}
	if c.Signal.SellGainThreshold == 0 {
		c.Signal.SellGainThreshold = 0.015
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "RULES"
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 20
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 64
	}
	if c.Status.Addr == "" {
		c.Status.Addr = ":10000"
		if p := os.Getenv("PORT"); p != "" {
			c.Status.Addr = ":" + p
		}
	}
	if c.Sink.Buffer == 0 {
		c.Sink.Buffer = 256
	}
	if c.EOD.Schedule == "" {
		c.EOD.Schedule = "5 0 * * *"
	}
	c.DataSource = strings.ToUpper(c.DataSource)
	c.LLM.Provider = strings.ToUpper(c.LLM.Provider)
}

func (c *Config) Validate() error {
	var errs error
	if c.DataSource != "STATIC" && c.DataSource != "LIVE" {
		errs = errors.Join(errs, fmt.Errorf("invalid data_source '%s': must be 'STATIC' or 'LIVE'", c.DataSource))
	}
	if len(c.Assets) == 0 {
		errs = errors.Join(errs, errors.New("assets cannot be empty"))
	}
	seen := map[string]bool{}
	for _, a := range c.Assets {
		if strings.TrimSpace(a) == "" {
			errs = errors.Join(errs, errors.New("assets cannot contain an empty name"))
		}
		if seen[a] {
			errs = errors.Join(errs, fmt.Errorf("asset %s listed twice", a))
		}
		seen[a] = true
	}
	if c.Risk.MaxTradesPerDay <= 0 {
		errs = errors.Join(errs, fmt.Errorf("risk.max_trades_per_day must be positive, got %d", c.Risk.MaxTradesPerDay))
	}
	if c.Risk.StopLossThreshold >= 0 {
		errs = errors.Join(errs, fmt.Errorf("risk.stop_loss_threshold must be negative, got %.4f", c.Risk.StopLossThreshold))
	}
	if c.Risk.Fee < 0 || c.Risk.Fee >= 1 {
		errs = errors.Join(errs, fmt.Errorf("risk.fee must be in [0,1), got %.4f", c.Risk.Fee))
	}
	if c.Risk.MinCashFloor < 0 {
		errs = errors.Join(errs, fmt.Errorf("risk.min_cash_floor cannot be negative, got %.2f", c.Risk.MinCashFloor))
	}
	if c.Account.InitialCapital <= 0 {
		errs = errors.Join(errs, fmt.Errorf("account.initial_capital must be positive, got %.2f", c.Account.InitialCapital))
	}
	if c.Signal.BuyDropThreshold >= 0 {
		errs = errors.Join(errs, fmt.Errorf("signal.buy_drop_threshold must be negative, got %.4f", c.Signal.BuyDropThreshold))
	}
	if c.Signal.SellGainThreshold <= 0 {
		errs = errors.Join(errs, fmt.Errorf("signal.sell_gain_threshold must be positive, got %.4f", c.Signal.SellGainThreshold))
	}
	if c.TrendPeriods < 2 {
		errs = errors.Join(errs, fmt.Errorf("trend_periods must be at least 2, got %d", c.TrendPeriods))
	}
	if c.TickSeconds <= 0 || c.CooldownSecs <= 0 {
		errs = errors.Join(errs, errors.New("tick_seconds and cooldown_seconds must be positive"))
	}
	switch c.LLM.Provider {
	case "RULES", "OPENAI", "CLAUDE", "NOOP":
	default:
		errs = errors.Join(errs, fmt.Errorf("llm.provider must be RULES, OPENAI, CLAUDE or NOOP, got '%s'", c.LLM.Provider))
	}
	return errs
}

func (c *Config) TickInterval() time.Duration     { return time.Duration(c.TickSeconds) * time.Second }
func (c *Config) CooldownInterval() time.Duration { return time.Duration(c.CooldownSecs) * time.Second }
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
func (c *Config) RateRefill() time.Duration {
	return time.Duration(c.Fetch.RateRefillMs) * time.Millisecond
}
func (c *Config) DecisionTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (*Config, error) {
	c := Defaults()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return c, nil
}
