package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"MomentumRotator/internal/calculator"
	"MomentumRotator/internal/scoring"
)

// Strategy is the decision engine's parameter snapshot. It is passed by value;
// reconfiguration builds a new one rather than mutating a live copy.
type Strategy struct {
	UpdateIntervalSec  int      `yaml:"update_interval_sec"`
	EdgeThresholdPct   float64  `yaml:"edge_threshold_pct"`
	NetEdgeMinPct      float64  `yaml:"net_edge_min_pct"`
	NetEdgeGateEnabled *bool    `yaml:"net_edge_gate_enabled"`
	ConfirmN           int      `yaml:"confirm_n"`
	MinHoldSec         int      `yaml:"min_hold_sec"`
	CooldownSec        int      `yaml:"cooldown_sec"`
	MaxSwitchesPerDay  int      `yaml:"max_switches_per_day"`
	DataStaleSec       int      `yaml:"data_stale_sec"`
	Ret15mSec          int      `yaml:"ret_15m_sec"`
	Ret1hSec           int      `yaml:"ret_1h_sec"`
	Ret4hSec           int      `yaml:"ret_4h_sec"`
	Weight15m          float64  `yaml:"weight_15m"`
	Weight1h           float64  `yaml:"weight_1h"`
	Weight4h           float64  `yaml:"weight_4h"`
	FeeBps             float64  `yaml:"fee_bps"`
	SlippageBps        float64  `yaml:"slippage_bps"`
	SpreadBufferBps    float64  `yaml:"spread_buffer_bps"`
	StartingBalance    float64  `yaml:"starting_balance"`
	AutoSwitch         *bool    `yaml:"auto_switch"`
	Universe           []string `yaml:"universe"`
}

// Config holds all application configuration.
type Config struct {
	Strategy Strategy `yaml:"strategy"`
	Feed     struct {
		Source     string `yaml:"source"` // "rest" or "stream"
		BaseURL    string `yaml:"base_url"`
		StreamURL  string `yaml:"stream_url"`
		QuoteAsset string `yaml:"quote_asset"`
		TimeoutSec int    `yaml:"timeout_sec"`
	} `yaml:"feed"`
	UniverseSelection struct {
		Auto           bool    `yaml:"auto"`
		Size           int     `yaml:"size"`
		MinQuoteVolume float64 `yaml:"min_quote_volume"`
		RefreshCron    string  `yaml:"refresh_cron"`
	} `yaml:"universe_selection"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Report struct {
		Dir  string `yaml:"dir"`
		Cron string `yaml:"cron"`
	} `yaml:"report"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	StateFile string `yaml:"state_file"`
	Proxy     string `yaml:"proxy"`
}

// DefaultUniverse is used when neither the config file nor universe
// selection supplies assets.
var DefaultUniverse = []string{
	"BTC", "ETH", "BNB", "SOL", "XRP", "ADA", "DOGE", "TRX", "MATIC", "DOT",
	"LTC", "AVAX", "LINK", "BCH", "XLM", "ATOM", "ETC", "FIL", "APT", "NEAR",
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides and fills defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	cfg.Strategy.ApplyDefaults()
	cfg.applyDefaults()
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("STARTING_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Strategy.StartingBalance = f
		}
	}
	if v := os.Getenv("UNIVERSE"); v != "" {
		cfg.Strategy.Universe = splitList(v)
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.Feed.Source == "" {
		c.Feed.Source = "rest"
	}
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = "https://api.binance.com"
	}
	if c.Feed.StreamURL == "" {
		c.Feed.StreamURL = "wss://stream.binance.com:9443/ws/!miniTicker@arr"
	}
	if c.Feed.QuoteAsset == "" {
		c.Feed.QuoteAsset = "USDT"
	}
	if c.Feed.TimeoutSec == 0 {
		c.Feed.TimeoutSec = 10
	}
	if c.UniverseSelection.Size == 0 {
		c.UniverseSelection.Size = 20
	}
	if c.UniverseSelection.MinQuoteVolume == 0 {
		c.UniverseSelection.MinQuoteVolume = 20_000_000
	}
	if c.UniverseSelection.RefreshCron == "" {
		c.UniverseSelection.RefreshCron = "0 5 0 * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/rotator.db"
	}
	if c.Report.Dir == "" {
		c.Report.Dir = "reports"
	}
	if c.Report.Cron == "" {
		c.Report.Cron = "0 0 0 * * *"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.StateFile == "" {
		c.StateFile = "data/broker_state.json"
	}
}

// ApplyDefaults fills every zero field with the documented default.
func (s *Strategy) ApplyDefaults() {
	if s.UpdateIntervalSec == 0 {
		s.UpdateIntervalSec = 10
	}
	if s.EdgeThresholdPct == 0 {
		s.EdgeThresholdPct = 0.5
	}
	if s.NetEdgeMinPct == 0 {
		s.NetEdgeMinPct = 0.25
	}
	if s.NetEdgeGateEnabled == nil {
		s.NetEdgeGateEnabled = boolPtr(true)
	}
	if s.ConfirmN == 0 {
		s.ConfirmN = 3
	}
	if s.MinHoldSec == 0 {
		s.MinHoldSec = 900
	}
	if s.CooldownSec == 0 {
		s.CooldownSec = 120
	}
	if s.MaxSwitchesPerDay == 0 {
		s.MaxSwitchesPerDay = 12
	}
	if s.DataStaleSec == 0 {
		s.DataStaleSec = 30
	}
	if s.Ret15mSec == 0 {
		s.Ret15mSec = 15 * 60
	}
	if s.Ret1hSec == 0 {
		s.Ret1hSec = 60 * 60
	}
	if s.Ret4hSec == 0 {
		s.Ret4hSec = 4 * 60 * 60
	}
	if s.Weight15m == 0 && s.Weight1h == 0 && s.Weight4h == 0 {
		s.Weight15m, s.Weight1h, s.Weight4h = 0.5, 0.3, 0.2
	}
	if s.FeeBps == 0 && s.SlippageBps == 0 && s.SpreadBufferBps == 0 {
		s.FeeBps, s.SlippageBps, s.SpreadBufferBps = 7.5, 5.0, 2.0
	}
	if s.StartingBalance == 0 {
		s.StartingBalance = 10000
	}
	if s.AutoSwitch == nil {
		s.AutoSwitch = boolPtr(true)
	}
	if len(s.Universe) == 0 {
		s.Universe = append([]string(nil), DefaultUniverse...)
	}
}

// DefaultStrategy returns a Strategy with every default applied.
func DefaultStrategy() Strategy {
	var s Strategy
	s.ApplyDefaults()
	return s
}

// Validate checks that the config can drive the engine.
func (c *Config) Validate() error {
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	switch c.Feed.Source {
	case "rest", "stream":
	default:
		return fmt.Errorf("feed.source must be rest or stream, got %q", c.Feed.Source)
	}
	if c.Feed.TimeoutSec <= 0 {
		return errors.New("feed.timeout_sec must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return errors.New("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// Validate rejects parameter sets the engine cannot run with.
func (s Strategy) Validate() error {
	switch {
	case s.UpdateIntervalSec <= 0:
		return errors.New("update_interval_sec must be positive")
	case s.EdgeThresholdPct <= 0:
		return errors.New("edge_threshold_pct must be positive")
	case s.NetEdgeMinPct < 0:
		return errors.New("net_edge_min_pct must not be negative")
	case s.ConfirmN <= 0:
		return errors.New("confirm_n must be positive")
	case s.MinHoldSec < 0 || s.CooldownSec < 0:
		return errors.New("min_hold_sec and cooldown_sec must not be negative")
	case s.MaxSwitchesPerDay <= 0:
		return errors.New("max_switches_per_day must be positive")
	case s.DataStaleSec <= 0:
		return errors.New("data_stale_sec must be positive")
	case s.Ret15mSec <= 0 || s.Ret1hSec <= 0 || s.Ret4hSec <= 0:
		return errors.New("return windows must be positive")
	case s.Weight15m < 0 || s.Weight1h < 0 || s.Weight4h < 0:
		return errors.New("weights must not be negative")
	case s.FeeBps < 0 || s.SlippageBps < 0 || s.SpreadBufferBps < 0:
		return errors.New("fee, slippage and spread buffer must not be negative")
	case s.StartingBalance <= 0:
		return errors.New("starting_balance must be positive")
	case len(s.Universe) == 0:
		return errors.New("universe must not be empty")
	}
	return nil
}

// UpdateInterval returns the cycle period.
func (s Strategy) UpdateInterval() time.Duration { return seconds(s.UpdateIntervalSec) }

// MinHold returns the minimum holding time after a switch.
func (s Strategy) MinHold() time.Duration { return seconds(s.MinHoldSec) }

// Cooldown returns the pause armed after every switch.
func (s Strategy) Cooldown() time.Duration { return seconds(s.CooldownSec) }

// DataStale returns the maximum tolerated snapshot age.
func (s Strategy) DataStale() time.Duration { return seconds(s.DataStaleSec) }

// NetEdgeGate reports whether the net edge gate is enabled.
func (s Strategy) NetEdgeGate() bool { return s.NetEdgeGateEnabled == nil || *s.NetEdgeGateEnabled }

// AutoExecute reports whether READY_TO_SWITCH cycles execute immediately.
func (s Strategy) AutoExecute() bool { return s.AutoSwitch == nil || *s.AutoSwitch }

// Windows converts the return window settings for the scoring engine.
func (s Strategy) Windows() scoring.Windows {
	return scoring.Windows{
		Short:  seconds(s.Ret15mSec),
		Mid:    seconds(s.Ret1hSec),
		Long:   seconds(s.Ret4hSec),
		WShort: s.Weight15m,
		WMid:   s.Weight1h,
		WLong:  s.Weight4h,
	}
}

// CostModel builds the cost model from the fee settings.
func (s Strategy) CostModel() calculator.CostModel {
	return calculator.CostModel{
		FeeBps:          s.FeeBps,
		SlippageBps:     s.SlippageBps,
		SpreadBufferBps: s.SpreadBufferBps,
	}
}

// Clone returns a copy that shares no slices or pointers with s.
func (s Strategy) Clone() Strategy {
	c := s
	c.Universe = append([]string(nil), s.Universe...)
	if s.NetEdgeGateEnabled != nil {
		c.NetEdgeGateEnabled = boolPtr(*s.NetEdgeGateEnabled)
	}
	if s.AutoSwitch != nil {
		c.AutoSwitch = boolPtr(*s.AutoSwitch)
	}
	return c
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func boolPtr(b bool) *bool {
	return &b
}
