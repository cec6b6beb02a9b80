// Package config loads and validates watcher configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/profile-watcher/internal/alert"
	"github.com/JakeFAU/profile-watcher/internal/extract"
	"github.com/JakeFAU/profile-watcher/internal/fetcher/headless"
	"github.com/JakeFAU/profile-watcher/internal/identity"
	"github.com/JakeFAU/profile-watcher/internal/ledger"
	"github.com/JakeFAU/profile-watcher/internal/session"
)

// Storage backends.
const (
	BackendLocal  = "local"
	BackendGCS    = "gcs"
	// BackendMemory keeps state in-process only; nothing survives a restart.
	BackendMemory = "memory"
)

// Config captures all watcher configuration knobs loaded via Viper.
type Config struct {
	Target   TargetConfig   `mapstructure:"target"`
	Keywords []string       `mapstructure:"keywords"`
	Identity IdentityConfig `mapstructure:"identity"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Session  SessionConfig  `mapstructure:"session"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Alert    AlertConfig    `mapstructure:"alert"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TargetConfig names the watched profile.
type TargetConfig struct {
	Handle  string `mapstructure:"handle"`
	BaseURL string `mapstructure:"base_url"`
}

// IdentityConfig mirrors identity.Profile.
type IdentityConfig struct {
	Languages           []string `mapstructure:"languages"`
	Timezone            string   `mapstructure:"timezone"`
	Platform            string   `mapstructure:"platform"`
	HardwareConcurrency int      `mapstructure:"hardware_concurrency"`
	DeviceMemory        int      `mapstructure:"device_memory"`
	UserAgent           string   `mapstructure:"user_agent"`
	WebGLVendor         string   `mapstructure:"webgl_vendor"`
	WebGLRenderer       string   `mapstructure:"webgl_renderer"`
	ViewportWidth       int      `mapstructure:"viewport_width"`
	ViewportHeight      int      `mapstructure:"viewport_height"`
	Stealth             bool     `mapstructure:"stealth"`
}

// ExtractConfig selects content units on the rendered page.
type ExtractConfig struct {
	UnitSelector string `mapstructure:"unit_selector"`
	LinkSelector string `mapstructure:"link_selector"`
	TextSelector string `mapstructure:"text_selector"`
	MaxItems     int    `mapstructure:"max_items"`
}

// FetchConfig configures the headless browser.
type FetchConfig struct {
	MarkerTimeout     time.Duration `mapstructure:"marker_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	Headless          bool          `mapstructure:"headless"`
	ExecPath          string        `mapstructure:"exec_path"`
}

// LedgerConfig sizes and names the dedup ledger.
type LedgerConfig struct {
	Capacity int    `mapstructure:"capacity"`
	File     string `mapstructure:"file"`
}

// SessionConfig names the persisted cookie jar.
type SessionConfig struct {
	File string `mapstructure:"file"`
}

// StorageConfig selects where ledger and session blobs live.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// ScheduleConfig bounds the random sleep between cycles.
type ScheduleConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval"`
	MaxInterval time.Duration `mapstructure:"max_interval"`
}

// AlertConfig holds Telegram credentials and delivery knobs.
type AlertConfig struct {
	BotToken      string        `mapstructure:"bot_token"`
	ChatID        string        `mapstructure:"chat_id"`
	APIBase       string        `mapstructure:"api_base"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	ParseMode     string        `mapstructure:"parse_mode"`
	StartupNotice bool          `mapstructure:"startup_notice"`
}

// ServerConfig controls the optional health/metrics listener.
type ServerConfig struct {
	// Addr is the listen address; empty disables the listener.
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
	// Table prints a per-cycle item table to stdout.
	Table bool `mapstructure:"table"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindFallbacks(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Keywords = splitList(cfg.Keywords)
	cfg.Identity.Languages = splitList(cfg.Identity.Languages)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// bindFallbacks lets the bare Telegram variables from a .env file fill the
// alert credentials when the prefixed ones are absent.
func bindFallbacks(v *viper.Viper) error {
	if err := v.BindEnv("alert.bot_token", "WATCHER_ALERT_BOT_TOKEN", "TELEGRAM_BOT_TOKEN"); err != nil {
		return fmt.Errorf("bind alert.bot_token: %w", err)
	}
	if err := v.BindEnv("alert.chat_id", "WATCHER_ALERT_CHAT_ID", "TELEGRAM_CHAT_ID"); err != nil {
		return fmt.Errorf("bind alert.chat_id: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	def := identity.Default()

	v.SetDefault("target.handle", "NodeMinerDPN")
	v.SetDefault("target.base_url", "https://x.com")
	v.SetDefault("keywords", []string{"📌", "More details on", "Early Access"})
	v.SetDefault("identity.languages", def.Languages)
	v.SetDefault("identity.timezone", def.Timezone)
	v.SetDefault("identity.platform", def.Platform)
	v.SetDefault("identity.hardware_concurrency", def.HardwareConcurrency)
	v.SetDefault("identity.device_memory", def.DeviceMemory)
	v.SetDefault("identity.user_agent", def.UserAgent)
	v.SetDefault("identity.webgl_vendor", def.WebGLVendor)
	v.SetDefault("identity.webgl_renderer", def.WebGLRenderer)
	v.SetDefault("identity.viewport_width", def.ViewportWidth)
	v.SetDefault("identity.viewport_height", def.ViewportHeight)
	v.SetDefault("identity.stealth", def.Stealth)
	v.SetDefault("extract.unit_selector", extract.DefaultUnitSelector)
	v.SetDefault("extract.link_selector", extract.DefaultLinkSelector)
	v.SetDefault("extract.text_selector", extract.DefaultTextSelector)
	v.SetDefault("extract.max_items", extract.DefaultMaxItems)
	v.SetDefault("fetch.marker_timeout", 60*time.Second)
	v.SetDefault("fetch.navigation_timeout", 90*time.Second)
	v.SetDefault("fetch.settle_delay", 500*time.Millisecond)
	v.SetDefault("fetch.headless", true)
	v.SetDefault("fetch.exec_path", "")
	v.SetDefault("ledger.capacity", ledger.DefaultCapacity)
	v.SetDefault("ledger.file", ledger.DefaultObjectName)
	v.SetDefault("session.file", session.DefaultObjectName)
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.base_dir", ".")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("schedule.min_interval", 30*time.Second)
	v.SetDefault("schedule.max_interval", 50*time.Second)
	v.SetDefault("alert.api_base", alert.DefaultAPIBase)
	v.SetDefault("alert.timeout", 10*time.Second)
	v.SetDefault("alert.rate_per_second", 1.0)
	v.SetDefault("alert.parse_mode", "HTML")
	v.SetDefault("alert.startup_notice", true)
	v.SetDefault("server.addr", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.table", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Target.Handle) == "" {
		return fmt.Errorf("target.handle is required")
	}
	if _, err := url.ParseRequestURI(c.Target.BaseURL); err != nil {
		return fmt.Errorf("target.base_url is invalid: %w", err)
	}
	if c.Ledger.Capacity <= 0 {
		return fmt.Errorf("ledger.capacity must be > 0")
	}
	if c.Extract.MaxItems <= 0 {
		return fmt.Errorf("extract.max_items must be > 0")
	}
	if c.Fetch.MarkerTimeout <= 0 || c.Fetch.NavigationTimeout <= 0 {
		return fmt.Errorf("fetch timeouts must be > 0")
	}
	if c.Schedule.MinInterval < time.Second {
		return fmt.Errorf("schedule.min_interval must be >= 1s")
	}
	if c.Schedule.MaxInterval < c.Schedule.MinInterval {
		return fmt.Errorf("schedule.max_interval must be >= schedule.min_interval")
	}
	switch c.Storage.Backend {
	case BackendLocal:
		if strings.TrimSpace(c.Storage.BaseDir) == "" {
			return fmt.Errorf("storage.base_dir is required for the local backend")
		}
	case BackendGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for the gcs backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be %q, %q or %q, got %q",
			BackendLocal, BackendGCS, BackendMemory, c.Storage.Backend)
	}
	if err := c.Profile().Validate(); err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	return nil
}

// SourceURL is the profile page fetched every cycle.
func (c Config) SourceURL() string {
	return strings.TrimRight(c.Target.BaseURL, "/") + "/" + strings.TrimPrefix(c.Target.Handle, "@")
}

// Profile converts the identity section into an identity.Profile.
func (c Config) Profile() identity.Profile {
	return identity.Profile{
		Languages:           append([]string(nil), c.Identity.Languages...),
		Timezone:            c.Identity.Timezone,
		Platform:            c.Identity.Platform,
		HardwareConcurrency: c.Identity.HardwareConcurrency,
		DeviceMemory:        c.Identity.DeviceMemory,
		UserAgent:           c.Identity.UserAgent,
		WebGLVendor:         c.Identity.WebGLVendor,
		WebGLRenderer:       c.Identity.WebGLRenderer,
		ViewportWidth:       c.Identity.ViewportWidth,
		ViewportHeight:      c.Identity.ViewportHeight,
		Stealth:             c.Identity.Stealth,
	}
}

// ExtractorConfig converts the extract section.
func (c Config) ExtractorConfig() extract.Config {
	return extract.Config{
		UnitSelector: c.Extract.UnitSelector,
		LinkSelector: c.Extract.LinkSelector,
		TextSelector: c.Extract.TextSelector,
		MaxItems:     c.Extract.MaxItems,
	}
}

// FetcherConfig converts the fetch section.
func (c Config) FetcherConfig() headless.Config {
	return headless.Config{
		NavigationTimeout: c.Fetch.NavigationTimeout,
		SettleDelay:       c.Fetch.SettleDelay,
		Headless:          c.Fetch.Headless,
		ExecPath:          c.Fetch.ExecPath,
	}
}

// TelegramConfig converts the alert section.
func (c Config) TelegramConfig() alert.Config {
	return alert.Config{
		BotToken:      c.Alert.BotToken,
		ChatID:        c.Alert.ChatID,
		APIBase:       c.Alert.APIBase,
		Timeout:       c.Alert.Timeout,
		RatePerSecond: c.Alert.RatePerSecond,
		ParseMode:     c.Alert.ParseMode,
	}
}

// splitList accepts both YAML lists and comma-separated env values.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
