package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. It is built once at start-up and
// handed to each component; nothing else reads the environment.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	DataSource DataSourceConfig `yaml:"data_source"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	Cooldown   CooldownConfig   `yaml:"cooldown"`
	Trade      TradeConfig      `yaml:"trade"`
	Notify     NotifyConfig     `yaml:"notify"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Server     ServerConfig     `yaml:"server"`
	Proxy      string           `yaml:"proxy"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stdout"`
}

type TelegramConfig struct {
	BotToken  string        `yaml:"bot_token"`
	ChatID    string        `yaml:"chat_id"`
	BaseURL   string        `yaml:"base_url" default:"https://api.telegram.org" validate:"url"`
	ParseMode string        `yaml:"parse_mode" default:"HTML"`
	Timeout   time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
	Polling   bool          `yaml:"polling"`
}

type DataSourceConfig struct {
	Symbol     string           `yaml:"symbol" default:"EUR/USD" validate:"required"`
	Interval   string           `yaml:"interval" default:"1min" validate:"required"`
	OutputSize int              `yaml:"output_size" default:"30" validate:"min=1,max=5000"`
	Timeout    time.Duration    `yaml:"timeout" default:"10s" validate:"gt=0"`
	TwelveData TwelveDataConfig `yaml:"twelve_data"`
	Yahoo      YahooConfig      `yaml:"yahoo"`
}

type TwelveDataConfig struct {
	BaseURL string `yaml:"base_url" default:"https://api.twelvedata.com" validate:"url"`
	APIKey  string `yaml:"api_key" default:"demo"`
}

type YahooConfig struct {
	BaseURL  string `yaml:"base_url" default:"https://query1.finance.yahoo.com" validate:"url"`
	Symbol   string `yaml:"symbol" default:"EURUSD=X" validate:"required"`
	Interval string `yaml:"interval" default:"1m" validate:"required"`
	Range    string `yaml:"range" default:"1d" validate:"required"`
}

type StrategyConfig struct {
	Period           int     `yaml:"period" default:"20" validate:"min=2"`
	StdMultiplier    float64 `yaml:"std_multiplier" default:"2.0" validate:"gt=0"`
	SqueezeThreshold float64 `yaml:"squeeze_threshold" default:"0.0002" validate:"gt=0"`
	ExcludedHours    []int   `yaml:"excluded_hours" default:"[7,8,9,12,13,14]" validate:"dive,min=0,max=23"`
}

type CooldownConfig struct {
	Seconds    int         `yaml:"seconds" default:"3600" validate:"min=0"`
	Key        string      `yaml:"key" default:"last_alert_time" validate:"required"`
	Store      string      `yaml:"store" default:"file" validate:"oneof=memory noop file sqlite redis"`
	FilePath   string      `yaml:"file_path" default:"data/cooldown.json"`
	SQLitePath string      `yaml:"sqlite_path" default:"data/squeeze_sentinel.db"`
	Redis      RedisConfig `yaml:"redis"`
}

// Duration returns the cooldown window.
func (c CooldownConfig) Duration() time.Duration {
	return time.Duration(c.Seconds) * time.Second
}

type RedisConfig struct {
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"squeeze"`
}

type TradeConfig struct {
	Label        string  `yaml:"label" default:"EURUSD"`
	Direction    string  `yaml:"direction" default:"SELL" validate:"oneof=BUY SELL"`
	LotSize      string  `yaml:"lot_size" default:"0.01"`
	StopOffset   float64 `yaml:"stop_offset" default:"0.0004" validate:"gt=0"`
	TargetOffset float64 `yaml:"target_offset" default:"0.0020" validate:"gt=0"`
	PipSize      float64 `yaml:"pip_size" default:"0.0001" validate:"gt=0"`
	Broker       string  `yaml:"broker" default:"Exness"`
	Strategy     string  `yaml:"strategy" default:"Bollinger Squeeze"`
}

type NotifyConfig struct {
	StatusUpdates bool `yaml:"status_updates"`
	ErrorAlerts   bool `yaml:"error_alerts"`
}

type ScheduleConfig struct {
	// Cron uses the six-field format with seconds. Empty disables the in-process scheduler.
	Cron string `yaml:"cron" default:"0 */5 * * * *"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" default:":8080"`
	CronSecret      string        `yaml:"cron_secret"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

var validate = validator.New()

// Load reads .env (if present), the YAML file (if present), applies environment
// variable overrides, then fills defaults. Call Validate afterwards.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	// Defaults first so explicit zero values from YAML or env survive.
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints. Missing Telegram credentials are allowed:
// delivery is then reported as not configured.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("TWELVE_API_KEY", &cfg.DataSource.TwelveData.APIKey)
	str("TELEGRAM_BOT_TOKEN", &cfg.Telegram.BotToken)
	str("TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID)
	str("COOLDOWN_STORE", &cfg.Cooldown.Store)
	str("COOLDOWN_FILE", &cfg.Cooldown.FilePath)
	str("SQLITE_PATH", &cfg.Cooldown.SQLitePath)
	str("REDIS_ADDR", &cfg.Cooldown.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Cooldown.Redis.Password)
	str("SCHEDULE_CRON", &cfg.Schedule.Cron)
	str("HTTP_ADDR", &cfg.Server.Addr)
	str("CRON_SECRET", &cfg.Server.CronSecret)
	str("HTTPS_PROXY", &cfg.Proxy)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)

	if v, ok := lookup("BOLLINGER_PERIOD"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BOLLINGER_PERIOD: %w", err)
		}
		cfg.Strategy.Period = n
	}
	if v, ok := lookup("BOLLINGER_STD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BOLLINGER_STD: %w", err)
		}
		cfg.Strategy.StdMultiplier = f
	}
	if v, ok := lookup("SQUEEZE_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SQUEEZE_THRESHOLD: %w", err)
		}
		cfg.Strategy.SqueezeThreshold = f
	}
	if v, ok := lookup("EXCLUDED_HOURS"); ok {
		hours, err := parseHours(v)
		if err != nil {
			return fmt.Errorf("EXCLUDED_HOURS: %w", err)
		}
		cfg.Strategy.ExcludedHours = hours
	}
	if v, ok := lookup("ALERT_COOLDOWN"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ALERT_COOLDOWN: %w", err)
		}
		cfg.Cooldown.Seconds = n
	}
	if v, ok := lookup("STATUS_UPDATES"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STATUS_UPDATES: %w", err)
		}
		cfg.Notify.StatusUpdates = b
	}
	if v, ok := lookup("ERROR_ALERTS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ERROR_ALERTS: %w", err)
		}
		cfg.Notify.ErrorAlerts = b
	}
	return nil
}

// parseHours parses "7,8,9". An empty string yields an empty set.
func parseHours(s string) ([]int, error) {
	hours := []int{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		h, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parse hour %q: %w", part, err)
		}
		hours = append(hours, h)
	}
	return hours, nil
}
