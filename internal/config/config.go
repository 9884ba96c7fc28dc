package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config defines server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	DB       DBConfig       `yaml:"db"`
	Log      LogConfig      `yaml:"log"`
	Zoom     ZoomConfig     `yaml:"zoom"`
	Slack    SlackConfig    `yaml:"slack"`
	LLM      LLMConfig      `yaml:"llm"`
	Redis    RedisConfig    `yaml:"redis"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	MCP      MCPConfig      `yaml:"mcp"`
	Roster   RosterConfig   `yaml:"roster"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// PublicURL is the externally reachable base used in view links.
	PublicURL string `yaml:"public_url"`
}

type DBConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	URL    string `yaml:"url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type ZoomConfig struct {
	WebhookSecret string `yaml:"webhook_secret"`
	AccountID     string `yaml:"account_id"`
	ClientID      string `yaml:"client_id"`
	ClientSecret  string `yaml:"client_secret"`
	APIBaseURL    string `yaml:"api_base_url"`
	TokenURL      string `yaml:"token_url"`
}

type SlackConfig struct {
	BotToken        string   `yaml:"bot_token"`
	SigningSecret   string   `yaml:"signing_secret"`
	APIURL          string   `yaml:"api_url"`
	NotifyAllowList []string `yaml:"notify_allow_list"`
}

type LLMConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	URL          string        `yaml:"url"`
	UserCacheTTL time.Duration `yaml:"user_cache_ttl"`
}

type PipelineConfig struct {
	RunTimeout        time.Duration `yaml:"run_timeout"`
	ShutdownGrace     time.Duration `yaml:"shutdown_grace"`
	DownloadAttempts  int           `yaml:"download_attempts"`
	DownloadBaseDelay time.Duration `yaml:"download_base_delay"`
	ModelAttempts     int           `yaml:"model_attempts"`
	ModelDelay        time.Duration `yaml:"model_delay"`
}

type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

type RosterConfig struct {
	InternalStaff []string `yaml:"internal_staff"`
	Clients       []string `yaml:"clients"`
}

// Default returns the configuration used before any file or env override.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Driver: DriverSQLite,
			Path:   "copilot.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		LLM: LLMConfig{
			Timeout: 2 * time.Minute,
		},
		Redis: RedisConfig{
			UserCacheTTL: 24 * time.Hour,
		},
		Pipeline: PipelineConfig{
			RunTimeout:        10 * time.Minute,
			ShutdownGrace:     2 * time.Minute,
			DownloadAttempts:  3,
			DownloadBaseDelay: time.Second,
			ModelAttempts:     3,
			ModelDelay:        2 * time.Second,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("COPILOT_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.check(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []string
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
				return
			}
			*dst = b
		}
	}
	list := func(key string, dst *[]string) {
		if v := os.Getenv(key); v != "" {
			*dst = splitList(v)
		}
	}

	str("COPILOT_SERVER_HOST", &cfg.Server.Host)
	num("COPILOT_SERVER_PORT", &cfg.Server.Port)
	str("COPILOT_PUBLIC_URL", &cfg.Server.PublicURL)

	str("COPILOT_DB_DRIVER", &cfg.DB.Driver)
	str("COPILOT_DB_PATH", &cfg.DB.Path)
	str("COPILOT_DATABASE_URL", &cfg.DB.URL)

	str("COPILOT_LOG_LEVEL", &cfg.Log.Level)
	str("COPILOT_LOG_FORMAT", &cfg.Log.Format)
	str("COPILOT_LOG_PATH", &cfg.Log.File)

	str("COPILOT_ZOOM_WEBHOOK_SECRET", &cfg.Zoom.WebhookSecret)
	str("COPILOT_ZOOM_ACCOUNT_ID", &cfg.Zoom.AccountID)
	str("COPILOT_ZOOM_CLIENT_ID", &cfg.Zoom.ClientID)
	str("COPILOT_ZOOM_CLIENT_SECRET", &cfg.Zoom.ClientSecret)
	str("COPILOT_ZOOM_API_BASE_URL", &cfg.Zoom.APIBaseURL)
	str("COPILOT_ZOOM_TOKEN_URL", &cfg.Zoom.TokenURL)

	str("COPILOT_SLACK_BOT_TOKEN", &cfg.Slack.BotToken)
	str("COPILOT_SLACK_SIGNING_SECRET", &cfg.Slack.SigningSecret)
	str("COPILOT_SLACK_API_URL", &cfg.Slack.APIURL)
	list("COPILOT_SLACK_NOTIFY_ALLOW_LIST", &cfg.Slack.NotifyAllowList)

	str("COPILOT_LLM_API_KEY", &cfg.LLM.APIKey)
	str("COPILOT_LLM_BASE_URL", &cfg.LLM.BaseURL)
	str("COPILOT_LLM_MODEL", &cfg.LLM.Model)
	dur("COPILOT_LLM_TIMEOUT", &cfg.LLM.Timeout)

	str("COPILOT_REDIS_URL", &cfg.Redis.URL)
	dur("COPILOT_REDIS_USER_CACHE_TTL", &cfg.Redis.UserCacheTTL)

	dur("COPILOT_PIPELINE_RUN_TIMEOUT", &cfg.Pipeline.RunTimeout)
	dur("COPILOT_PIPELINE_SHUTDOWN_GRACE", &cfg.Pipeline.ShutdownGrace)
	num("COPILOT_PIPELINE_DOWNLOAD_ATTEMPTS", &cfg.Pipeline.DownloadAttempts)
	dur("COPILOT_PIPELINE_DOWNLOAD_BASE_DELAY", &cfg.Pipeline.DownloadBaseDelay)
	num("COPILOT_PIPELINE_MODEL_ATTEMPTS", &cfg.Pipeline.ModelAttempts)
	dur("COPILOT_PIPELINE_MODEL_DELAY", &cfg.Pipeline.ModelDelay)

	flag("COPILOT_MCP_ENABLED", &cfg.MCP.Enabled)
	str("COPILOT_MCP_TOKEN", &cfg.MCP.Token)

	list("COPILOT_ROSTER_INTERNAL_STAFF", &cfg.Roster.InternalStaff)
	list("COPILOT_ROSTER_CLIENTS", &cfg.Roster.Clients)

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// check rejects configuration the server cannot start with.
func (c Config) check() error {
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			return fmt.Errorf("db.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DB.URL == "" {
			return fmt.Errorf("db.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown db.driver %q", c.DB.Driver)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Pipeline.DownloadAttempts < 1 || c.Pipeline.ModelAttempts < 1 {
		return fmt.Errorf("pipeline attempts must be at least 1")
	}
	return nil
}

// Warnings lists missing settings. The server still starts; the features
// they gate fail closed at request time.
func (c Config) Warnings() []string {
	var out []string
	if c.Zoom.WebhookSecret == "" {
		out = append(out, "zoom.webhook_secret is empty: webhooks will be answered with 500")
	}
	if c.Slack.SigningSecret == "" {
		out = append(out, "slack.signing_secret is empty: interactions will be rejected")
	}
	if c.Slack.BotToken == "" {
		out = append(out, "slack.bot_token is empty: hosts will not be notified")
	}
	if c.LLM.APIKey == "" {
		out = append(out, "llm.api_key is empty: only bypass transcripts can be analyzed")
	}
	if c.Server.PublicURL == "" {
		out = append(out, "server.public_url is empty: notifications will not link to the full summary")
	}
	if c.MCP.Enabled && c.MCP.Token == "" {
		out = append(out, "mcp.token is empty: the MCP endpoint is unauthenticated")
	}
	return out
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
