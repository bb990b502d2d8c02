package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ampsession/internal/api"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// APIKeyEnv overrides session.anthropic_api_key when set.
const APIKeyEnv = "AMPSESSION_ANTHROPIC_API_KEY"

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Session   SessionConfig   `toml:"session"`
	Reconnect ReconnectConfig `toml:"reconnect"`
	Approval  ApprovalConfig  `toml:"approval"`
	Ledger    LedgerConfig    `toml:"ledger"`
	Trace     TraceConfig     `toml:"trace"`
	Log       LogConfig       `toml:"log"`
}

type ServerConfig struct {
	BaseURL   string `toml:"base_url"`
	Transport string `toml:"transport"`
}

type SessionConfig struct {
	Profile         string `toml:"profile"`
	Model           string `toml:"model"`
	AnthropicAPIKey string `toml:"anthropic_api_key"`
	WorkspaceRoot   string `toml:"workspace_root"`
	ContextFile     string `toml:"context_file"`
}

type ReconnectConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	BaseDelay   Duration `toml:"base_delay"`
	MaxDelay    Duration `toml:"max_delay"`
}

type ApprovalConfig struct {
	DefaultTimeout  Duration `toml:"default_timeout"`
	DefaultDecision string   `toml:"default_decision"`
}

type LedgerConfig struct {
	Path string `toml:"path"`
}

// TraceConfig configures span export. An http:// or https:// endpoint
// overrides Secure.
type TraceConfig struct {
	Endpoint string `toml:"endpoint"`
	URLPath  string `toml:"url_path"`
	APIKey   string `toml:"api_key"`
	Secure   bool   `toml:"secure"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration decodes TOML strings such as "1s" or "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:   "http://127.0.0.1:8765",
			Transport: "sse",
		},
		Session: SessionConfig{
			Profile: "dev",
		},
		Reconnect: ReconnectConfig{
			MaxAttempts: 10,
			BaseDelay:   Duration{time.Second},
			MaxDelay:    Duration{30 * time.Second},
		},
		Approval: ApprovalConfig{
			DefaultTimeout:  Duration{300 * time.Second},
			DefaultDecision: "Deny",
		},
		Ledger: LedgerConfig{
			Path: defaultLedgerPath(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the config file at path, or the default location when path
// is empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = Path()
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	if key := os.Getenv(APIKeyEnv); key != "" {
		cfg.Session.AnthropicAPIKey = key
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Server.Transport {
	case "sse", "websocket":
	default:
		return fmt.Errorf("server.transport: unknown transport %q", c.Server.Transport)
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts: must not be negative")
	}
	if c.Reconnect.BaseDelay.Duration <= 0 || c.Reconnect.MaxDelay.Duration < c.Reconnect.BaseDelay.Duration {
		return fmt.Errorf("reconnect: need 0 < base_delay <= max_delay")
	}
	if c.Approval.DefaultTimeout.Duration <= 0 {
		return fmt.Errorf("approval.default_timeout: must be positive")
	}
	return nil
}

// Path is the default config file location.
func Path() string {
	dir, _ := os.UserConfigDir()
	return filepath.Join(dir, "ampsession", "config.toml")
}

func defaultLedgerPath() string {
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, ".local", "share", "ampsession", "ledger.db")
}

// LoadWorkspaceContext reads a workspace context file. YAML is the
// expected format; JSON parses as YAML too. A leading ~/ is expanded.
func LoadWorkspaceContext(path string) (*api.WorkspaceContext, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, path[2:])
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wc api.WorkspaceContext
	if err := yaml.Unmarshal(raw, &wc); err != nil {
		return nil, fmt.Errorf("parse workspace context %s: %w", path, err)
	}
	return &wc, nil
}
