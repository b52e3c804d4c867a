package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"loginwatch/credential"
)

// ProbeConfig holds page-level selector and threshold overrides.
type ProbeConfig struct {
	HomeIndicator         string
	HomeIndicatorRequired bool
	LoginRouteAliases     []string
	BannerYThreshold      float64
}

// RunConfig holds run pacing and timing configuration.
type RunConfig struct {
	BaseURL           string
	PollWindow        time.Duration
	SettleDelay       time.Duration
	InterAttemptDelay time.Duration
	ReadinessTimeout  time.Duration
}

// BrowserConfig holds Chrome configuration.
type BrowserConfig struct {
	ChromePath     string
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	NavTimeout     time.Duration
}

// ArtifactsConfig holds per-attempt artifact persistence configuration.
type ArtifactsConfig struct {
	Enabled bool
	Type    string // "local" or "s3"
	BaseDir string
	Bucket  string
	Region  string
}

// HistoryConfig holds run-history persistence configuration.
type HistoryConfig struct {
	Enabled bool
	Driver  string // "sqlite" or "mysql"
	DSN     string
}

// NotifyConfig holds summary notification configuration.
type NotifyConfig struct {
	WebhookURL string
	MaxLen     int
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string
}

// Config holds all application configuration.
type Config struct {
	Run       RunConfig
	Probe     ProbeConfig
	Browser   BrowserConfig
	Artifacts ArtifactsConfig
	History   HistoryConfig
	Notify    NotifyConfig
	Log       LogConfig

	// Credentials is the structured credential list; CredentialsText is the
	// newline-delimited fallback. Secrets stay in memory only.
	Credentials     []credential.Record
	CredentialsText string
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("base_url", "")
	v.SetDefault("credentials_text", "")

	v.SetDefault("home_indicator", "DNS Manager")
	v.SetDefault("home_indicator_required", false)
	v.SetDefault("login_route_aliases", []string{"#/login", "#!/login", "#/auth", "#login"})
	v.SetDefault("banner_y_threshold", 450)

	v.SetDefault("poll_window", "40s")
	v.SetDefault("settle_delay", "1500ms")
	v.SetDefault("inter_attempt_delay", "3s")
	v.SetDefault("readiness_timeout", "30s")

	v.SetDefault("browser.chrome_path", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1366)
	v.SetDefault("browser.viewport_height", 900)
	v.SetDefault("browser.nav_timeout", "30s")

	v.SetDefault("artifacts.enabled", false)
	v.SetDefault("artifacts.type", "local")
	v.SetDefault("artifacts.base_dir", "./artifacts")
	v.SetDefault("artifacts.bucket", "")
	v.SetDefault("artifacts.region", "us-east-1")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.dsn", "./loginwatch.db")

	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.max_len", 4000)

	v.SetDefault("log.level", "info")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults
	}

	// Parse configuration
	var config Config

	config.Run.BaseURL = v.GetString("base_url")
	config.Run.PollWindow = v.GetDuration("poll_window")
	config.Run.SettleDelay = v.GetDuration("settle_delay")
	config.Run.InterAttemptDelay = v.GetDuration("inter_attempt_delay")
	config.Run.ReadinessTimeout = v.GetDuration("readiness_timeout")

	config.Probe.HomeIndicator = v.GetString("home_indicator")
	config.Probe.HomeIndicatorRequired = v.GetBool("home_indicator_required")
	config.Probe.LoginRouteAliases = v.GetStringSlice("login_route_aliases")
	config.Probe.BannerYThreshold = v.GetFloat64("banner_y_threshold")

	config.Browser.ChromePath = v.GetString("browser.chrome_path")
	config.Browser.Headless = v.GetBool("browser.headless")
	config.Browser.ViewportWidth = v.GetInt("browser.viewport_width")
	config.Browser.ViewportHeight = v.GetInt("browser.viewport_height")
	config.Browser.NavTimeout = v.GetDuration("browser.nav_timeout")

	config.Artifacts.Enabled = v.GetBool("artifacts.enabled")
	config.Artifacts.Type = v.GetString("artifacts.type")
	config.Artifacts.BaseDir = v.GetString("artifacts.base_dir")
	config.Artifacts.Bucket = v.GetString("artifacts.bucket")
	config.Artifacts.Region = v.GetString("artifacts.region")

	config.History.Enabled = v.GetBool("history.enabled")
	config.History.Driver = v.GetString("history.driver")
	config.History.DSN = v.GetString("history.dsn")

	config.Notify.WebhookURL = v.GetString("notify.webhook_url")
	config.Notify.MaxLen = v.GetInt("notify.max_len")

	config.Log.Level = v.GetString("log.level")

	if err := v.UnmarshalKey("credentials", &config.Credentials); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	config.CredentialsText = v.GetString("credentials_text")

	if config.Run.BaseURL == "" {
		return nil, fmt.Errorf("base_url is required")
	}

	return &config, nil
}

// LoadCredentials resolves the configured credential list, preferring the
// structured shape over the text fallback.
func (c *Config) LoadCredentials() ([]credential.Credential, error) {
	if len(c.Credentials) > 0 {
		return credential.FromRecords(c.Credentials)
	}
	if c.CredentialsText != "" {
		return credential.ParseText(c.CredentialsText)
	}
	return nil, credential.ErrNoCredentials
}
