package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/usecase"
	"github.com/devricklin/feishu-digest-bot/internal/data"
)

// Config represents application configuration
type Config struct {
	// Feishu configuration
	Feishu FeishuConfig

	// Digest configuration
	Digest DigestConfig

	// Delivery configuration
	Delivery DeliveryConfig

	// Moonshot configuration (optional)
	Moonshot MoonshotConfig

	// Channel list seeds
	Channels ChannelsConfig

	// Storage configuration
	Storage StorageConfig

	// Report wording (loaded from YAML)
	Report *ReportConfig

	// Admin API port
	APIPort int

	// Debug mode
	Debug bool
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID        string
	AppSecret    string
	ReportChatID string
}

// DigestConfig contains report and schedule configuration
type DigestConfig struct {
	Timezone      string
	Hour          int
	Minute        int
	MaxPerChannel int
	GeneralMode   string
	EmptyChannels string
	Language      string
	SkipEmpty     bool
	Subject       string
	BackfillLimit int
}

// DeliveryConfig contains delivery sink configuration
type DeliveryConfig struct {
	Sink          string
	EmailAddress  string
	EmailPassword string
	Recipient     string
	TestRecipient string
	SMTPHost      string
	SMTPPort      int
	SMTPTimeout   time.Duration
	GmailCreds    string
	GmailToken    string
}

// MoonshotConfig contains Moonshot configuration
type MoonshotConfig struct {
	APIKey string
	Model  string
}

// ChannelsConfig contains the channel names seeded into the lists at startup
type ChannelsConfig struct {
	Important []string
	Excluded  []string
}

// StorageConfig contains storage paths
type StorageConfig struct {
	DBPath      string
	SnapshotDir string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	// Database path
	dbPath := os.Getenv("DIGEST_DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".feishu-digest", "digest.db")
	}

	snapshotDir := os.Getenv("SNAPSHOT_DIR")
	if snapshotDir == "" {
		snapshotDir = "reports"
	}

	language := strings.ToLower(os.Getenv("DIGEST_LANGUAGE"))
	if language == "" {
		language = "fr"
	}

	// Load report wording from YAML
	reportConfig, err := LoadReportConfig(os.Getenv("DIGEST_CONFIG_PATH"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Feishu: FeishuConfig{
			AppID:        os.Getenv("FEISHU_APP_ID"),
			AppSecret:    os.Getenv("FEISHU_APP_SECRET"),
			ReportChatID: os.Getenv("FEISHU_REPORT_CHAT_ID"),
		},
		Digest: DigestConfig{
			Timezone:      envString("DIGEST_TIMEZONE", domain.DefaultTimezone),
			Hour:          envInt("DIGEST_HOUR", 7),
			Minute:        envInt("DIGEST_MINUTE", 0),
			MaxPerChannel: envInt("DIGEST_MAX_PER_CHANNEL", domain.DefaultMaxPerChannel),
			GeneralMode:   envString("DIGEST_GENERAL_MODE", string(domain.GeneralModeCondensed)),
			EmptyChannels: envString("DIGEST_EMPTY_CHANNELS", string(domain.EmptyChannelPlaceholder)),
			Language:      language,
			SkipEmpty:     envBool("DIGEST_SKIP_EMPTY", false),
			Subject:       os.Getenv("EMAIL_SUBJECT"),
			BackfillLimit: envInt("DIGEST_BACKFILL_LIMIT", 20),
		},
		Delivery: DeliveryConfig{
			Sink:          strings.ToLower(envString("DELIVERY_SINK", data.SinkSMTP)),
			EmailAddress:  os.Getenv("EMAIL_ADDRESS"),
			EmailPassword: os.Getenv("EMAIL_PASSWORD"),
			Recipient:     os.Getenv("RECIPIENT_EMAIL"),
			TestRecipient: os.Getenv("TEST_RECIPIENT_EMAIL"),
			SMTPHost:      envString("EMAIL_SMTP_HOST", "ssl0.ovh.net"),
			SMTPPort:      envInt("EMAIL_SMTP_PORT", 587),
			SMTPTimeout:   envDuration("EMAIL_SMTP_TIMEOUT", 30*time.Second),
			GmailCreds:    envString("GMAIL_CREDENTIALS_FILE", "credentials.json"),
			GmailToken:    envString("GMAIL_TOKEN_FILE", "token.json"),
		},
		Moonshot: MoonshotConfig{
			APIKey: os.Getenv("MOONSHOT_API_KEY"),
			Model:  os.Getenv("MOONSHOT_MODEL"),
		},
		Channels: ChannelsConfig{
			Important: splitList(os.Getenv("IMPORTANT_CHANNELS")),
			Excluded:  splitList(os.Getenv("EXCLUDED_CHANNELS")),
		},
		Storage: StorageConfig{
			DBPath:      dbPath,
			SnapshotDir: snapshotDir,
		},
		Report:  reportConfig,
		APIPort: envInt("API_PORT", 9877),
		Debug:   os.Getenv("DEBUG") == "true",
	}, nil
}

// ToSinkConfig converts to delivery sink configuration
func (c *Config) ToSinkConfig(test bool) data.SinkConfig {
	return data.SinkConfig{
		Kind: c.Delivery.Sink,
		SMTP: data.SMTPConfig{
			Host:    c.Delivery.SMTPHost,
			Port:    c.Delivery.SMTPPort,
			Timeout: c.Delivery.SMTPTimeout,
		},
		Email: data.EmailConfig{
			From:          c.Delivery.EmailAddress,
			Password:      c.Delivery.EmailPassword,
			To:            c.Delivery.Recipient,
			TestRecipient: c.Delivery.TestRecipient,
		},
		Gmail: data.GmailConfig{
			CredentialsFile: c.Delivery.GmailCreds,
			TokenFile:       c.Delivery.GmailToken,
		},
		FeishuChatID: c.Feishu.ReportChatID,
		Test:         test,
	}
}

// ToReportOptions converts to report builder options. condenser may be nil for the naive
// condenser.
func (c *Config) ToReportOptions(condenser usecase.ChannelCondenser) usecase.ReportOptions {
	opts := usecase.NewReportOptions(c.Digest.Timezone)
	opts.MaxPerChannel = c.Digest.MaxPerChannel
	opts.GeneralMode = domain.GeneralMode(c.Digest.GeneralMode)
	opts.EmptyChannels = domain.EmptyChannelPolicy(c.Digest.EmptyChannels)

	report := c.Report
	if report == nil {
		report = DefaultReportConfig()
	}
	opts.Labels = report.Labels(c.Digest.Language)
	opts.Noise = usecase.NewNoiseFilter(report.NoiseWords(c.Digest.Language)...)
	if condenser != nil {
		opts.Condenser = condenser
	} else {
		opts.Condenser = usecase.NewCondenser(opts.Labels, opts.Noise)
	}
	return opts
}

// ToDigestConfig converts to digest job configuration
func (c *Config) ToDigestConfig(opts usecase.ReportOptions) usecase.DigestConfig {
	cfg := usecase.DigestConfig{
		Report:    opts,
		Subject:   c.Digest.Subject,
		SkipEmpty: c.Digest.SkipEmpty,
	}
	// The SMTP sink bounds itself with EMAIL_SMTP_TIMEOUT; the job must not cut it short
	if c.Delivery.Sink == data.SinkSMTP && c.Delivery.SMTPTimeout > 0 {
		cfg.DeliveryTimeout = c.Delivery.SMTPTimeout
	}
	return cfg
}

// Location returns the digest timezone, UTC when unknown
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Digest.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate validates the settings shared by every command
func (c *Config) Validate() error {
	if c.Digest.Hour < 0 || c.Digest.Hour > 23 {
		return &ConfigError{Field: "DIGEST_HOUR", Message: "must be between 0 and 23"}
	}
	if c.Digest.Minute < 0 || c.Digest.Minute > 59 {
		return &ConfigError{Field: "DIGEST_MINUTE", Message: "must be between 0 and 59"}
	}
	if c.Digest.MaxPerChannel <= 0 {
		return &ConfigError{Field: "DIGEST_MAX_PER_CHANNEL", Message: "must be positive"}
	}
	switch domain.GeneralMode(c.Digest.GeneralMode) {
	case domain.GeneralModeCondensed, domain.GeneralModeList:
	default:
		return &ConfigError{Field: "DIGEST_GENERAL_MODE", Message: fmt.Sprintf("unknown mode %q", c.Digest.GeneralMode)}
	}
	switch domain.EmptyChannelPolicy(c.Digest.EmptyChannels) {
	case domain.EmptyChannelPlaceholder, domain.EmptyChannelOmit:
	default:
		return &ConfigError{Field: "DIGEST_EMPTY_CHANNELS", Message: fmt.Sprintf("unknown policy %q", c.Digest.EmptyChannels)}
	}
	switch c.Delivery.Sink {
	case data.SinkSMTP, data.SinkGmail, data.SinkFeishu:
	default:
		return &ConfigError{Field: "DELIVERY_SINK", Message: fmt.Sprintf("unknown sink %q", c.Delivery.Sink)}
	}
	return nil
}

// ValidateCapture validates the settings needed to listen to Feishu
func (c *Config) ValidateCapture() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
		fmt.Printf("[Config] Invalid %s=%q, using %d\n", key, val, def)
	}
	return def
}

func envBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
		fmt.Printf("[Config] Invalid %s=%q, using %t\n", key, val, def)
	}
	return def
}

// envDuration accepts Go durations ("45s") or plain seconds ("45")
func envDuration(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	fmt.Printf("[Config] Invalid %s=%q, using %s\n", key, val, def)
	return def
}

// splitList splits a comma-separated list, dropping empty items
func splitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = domain.NormalizeChannelName(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
