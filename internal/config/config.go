package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"

	CredentialBackendDatabase      = "database"
	CredentialBackendSecretManager = "secretmanager"

	OverrideModeFixed    = "fixed"
	OverrideModeLeadTime = "lead-time"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	// Account store
	StoreDriver        string `envconfig:"STORE_DRIVER" default:"postgres"`
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING"`
	MongoURL           string `envconfig:"MONGODB_URL"`
	MongoDatabase      string `envconfig:"MONGODB_DATABASE" default:"subtrack"`

	// Auth
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"168h"`

	// Google OAuth + Calendar
	GoogleClientID       string        `envconfig:"GOOGLE_CLIENT_ID" required:"true"`
	GoogleClientSecret   string        `envconfig:"GOOGLE_CLIENT_SECRET" required:"true"`
	GoogleRedirectURI    string        `envconfig:"GOOGLE_REDIRECT_URI" required:"true"`
	OAuthStateTTL        time.Duration `envconfig:"OAUTH_STATE_TTL" default:"10m"`
	OAuthCodeTTL         time.Duration `envconfig:"OAUTH_CODE_TTL" default:"1h"`
	OAuthExchangeTimeout time.Duration `envconfig:"OAUTH_EXCHANGE_TIMEOUT" default:"10s"`
	CalendarEndpoint     string        `envconfig:"CALENDAR_ENDPOINT"`
	CalendarTimeout      time.Duration `envconfig:"CALENDAR_TIMEOUT" default:"15s"`
	CredentialBackend    string        `envconfig:"CREDENTIAL_BACKEND" default:"database"`

	// Reminders
	ReminderTimezone     string `envconfig:"REMINDER_TIMEZONE" required:"true"`
	ReminderOverrideMode string `envconfig:"REMINDER_OVERRIDE_MODE" default:"fixed"`
	ReminderLedger       bool   `envconfig:"REMINDER_LEDGER" default:"false"`

	// Redis holds OAuth state and consumed codes. Empty means in-process storage.
	RedisURL string `envconfig:"REDIS_URL"`

	// GCP
	GCPProjectID        string `envconfig:"GCP_PROJECT_ID"`
	PubSubEmulatorHost  string `envconfig:"PUBSUB_EMULATOR_HOST"`
	PubSubReminderTopic string `envconfig:"PUBSUB_REMINDER_TOPIC"`

	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that envconfig tags cannot express.
func (c *Config) Validate() error {
	// envconfig's required tag accepts a variable that is set to an empty string.
	for name, value := range map[string]string{
		"JWT_SECRET":           c.JWTSecret,
		"GOOGLE_CLIENT_ID":     c.GoogleClientID,
		"GOOGLE_CLIENT_SECRET": c.GoogleClientSecret,
		"GOOGLE_REDIRECT_URI":  c.GoogleRedirectURI,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}

	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DBConnectionString == "" {
			return fmt.Errorf("DB_CONNECTION_STRING is required when STORE_DRIVER=%s", StoreDriverPostgres)
		}
	case StoreDriverMongo:
		if c.MongoURL == "" {
			return fmt.Errorf("MONGODB_URL is required when STORE_DRIVER=%s", StoreDriverMongo)
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.CredentialBackend {
	case CredentialBackendDatabase:
	case CredentialBackendSecretManager:
		if c.GCPProjectID == "" {
			return fmt.Errorf("GCP_PROJECT_ID is required when CREDENTIAL_BACKEND=%s", CredentialBackendSecretManager)
		}
	default:
		return fmt.Errorf("unsupported CREDENTIAL_BACKEND %q", c.CredentialBackend)
	}

	switch c.ReminderOverrideMode {
	case OverrideModeFixed, OverrideModeLeadTime:
	default:
		return fmt.Errorf("unsupported REMINDER_OVERRIDE_MODE %q", c.ReminderOverrideMode)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if c.PubSubReminderTopic != "" && c.GCPProjectID == "" {
		return fmt.Errorf("GCP_PROJECT_ID is required when PUBSUB_REMINDER_TOPIC is set")
	}
	return nil
}

// Location resolves REMINDER_TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	if c.ReminderTimezone == "" {
		return nil, fmt.Errorf("REMINDER_TIMEZONE is required")
	}
	loc, err := time.LoadLocation(c.ReminderTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_TIMEZONE %q: %w", c.ReminderTimezone, err)
	}
	return loc, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
