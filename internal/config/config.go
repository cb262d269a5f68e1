// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Notification backends.
const (
	BackendBus   = "bus"
	BackendKafka = "kafka"
)

// Config is the full server configuration. Every field maps to one
// environment variable.
type Config struct {
	Env    string `env:"ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/listmate.db"`

	// BaseURL is the externally visible origin, used for OAuth callbacks.
	BaseURL string `env:"BASE_URL"`

	JWTSecret  string        `env:"JWT_SECRET"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"12"`

	GitHub   OAuthClient `envPrefix:"GITHUB_"`
	Facebook OAuthClient `envPrefix:"FACEBOOK_"`
	Google   OAuthClient `envPrefix:"GOOGLE_"`

	NotifyBackend string   `env:"NOTIFY_BACKEND" envDefault:"bus"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic    string   `env:"KAFKA_TOPIC" envDefault:"user.account_created"`
	KafkaGroupID  string   `env:"KAFKA_GROUP_ID" envDefault:"listmate-mailer"`

	SMTP           SMTP     `envPrefix:"SMTP_"`
	OperatorEmails []string `env:"OPERATOR_EMAILS" envSeparator:","`
}

// OAuthClient holds one provider's app credentials. A provider is enabled
// only when both are set.
type OAuthClient struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

func (c OAuthClient) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type SMTP struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM" envDefault:"no-reply@listmate.local"`
	FromName string `env:"FROM_NAME" envDefault:"Listmate"`
}

// LoadDotenv overlays a local .env file onto the environment outside
// production. A missing file is not an error.
func LoadDotenv(files ...string) error {
	if strings.EqualFold(os.Getenv("ENV"), "prod") {
		return nil
	}
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && !info.IsDir() {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Overload(present...); err != nil {
		return fmt.Errorf("config: loading %s: %w", strings.Join(present, ", "), err)
	}
	return nil
}

// Load parses the environment and checks the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: PORT %d out of range", c.Port)
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("config: JWT_SECRET must be at least 16 characters")
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("config: BASE_URL: %w", err)
	}
	switch c.NotifyBackend {
	case BackendBus:
	case BackendKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("config: NOTIFY_BACKEND=kafka needs KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("config: unknown NOTIFY_BACKEND %q", c.NotifyBackend)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "prod")
}

// CallbackURL is the OAuth redirect target for provider.
func (c Config) CallbackURL(provider string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/auth/" + provider + "/callback"
}

// OAuthClients returns the enabled providers by name.
func (c Config) OAuthClients() map[string]OAuthClient {
	out := make(map[string]OAuthClient, 3)
	for name, client := range map[string]OAuthClient{
		"github":   c.GitHub,
		"facebook": c.Facebook,
		"google":   c.Google,
	} {
		if client.Enabled() {
			out[name] = client
		}
	}
	return out
}
