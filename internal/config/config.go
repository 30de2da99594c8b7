// Package config loads service configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds every tunable of the authorization server. Empty RedisAddr
// selects the in-memory repositories; a federated provider is registered only
// when its client credentials are present.
type Config struct {
	AppName  string `env:"APP_NAME" envDefault:"auth-service"`
	Env      string `env:"ENV" envDefault:"DEV"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Issuer     string `env:"ISSUER" envDefault:"http://localhost:8080"`
	LoginUIURL string `env:"LOGIN_UI_URL" envDefault:"http://localhost:3000/login"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	AccessTokenTTL      time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"20m"`
	RefreshTokenTTL     time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"4320h"`
	AuthAttemptTTL      time.Duration `env:"AUTH_ATTEMPT_TTL" envDefault:"15m"`
	KeyRotationInterval time.Duration `env:"KEY_ROTATION_INTERVAL" envDefault:"168h"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"no-reply@localhost"`

	SMSGatewayURL string `env:"SMS_GATEWAY_URL"`
	SMSAPIKey     string `env:"SMS_API_KEY"`

	ExternalCallbackURL string `env:"EXTERNAL_CALLBACK_URL" envDefault:"http://localhost:8080/oauth2/callback"`

	GoogleIssuer       string `env:"GOOGLE_ISSUER" envDefault:"https://accounts.google.com"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	SlackAuthorizeURL string `env:"SLACK_AUTHORIZE_URL" envDefault:"https://slack.com/oauth/v2/authorize"`
	SlackTokenURL     string `env:"SLACK_TOKEN_URL" envDefault:"https://slack.com/api/oauth.v2.access"`
	SlackUserInfoURL  string `env:"SLACK_USERINFO_URL" envDefault:"https://slack.com/api/openid.connect.userInfo"`
	SlackClientID     string `env:"SLACK_CLIENT_ID"`
	SlackClientSecret string `env:"SLACK_CLIENT_SECRET"`

	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" envDefault:"25"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" envDefault:"50"`
	MaxBodyBytes       int64   `env:"MAX_BODY_BYTES" envDefault:"65536"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "[config.Load] env.Parse")
	}
	return cfg, nil
}

// IsDev reports whether the service runs in the development environment.
func (c *Config) IsDev() bool {
	return c.Env == "DEV"
}

// ListenAddr is the address for http.Server.
func (c *Config) ListenAddr() string {
	return ":" + c.Port
}
