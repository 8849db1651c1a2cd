package internal

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pushrelay/pkg/apperrors"
)

// Config is the full application configuration. Secrets are never written
// into the file directly: values may use ${VAR} placeholders, and the
// well-known environment variables below are picked up when the YAML leaves
// a field empty.
type Config struct {
	// Server holds inbound HTTP server settings.
	Server struct {
		Port           int    `yaml:"port"`
		ReadTimeoutMS  int64  `yaml:"read_timeout_ms"`
		WriteTimeoutMS int64  `yaml:"write_timeout_ms"`
		IdleTimeoutMS  int64  `yaml:"idle_timeout_ms"`
		ReadHeaderMS   int64  `yaml:"read_header_timeout_ms"`
		MaxBodyBytes   int64  `yaml:"max_body_bytes"`
		RateLimitRPS   int64  `yaml:"rate_limit_rps"`
		RateLimitBurst int64  `yaml:"rate_limit_burst"`
		MetricsEnabled bool   `yaml:"metrics_enabled"`
		MetricsPath    string `yaml:"metrics_path"`
	} `yaml:"server"`

	// GitHub holds OAuth client credentials and API endpoints.
	GitHub struct {
		ClientID     string   `yaml:"client_id"`
		ClientSecret string   `yaml:"client_secret"`
		Scopes       []string `yaml:"scopes"`
		BaseURL      string   `yaml:"base_url"`
		WebBaseURL   string   `yaml:"web_base_url"`
		// OutboundTimeoutMS bounds every call to the provider.
		OutboundTimeoutMS int64 `yaml:"outbound_timeout_ms"`
	} `yaml:"github"`

	// Session holds the cookie signing secret.
	Session struct {
		SecretKey string `yaml:"secret_key"`
	} `yaml:"session"`

	// Storage selects the token store backing. An empty DSN keeps tokens
	// in process memory.
	Storage struct {
		Driver      string `yaml:"driver"`
		DSN         string `yaml:"dsn"`
		Table       string `yaml:"table"`
		AutoMigrate bool   `yaml:"auto_migrate"`
	} `yaml:"storage"`

	// Webhook configures push-event receipt and registration.
	Webhook struct {
		Path string `yaml:"path"`
		// TargetURL is the public URL registered on repositories.
		TargetURL string `yaml:"target_url"`
		// Filter gates processing; events not matching are acknowledged
		// and dropped.
		Filter string `yaml:"filter"`
	} `yaml:"webhook"`

	// Notifier configures the outbound email collaborator.
	Notifier struct {
		Enabled bool   `yaml:"enabled"`
		APIKey  string `yaml:"api_key"`
		From    string `yaml:"from"`
		To      string `yaml:"to"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"notifier"`

	// Summarizer configures the optional text-generation collaborator.
	Summarizer struct {
		Enabled bool   `yaml:"enabled"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"summarizer"`
}

// LoadConfig loads configuration from a YAML file, expands environment
// variables, applies defaults, and validates required secrets. A missing
// file is not an error: the whole configuration can come from the
// environment.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, err
		}
		if err == nil {
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
				return cfg, err
			}
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setIfEmpty(&cfg.GitHub.ClientID, "CLIENT_ID")
	setIfEmpty(&cfg.GitHub.ClientSecret, "CLIENT_SECRET")
	setIfEmpty(&cfg.Session.SecretKey, "SECRET_KEY")
	setIfEmpty(&cfg.Storage.DSN, "DATABASE_URL")
	setIfEmpty(&cfg.Notifier.APIKey, "NOTIFIER_API_KEY")
	setIfEmpty(&cfg.Notifier.From, "NOTIFIER_FROM")
	setIfEmpty(&cfg.Notifier.To, "NOTIFIER_TO")
	setIfEmpty(&cfg.Summarizer.APIKey, "SUMMARIZER_API_KEY")
}

func setIfEmpty(dst *string, env string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = strings.TrimSpace(os.Getenv(env))
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ReadTimeoutMS == 0 {
		cfg.Server.ReadTimeoutMS = 5000
	}
	if cfg.Server.WriteTimeoutMS == 0 {
		cfg.Server.WriteTimeoutMS = 30000
	}
	if cfg.Server.IdleTimeoutMS == 0 {
		cfg.Server.IdleTimeoutMS = 60000
	}
	if cfg.Server.ReadHeaderMS == 0 {
		cfg.Server.ReadHeaderMS = 5000
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = "/metrics"
	}
	if len(cfg.GitHub.Scopes) == 0 {
		cfg.GitHub.Scopes = []string{"repo", "admin:repo_hook"}
	}
	if cfg.GitHub.OutboundTimeoutMS == 0 {
		cfg.GitHub.OutboundTimeoutMS = 15000
	}
	if cfg.Storage.Driver == "" && cfg.Storage.DSN != "" {
		cfg.Storage.Driver = guessDriver(cfg.Storage.DSN)
	}
	if cfg.Storage.Table == "" {
		cfg.Storage.Table = "pushrelay_tokens"
	}
	if cfg.Webhook.Path == "" {
		cfg.Webhook.Path = "/webhook"
	}
	if cfg.Webhook.Filter == "" {
		cfg.Webhook.Filter = "ref == 'refs/heads/main'"
	}
	if !cfg.Notifier.Enabled && cfg.Notifier.APIKey != "" {
		cfg.Notifier.Enabled = true
	}
	if !cfg.Summarizer.Enabled && cfg.Summarizer.APIKey != "" {
		cfg.Summarizer.Enabled = true
	}
	if cfg.Summarizer.Model == "" {
		cfg.Summarizer.Model = "gpt-3.5-turbo"
	}
}

func guessDriver(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres"
	case strings.Contains(dsn, "@tcp("):
		return "mysql"
	default:
		return "sqlite"
	}
}

func validate(cfg *Config) error {
	if cfg.GitHub.ClientID == "" || cfg.GitHub.ClientSecret == "" {
		return apperrors.NewConfigError("CLIENT_ID and CLIENT_SECRET are required")
	}
	if cfg.Session.SecretKey == "" {
		return apperrors.NewConfigError("SECRET_KEY is required")
	}
	if cfg.Notifier.Enabled {
		if cfg.Notifier.APIKey == "" {
			return apperrors.NewConfigError("NOTIFIER_API_KEY is required when the notifier is enabled")
		}
		if cfg.Notifier.From == "" || cfg.Notifier.To == "" {
			return apperrors.NewConfigError("NOTIFIER_FROM and NOTIFIER_TO are required when the notifier is enabled")
		}
	}
	if cfg.Summarizer.Enabled && cfg.Summarizer.APIKey == "" {
		return apperrors.NewConfigError("SUMMARIZER_API_KEY is required when the summarizer is enabled")
	}
	if cfg.Webhook.Filter != "" {
		if _, err := CompileFilter(cfg.Webhook.Filter); err != nil {
			return fmt.Errorf("webhook filter: %w", err)
		}
	}
	return nil
}
