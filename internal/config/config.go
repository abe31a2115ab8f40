package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		MonitoringPort     int      `mapstructure:"monitoring_port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
		CronToken          string   `mapstructure:"cron_token"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`

	PortPro struct {
		BaseURL       string `mapstructure:"base_url"`
		APIKey        string `mapstructure:"api_key"`
		WebhookSecret string `mapstructure:"webhook_secret"`
		PollLimit     int    `mapstructure:"poll_limit"`
	} `mapstructure:"portpro"`

	Sync struct {
		DLQBaseDelaySeconds   int `mapstructure:"dlq_base_delay_seconds"`
		DLQMaxDelaySeconds    int `mapstructure:"dlq_max_delay_seconds"`
		DLQMaxRetries         int `mapstructure:"dlq_max_retries"`
		IdempotencyTTLHours   int `mapstructure:"idempotency_ttl_hours"`
		ReconcilePageSize     int `mapstructure:"reconcile_page_size"`
		StaleThresholdMinutes int `mapstructure:"stale_threshold_minutes"`
	} `mapstructure:"sync"`

	Notifications struct {
		EmailAPIKey    string `mapstructure:"email_api_key"`
		EmailFrom      string `mapstructure:"email_from"`
		ChatWebhookURL string `mapstructure:"chat_webhook_url"`
		DefaultChannel string `mapstructure:"default_channel"`
		OpsChannel     string `mapstructure:"ops_channel"`
	} `mapstructure:"notifications"`
}

func Load() *Config {
	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	// Auto bind environment variables
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.monitoring_port", 9091)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "drayage_db")
	v.SetDefault("portpro.base_url", "https://api.portpro.io/v1")
	v.SetDefault("portpro.poll_limit", 50)
	v.SetDefault("sync.dlq_base_delay_seconds", 60)
	v.SetDefault("sync.dlq_max_delay_seconds", 3600)
	v.SetDefault("sync.dlq_max_retries", 5)
	v.SetDefault("sync.idempotency_ttl_hours", 24)
	v.SetDefault("sync.reconcile_page_size", 100)
	v.SetDefault("sync.stale_threshold_minutes", 60)
	v.SetDefault("notifications.default_channel", "#dispatch")
	v.SetDefault("notifications.ops_channel", "#ops-alerts")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Printf("[Config] No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	// Override database settings from DB_* environment variables
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil && n > 0 {
			cfg.Database.Port = n
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.Name = name
	}

	// PortPro credentials come from environment in production
	if key := os.Getenv("PORTPRO_API_KEY"); key != "" {
		cfg.PortPro.APIKey = key
	}
	if secret := os.Getenv("PORTPRO_WEBHOOK_SECRET"); secret != "" {
		cfg.PortPro.WebhookSecret = secret
	}
	if base := os.Getenv("PORTPRO_BASE_URL"); base != "" {
		cfg.PortPro.BaseURL = base
	}

	if key := os.Getenv("RESEND_API_KEY"); key != "" {
		cfg.Notifications.EmailAPIKey = key
	}
	if url := os.Getenv("SLACK_WEBHOOK_URL"); url != "" {
		cfg.Notifications.ChatWebhookURL = url
	}
	if token := os.Getenv("CRON_TOKEN"); token != "" {
		cfg.Server.CronToken = token
	}

	if cfg.PortPro.WebhookSecret == "" {
		log.Printf("[Config] PORTPRO_WEBHOOK_SECRET not set, webhook signatures will be rejected")
	}

	return &cfg
}
