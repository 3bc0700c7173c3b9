package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"sync"
	"time"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env:"LISTEN_BIND_IP" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"LISTEN_PORT" env-default:"8080"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"true"`
	Host     string `yaml:"host" env:"MONGO_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
	User     string `yaml:"user" env:"MONGO_USER" env-default:""`
	Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"tgmon"`
}

type TelegramConfig struct {
	BotToken      string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN" env-default:""`
	ApiId         int    `yaml:"api_id" env:"TELEGRAM_API_ID" env-default:"0"`
	ApiHash       string `yaml:"api_hash" env:"TELEGRAM_API_HASH" env-default:""`
	WebhookSecret string `yaml:"webhook_secret" env:"TELEGRAM_WEBHOOK_SECRET" env-default:""`
}

type AuthConfig struct {
	SigningKey string        `yaml:"signing_key" env:"AUTH_SIGNING_KEY" env-default:""`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"AUTH_TOKEN_TTL" env-default:"24h"`
}

type StorageConfig struct {
	Root string `yaml:"root" env:"STORAGE_ROOT" env-default:"./data"`
}

type ForwarderConfig struct {
	RateCount  int           `yaml:"rate_count" env:"FORWARD_RATE_COUNT" env-default:"20"`
	RateWindow time.Duration `yaml:"rate_window" env:"FORWARD_RATE_WINDOW" env-default:"60s"`
	MaxRetries int           `yaml:"max_retries" env:"FORWARD_MAX_RETRIES" env-default:"5"`
	QueueSize  int           `yaml:"queue_size" env:"FORWARD_QUEUE_SIZE" env-default:"256"`
}

type MonitorConfig struct {
	ProbeInterval time.Duration `yaml:"probe_interval" env:"HEALTH_PROBE_INTERVAL" env-default:"30s"`
	MaxReconnects int           `yaml:"max_reconnects" env:"SESSION_MAX_RECONNECTS" env-default:"5"`
}

type StripeConfig struct {
	APIKey          string `yaml:"api_key" env:"STRIPE_API_KEY" env-default:""`
	WebhookSecret   string `yaml:"webhook_secret" env:"STRIPE_WEBHOOK_SECRET" env-default:""`
	ProPrice        string `yaml:"pro_price" env:"STRIPE_PRO_PRICE" env-default:""`
	EnterprisePrice string `yaml:"enterprise_price" env:"STRIPE_ENTERPRISE_PRICE" env-default:""`
	SuccessURL      string `yaml:"success_url" env:"STRIPE_SUCCESS_URL" env-default:""`
	CancelURL       string `yaml:"cancel_url" env:"STRIPE_CANCEL_URL" env-default:""`
}

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	Listen    Listen          `yaml:"listen"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Forwarder ForwarderConfig `yaml:"forwarder"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Stripe    StripeConfig    `yaml:"stripe"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
