package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env-default:"local"`
	Tokens     `yaml:"tokens"`
	Postgres   `yaml:"postgres"`
	RabbitMQ   `yaml:"rabbitmq"`
	Assistant  `yaml:"assistant"`
	Connector  `yaml:"connector"`
	Pipeline   `yaml:"pipeline"`
	HTTPServer `yaml:"http_server"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-required:"true"`
	Password string `yaml:"password" env-required:"true"`
	DBName   string `yaml:"dbname" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Tokens struct {
	Secret          string        `yaml:"secret" env:"TOKEN_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env-default:"30m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env-default:"720h"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env-required:"true"`
	QueueName string `yaml:"queue_name" env-default:"agent_notifications"`
}

// Assistant describes the OpenAI-compatible API the collaborator
// adapter talks to.
type Assistant struct {
	APIKey  string `yaml:"api_key" env:"ASSISTANT_API_KEY" env-required:"true"`
	BaseURL string `yaml:"base_url" env-default:"https://api.openai.com/v1"`
	Model   string `yaml:"model" env-default:"gpt-4o-mini"`
}

// Connector describes the external email-action service the assistant
// executes its tools against.
type Connector struct {
	BaseURL string        `yaml:"base_url" env-required:"true"`
	APIKey  string        `yaml:"api_key" env:"CONNECTOR_API_KEY" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env-default:"60s"`
}

type Pipeline struct {
	DefaultRecipient string `yaml:"default_recipient" env-required:"true"`
	DefaultSubject   string `yaml:"default_subject" env-default:"Sažetak emaila"`
}

func MustLoad(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist" + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config" + err.Error())
	}

	return &cfg
}
