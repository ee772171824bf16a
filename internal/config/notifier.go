package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// NotifierConfig is the standalone configuration of the notifier
// worker. It shares the queue with the API service but nothing else.
type NotifierConfig struct {
	Env       string `yaml:"env" env-default:"local"`
	RabbitMQ  `yaml:"rabbitmq"`
	SMTPEmail `yaml:"email"`
}

type SMTPEmail struct {
	Host     string `yaml:"host" env-required:"true"`
	Port     int    `yaml:"port" env-default:"587"`
	Username string `yaml:"username" env-required:"true"`
	Password string `yaml:"password" env:"SMTP_PASSWORD" env-required:"true"`
}

func MustLoadNotifier(configPath string) *NotifierConfig {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist" + configPath)
	}

	var cfg NotifierConfig

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config" + err.Error())
	}

	return &cfg
}
