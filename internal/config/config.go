package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration, loaded from environment variables.
type Config struct {
	DBSource       string `env:"DB_SOURCE,required,notEmpty"`
	Port           string `env:"SERVER_PORT" envDefault:"8080"`
	Env            string `env:"ENVIRONMENT" envDefault:"development"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	// AMQPURL enables the RabbitMQ notification emitter; when empty,
	// events go to the process log instead.
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"paycore.events"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
