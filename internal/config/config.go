package config

import (
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Firebase FirebaseConfig
	Razorpay RazorpayConfig
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
}

type DBConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"3306"`
	User     string `env:"DB_USER" envDefault:"appuser"`
	Password string `env:"DB_PASSWORD" envDefault:"apppassword"`
	DBName   string `env:"DB_NAME" envDefault:"termivoxed_billing"`
}

type FirebaseConfig struct {
	ProjectID       string `env:"FIREBASE_PROJECT_ID,required"`
	CredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`
}

type RazorpayConfig struct {
	KeyID         string `env:"RAZORPAY_KEY_ID,required"`
	KeySecret     string `env:"RAZORPAY_KEY_SECRET,required"`
	WebhookSecret string `env:"RAZORPAY_WEBHOOK_SECRET,required"`
}

func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

var dotenvOnce sync.Once

// Load reads the process environment into a Config. A local .env file is
// picked up once if present. The returned Config is loaded at startup and
// never mutated afterwards.
func Load() (*Config, error) {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}
