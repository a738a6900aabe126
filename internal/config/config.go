package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`

	UploadDir      string `envconfig:"UPLOAD_DIR" default:"./uploads"`
	UploadMaxBytes int64  `envconfig:"UPLOAD_MAX_BYTES" default:"10485760"` // 10 MB
	UploadsEnabled bool   `envconfig:"UPLOADS_ENABLED" default:"true"`

	TokenSecret string        `envconfig:"TOKEN_SECRET" default:"dev-secret-change-me"`
	TokenTTL    time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load reads an optional .env file, then the environment. Missing keys fall
// back to the struct defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
