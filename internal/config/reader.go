package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Reader loads a Config from some source. The only implementation reads
// process environment variables; a .env file is preloaded by godotenv
// during development.
type Reader interface {
	Read() (*Config, error)
}

type EnvReader struct{}

func NewEnvReader() EnvReader { return EnvReader{} }

func (EnvReader) Read() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &cfg, nil
}
