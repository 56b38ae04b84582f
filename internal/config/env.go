// Package config loads process settings from the environment.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	homedir "github.com/mitchellh/go-homedir"

	"github.com/xtding233/gacha-stage/internal/scene/obsws"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// OBS is the scene server connection.
type OBS struct {
	Host     string        `env:"OBS_HOST" envDefault:"localhost"`
	Port     int           `env:"OBS_PORT" envDefault:"4455"`
	Password string        `env:"OBS_PASSWORD"`
	Timeout  time.Duration `env:"OBS_TIMEOUT" envDefault:"5s"`
}

func (o OBS) Client() obsws.Config {
	return obsws.Config{Host: o.Host, Port: o.Port, Password: o.Password, Timeout: o.Timeout}
}

// Store is the progression database location.
type Store struct {
	DBPath string `env:"GACHA_DB_PATH"`
}

// Config is everything read from the environment.
type Config struct {
	OBS   OBS
	Store Store
}

// Load parses the environment and fills in path defaults.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Store.DBPath == "" {
		p, err := DefaultDBPath()
		if err != nil {
			return Config{}, err
		}
		cfg.Store.DBPath = p
	}
	return cfg, nil
}

// DefaultDBPath is ~/.gacha-stage/progress.db.
func DefaultDBPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, ".gacha-stage", "progress.db"), nil
}
