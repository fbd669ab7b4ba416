package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrParsing = errors.New("config: parse environment")
	ErrInvalid = errors.New("config: invalid value")
)

const envPrefix = "BARRAGE_"

// Config holds host-loop settings. Encounter content is configured through prefab
// YAML, not here.
type Config struct {
	TPS       int    `env:"TPS" envDefault:"60"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	Encounter string `env:"ENCOUNTER" envDefault:"encounter.yaml"`
	Seed      uint64 `env:"SEED" envDefault:"0"`
	Ticks     int    `env:"TICKS" envDefault:"1800"`
	Watch     bool   `env:"WATCH" envDefault:"false"`
	PoolSize  int    `env:"POOL_SIZE" envDefault:"0"`
}

// Load reads .env files (default ".env"; missing files are skipped) and then the
// BARRAGE_* environment. Variables already set in the process win over .env values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.Join(ErrParsing, fmt.Errorf("load %s: %w", f, err))
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, errors.Join(ErrParsing, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func MustLoad(envFiles ...string) Config {
	cfg, err := Load(envFiles...)
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c Config) Validate() error {
	if c.TPS <= 0 {
		return fmt.Errorf("%w: TPS must be positive, got %d", ErrInvalid, c.TPS)
	}
	if c.Ticks < 0 {
		return fmt.Errorf("%w: TICKS must not be negative, got %d", ErrInvalid, c.Ticks)
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("%w: POOL_SIZE must not be negative, got %d", ErrInvalid, c.PoolSize)
	}
	return nil
}

// DT is the fixed frame step in seconds.
func (c Config) DT() float64 {
	return 1 / float64(c.TPS)
}

func (c Config) FrameDuration() time.Duration {
	return time.Second / time.Duration(c.TPS)
}

// SeedOrNow returns Seed, or the current time when Seed is zero.
func (c Config) SeedOrNow() uint64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return uint64(time.Now().UnixNano())
}
