package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"
)

type Config struct {
	Server Server `yaml:"server"`
	Layout Layout `yaml:"layout"`
}

type Server struct {
	Listen          string `yaml:"listen"`
	PostgresDsn     string `yaml:"postgresDsn"`
	SqlitePath      string `yaml:"sqlitePath"`
	RedisAddr       string `yaml:"redisAddr"`
	RedisDB         int    `yaml:"redisDB"`
	EnableTrace     bool   `yaml:"enableTrace"`
	TraceEndpoint   string `yaml:"traceEndpoint"`
	ResolveCacheTTL string `yaml:"resolveCacheTTL"` // e.g. "30s"; empty disables the cache
}

// Layout configures the headless layout client.
type Layout struct {
	APIBase         string  `yaml:"apiBase"`
	Store           string  `yaml:"store"` // memory, redis, memcache
	StorePath       string  `yaml:"storePath"`
	StoreAddr       string  `yaml:"storeAddr"`
	TickBudget      int     `yaml:"tickBudget"`
	EnergyThreshold float64 `yaml:"energyThreshold"`
}

func Default() Config {
	return Config{
		Server: Server{
			Listen:          ":8000",
			ResolveCacheTTL: "30s",
		},
		Layout: Layout{
			APIBase:         "http://localhost:8000",
			Store:           "memory",
			TickBudget:      300,
			EnergyThreshold: 0.01,
		},
	}
}

// Load reads a yaml file over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	config := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, err
		}
		defer file.Close()

		err = yaml.NewDecoder(file).Decode(&config)
		if err != nil {
			return Config{}, errors.Wrapf(err, "decode %s", path)
		}
	}

	if v := os.Getenv("QUESTLOG_POSTGRES_DSN"); v != "" {
		config.Server.PostgresDsn = v
	}
	if v := os.Getenv("QUESTLOG_REDIS_ADDR"); v != "" {
		config.Server.RedisAddr = v
	}
	if v := os.Getenv("QUESTLOG_LISTEN"); v != "" {
		config.Server.Listen = v
	}

	if _, err := config.Server.CacheTTL(); err != nil {
		return Config{}, err
	}
	switch config.Layout.Store {
	case "memory", "redis", "memcache":
	default:
		return Config{}, errors.Errorf("unknown layout store %q", config.Layout.Store)
	}

	return config, nil
}

func (s Server) CacheTTL() (time.Duration, error) {
	if s.ResolveCacheTTL == "" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(s.ResolveCacheTTL)
	if err != nil {
		return 0, errors.Wrap(err, "resolveCacheTTL")
	}
	return ttl, nil
}
