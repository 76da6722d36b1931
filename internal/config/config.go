// Package config parses process configuration from flags, with
// environment variables (optionally loaded from a .env file) as defaults.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"token-registry/internal/chain"
	"token-registry/internal/domain"
)

// Config is the configuration shared by the binaries.
type Config struct {
	PostgresDSN    string
	UseMemory      bool
	Migrate        bool
	SeedFile       string
	AddressBookDir string
	Chains         []domain.ChainID
	RelayEndpoint  string
	MetricsAddr    string
	ReadyOnStart   bool
	LogLevel       string
	ShutdownGrace  time.Duration
}

// Parse parses args (without the program name) for the binary name.
// extra registers binary-specific flags on the same set.
func Parse(name string, args []string, extra ...func(*pflag.FlagSet)) (*Config, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	for _, register := range extra {
		register(fs)
	}

	cfg := &Config{}
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	fs.BoolVar(&cfg.UseMemory, "use-memory", envBool("USE_MEMORY"), "Use in-memory listing stores instead of PostgreSQL")
	fs.BoolVar(&cfg.Migrate, "migrate", true, "Apply embedded PostgreSQL migrations on start")
	fs.StringVar(&cfg.SeedFile, "seed-file", os.Getenv("SEED_FILE"), "JSON file of vaults and boosts loaded on start")
	fs.StringVar(&cfg.AddressBookDir, "addressbook-dir", os.Getenv("ADDRESSBOOK_DIR"), "Directory of <chain>.json curated datasets (default: embedded)")
	chains := fs.String("chains", os.Getenv("CHAINS"), "Comma-separated chains to track (default: all supported)")
	fs.StringVar(&cfg.RelayEndpoint, "relay-endpoint", os.Getenv("RELAY_WS_ENDPOINT"), "Upstream WebSocket feed of listing change events")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", envOr("METRICS_ADDR", ":9090"), "HTTP address for health, metrics and status")
	fs.BoolVar(&cfg.ReadyOnStart, "ready-on-start", envBool("READY_ON_START"), "Treat listings as ready at startup instead of waiting for upstream signals")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	fs.DurationVar(&cfg.ShutdownGrace, "shutdown-grace", 30*time.Second, "Time allowed for graceful shutdown")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if cfg.Chains, err = chain.ParseList(*chains); err != nil {
		return nil, errors.Wrap(err, "--chains")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks flag combinations.
func (c *Config) Validate() error {
	if !c.UseMemory && c.PostgresDSN == "" {
		return errors.New("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}
	if len(c.Chains) == 0 {
		return errors.New("no chains configured")
	}
	return nil
}

// LoadEnvFile loads environment variables from path if it exists.
// Variables already set in the environment are not overridden.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
