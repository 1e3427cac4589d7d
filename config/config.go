// Package config loads application settings from defaults, a TOML file, a .env
// file, environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"medchain_go/blockchain"
	"medchain_go/ledger"
	"medchain_go/utils"
)

// DefaultConfigFile is read when no -config flag or MEDCHAIN_CONFIG is given.
const DefaultConfigFile = "config.toml"

type LedgerConfig struct {
	Difficulty          int    `toml:"difficulty"`
	MaxMiningIterations uint64 `toml:"max_mining_iterations"`
	AutoSealSpec        string `toml:"auto_seal_spec"`
}

type ServerConfig struct {
	Port int `toml:"port"`
}

type ArchiveConfig struct {
	Enabled bool   `toml:"enabled"`
	DataDir string `toml:"data_dir"`
}

// AppConfig holds all startup configurations
type AppConfig struct {
	Ledger  LedgerConfig    `toml:"ledger"`
	Server  ServerConfig    `toml:"server"`
	Log     utils.LogConfig `toml:"log"`
	Archive ArchiveConfig   `toml:"archive"`

	// Run modes, command line only
	Demo          bool `toml:"-"`
	VerifyArchive bool `toml:"-"`
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Ledger: LedgerConfig{
			Difficulty:          blockchain.DefaultDifficulty,
			MaxMiningIterations: blockchain.DefaultMaxMiningIterations,
		},
		Server:  ServerConfig{Port: 3002},
		Log:     utils.LogConfig{Path: "logs", Level: "info"},
		Archive: ArchiveConfig{DataDir: "data"},
	}
}

// LedgerSettings converts the ledger section for ledger.New.
func (c *AppConfig) LedgerSettings() ledger.Config {
	return ledger.Config{
		Difficulty:          c.Ledger.Difficulty,
		MaxMiningIterations: c.Ledger.MaxMiningIterations,
	}
}

// Validate rejects settings the ledger or server cannot run with.
func (c *AppConfig) Validate() error {
	if c.Ledger.Difficulty < 0 || c.Ledger.Difficulty > blockchain.HashLength {
		return fmt.Errorf("difficulty must be between 0 and %d, got %d", blockchain.HashLength, c.Ledger.Difficulty)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.Server.Port)
	}
	if (c.Archive.Enabled || c.VerifyArchive) && c.Archive.DataDir == "" {
		return errors.New("archive data directory must be set")
	}
	return nil
}

// Load builds the configuration for the given command-line arguments.
func Load(args []string) (*AppConfig, error) {
	fs := flag.NewFlagSet("medchain", flag.ContinueOnError)
	configFile := fs.String("config", "", "Path to the TOML configuration file")
	difficulty := fs.Int("difficulty", 0, "Number of leading zeros required in block hashes")
	maxIter := fs.Uint64("max-iterations", 0, "Maximum nonces tried per block")
	autoSeal := fs.String("autoseal", "", "Cron spec for automatic sealing, e.g. @every 10s")
	port := fs.Int("port", 0, "Port for the HTTP API")
	dataDir := fs.String("datadir", "", "Directory for the block archive")
	archive := fs.Bool("archive", false, "Archive sealed blocks to LevelDB")
	verbose := fs.Bool("verbose", false, "Enable detailed logging")
	demo := fs.Bool("demo", false, "Run the drug batch demo and exit")
	verifyArchive := fs.Bool("verify-archive", false, "Verify the block archive and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	LoadEnvFile()

	cfg := Default()
	path := *configFile
	if path == "" {
		path = os.Getenv("MEDCHAIN_CONFIG")
	}
	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}
	if err := LoadFile(path, cfg, explicit); err != nil {
		return nil, err
	}

	ApplyEnv(cfg)

	// Flags given on the command line win over everything else.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "difficulty":
			cfg.Ledger.Difficulty = *difficulty
		case "max-iterations":
			cfg.Ledger.MaxMiningIterations = *maxIter
		case "autoseal":
			cfg.Ledger.AutoSealSpec = *autoSeal
		case "port":
			cfg.Server.Port = *port
		case "datadir":
			cfg.Archive.DataDir = *dataDir
		case "archive":
			cfg.Archive.Enabled = *archive
		case "verbose":
			cfg.Log.Verbose = *verbose
		}
	})
	cfg.Demo = *demo
	cfg.VerifyArchive = *verifyArchive

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes a TOML file into cfg. A missing file is only an error when
// required is set.
func LoadFile(path string, cfg *AppConfig, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

// LoadEnvFile loads .env.test, or else .env, into the process environment.
// Variables already set are not overridden.
func LoadEnvFile() {
	for _, name := range []string{".env.test", ".env"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			utils.LogWarn("Error loading %s file: %v", name, err)
			return
		}
		utils.LogDebug("Loaded %s file", name)
		return
	}
}

// ApplyEnv overrides cfg with the environment variables that are set.
func ApplyEnv(cfg *AppConfig) {
	cfg.Ledger.Difficulty = getEnvInt("MEDCHAIN_DIFFICULTY", cfg.Ledger.Difficulty)
	cfg.Ledger.MaxMiningIterations = getEnvUint("MEDCHAIN_MAX_MINING_ITERATIONS", cfg.Ledger.MaxMiningIterations)
	cfg.Ledger.AutoSealSpec = getEnvString("MEDCHAIN_AUTO_SEAL", cfg.Ledger.AutoSealSpec)
	cfg.Server.Port = getEnvInt("API_PORT", cfg.Server.Port)
	cfg.Archive.DataDir = getEnvString("DATA_DIR", cfg.Archive.DataDir)
	cfg.Archive.Enabled = getEnvBool("ARCHIVE_ENABLED", cfg.Archive.Enabled)
	cfg.Log.Path = getEnvString("LOG_DIR", cfg.Log.Path)
	cfg.Log.File = getEnvString("LOG_FILE", cfg.Log.File)
	cfg.Log.Level = getEnvString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Verbose = getEnvBool("VERBOSE", cfg.Log.Verbose)
}

func getEnvString(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	valInt, err := strconv.Atoi(valStr)
	if err != nil {
		utils.LogWarn("Invalid integer value for %s: %s. Using %d.", key, valStr, defaultValue)
		return defaultValue
	}
	return valInt
}

func getEnvUint(key string, defaultValue uint64) uint64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.ParseUint(valStr, 10, 64)
	if err != nil {
		utils.LogWarn("Invalid unsigned value for %s: %s. Using %d.", key, valStr, defaultValue)
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "true", "1":
		return true
	case "false", "0":
		return false
	default:
		return defaultValue
	}
}
