package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"

	"medchain_go/utils"
)

func init() {
	utils.InitLogger(false, true)
}

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MEDCHAIN_CONFIG", "MEDCHAIN_DIFFICULTY", "MEDCHAIN_MAX_MINING_ITERATIONS", "MEDCHAIN_AUTO_SEAL",
		"API_PORT", "DATA_DIR", "ARCHIVE_ENABLED", "LOG_DIR", "LOG_FILE", "LOG_LEVEL", "VERBOSE",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medchain.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleConfig = `
[ledger]
difficulty = 3
max_mining_iterations = 1000
auto_seal_spec = "@every 5s"

[server]
port = 8080

[log]
path = "/var/log/medchain"
file = "medchain.log"
level = "warn"
verbose = true

[archive]
enabled = true
data_dir = "/var/lib/medchain"
`

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	assert.Equal(t, err, nil)
	assert.Equal(t, cfg.Ledger.Difficulty, 2)
	assert.Equal(t, cfg.Server.Port, 3002)
	assert.Equal(t, cfg.Archive.Enabled, false)
	assert.Equal(t, cfg.Demo, false)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, sampleConfig)

	cfg, err := Load([]string{"-config", path})
	assert.Equal(t, err, nil)
	assert.Equal(t, cfg.Ledger.Difficulty, 3)
	assert.Equal(t, cfg.Ledger.MaxMiningIterations, uint64(1000))
	assert.Equal(t, cfg.Ledger.AutoSealSpec, "@every 5s")
	assert.Equal(t, cfg.Server.Port, 8080)
	assert.Equal(t, cfg.Log.Path, "/var/log/medchain")
	assert.Equal(t, cfg.Log.File, "medchain.log")
	assert.Equal(t, cfg.Log.Level, "warn")
	assert.Equal(t, cfg.Log.Verbose, true)
	assert.Equal(t, cfg.Archive.Enabled, true)
	assert.Equal(t, cfg.Archive.DataDir, "/var/lib/medchain")

	settings := cfg.LedgerSettings()
	assert.Equal(t, settings.Difficulty, 3)
	assert.Equal(t, settings.MaxMiningIterations, uint64(1000))
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, sampleConfig)
	t.Setenv("MEDCHAIN_CONFIG", path)
	t.Setenv("MEDCHAIN_DIFFICULTY", "4")
	t.Setenv("API_PORT", "9090")

	cfg, err := Load([]string{"-port", "7070", "-demo"})
	assert.Equal(t, err, nil)
	assert.Equal(t, cfg.Ledger.Difficulty, 4)
	assert.Equal(t, cfg.Server.Port, 7070)
	assert.Equal(t, cfg.Ledger.AutoSealSpec, "@every 5s")
	assert.Equal(t, cfg.Demo, true)
}

func TestLoad_FlagZeroOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, sampleConfig)

	cfg, err := Load([]string{"-config", path, "-difficulty", "0", "-archive=false"})
	assert.Equal(t, err, nil)
	assert.Equal(t, cfg.Ledger.Difficulty, 0)
	assert.Equal(t, cfg.Archive.Enabled, false)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"MissingExplicitFile", []string{"-config", filepath.Join(os.TempDir(), "does-not-exist.toml")}},
		{"NegativeDifficulty", []string{"-difficulty", "-1"}},
		{"DifficultyTooHigh", []string{"-difficulty", "65"}},
		{"BadPort", []string{"-port", "70000"}},
		{"UnknownFlag", []string{"-nope"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(tc.args)
			assert.NotEqual(t, err, nil)
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[ledger\ndifficulty = ")

	_, err := Load([]string{"-config", path})
	assert.NotEqual(t, err, nil)
}

func TestApplyEnv_IgnoresInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEDCHAIN_DIFFICULTY", "hard")
	t.Setenv("ARCHIVE_ENABLED", "1")
	t.Setenv("LOG_FILE", "medchain.log")

	cfg := Default()
	ApplyEnv(cfg)
	assert.Equal(t, cfg.Ledger.Difficulty, 2)
	assert.Equal(t, cfg.Archive.Enabled, true)
	assert.Equal(t, cfg.Log.File, "medchain.log")
}

func TestValidate_ArchiveNeedsDataDir(t *testing.T) {
	cfg := Default()
	cfg.Archive.Enabled = true
	cfg.Archive.DataDir = ""
	assert.NotEqual(t, cfg.Validate(), nil)
}
