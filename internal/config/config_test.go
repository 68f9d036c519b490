// Package config provides configuration management for promptvault.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir     string
	origHomeDir string
}

func (s *ConfigSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "config-test-*")
	s.Require().NoError(err)

	// Save and override HOME
	s.origHomeDir = os.Getenv("HOME")
	os.Setenv("HOME", s.tempDir)
}

func (s *ConfigSuite) TearDownTest() {
	os.Setenv("HOME", s.origHomeDir)
	os.RemoveAll(s.tempDir)
	os.Unsetenv("PROMPTVAULT_PORT")
	os.Unsetenv("PROMPTVAULT_REDIS_ADDR")
	os.Unsetenv("PROMPTVAULT_DB_DSN")
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// TestDefault tests default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultPort, cfg.Port)
	s.Equal("sqlite", cfg.DBDriver)
	s.Equal(DefaultMaxConns, cfg.MaxConns)
	s.Equal(DefaultEnhanceLimit, cfg.EnhanceLimit.MaxRequests)
	s.Equal(DefaultEnhanceWindowSeconds, cfg.EnhanceLimit.WindowSeconds)
	s.Equal(DefaultInviteLimit, cfg.InviteLimit.MaxRequests)
	s.Equal(DefaultInviteWindowSeconds, cfg.InviteLimit.WindowSeconds)
	s.Empty(cfg.RedisAddr)
}

// TestDataDir tests data directory path.
func (s *ConfigSuite) TestDataDir() {
	dir := DataDir()
	s.Equal(filepath.Join(s.tempDir, ".promptvault"), dir)
}

func (s *ConfigSuite) TestEnsureAll() {
	s.Require().NoError(EnsureAll())

	info, err := os.Stat(DataDir())
	s.Require().NoError(err)
	s.True(info.IsDir())

	info, err = os.Stat(GuestDir())
	s.Require().NoError(err)
	s.True(info.IsDir())
}

func (s *ConfigSuite) TestLoadMissingFileUsesDefaults() {
	cfg, err := Load()
	s.Require().NoError(err)
	s.Equal(DefaultPort, cfg.Port)
}

func (s *ConfigSuite) TestLoadPartialFileBackfills() {
	s.Require().NoError(EnsureAll())
	settings := []byte("port: 9000\nredis_addr: localhost:6379\n")
	s.Require().NoError(os.WriteFile(SettingsPath(), settings, 0o600))

	cfg, err := Load()
	s.Require().NoError(err)

	s.Equal(9000, cfg.Port)
	s.Equal("localhost:6379", cfg.RedisAddr)
	// Unset fields fall back to defaults.
	s.Equal("sqlite", cfg.DBDriver)
	s.Equal(DefaultEnhanceLimit, cfg.EnhanceLimit.MaxRequests)
}

func (s *ConfigSuite) TestLoadMalformedFile() {
	s.Require().NoError(EnsureAll())
	s.Require().NoError(os.WriteFile(SettingsPath(), []byte("port: [not a number"), 0o600))

	_, err := Load()
	s.Error(err)
}

func (s *ConfigSuite) TestEnvOverrides() {
	os.Setenv("PROMPTVAULT_PORT", "8088")
	os.Setenv("PROMPTVAULT_DB_DSN", "host=db user=pv dbname=pv")

	cfg, err := Load()
	s.Require().NoError(err)

	s.Equal(8088, cfg.Port)
	s.Equal("postgres", cfg.DBDriver, "a DSN override selects the postgres driver")
	s.Equal("host=db user=pv dbname=pv", cfg.DBDSN)
}

func (s *ConfigSuite) TestSaveRoundTrip() {
	cfg := Default()
	cfg.Port = 9999
	cfg.Tokens = []TokenEntry{{Token: "t", UserID: "u", Email: "u@example.com"}}
	s.Require().NoError(Save(cfg))

	loaded, err := Load()
	s.Require().NoError(err)
	s.Equal(9999, loaded.Port)
	s.Require().Len(loaded.Tokens, 1)
	s.Equal("u", loaded.Tokens[0].UserID)
}
