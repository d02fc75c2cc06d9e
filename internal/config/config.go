package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config search paths, in order of precedence:
	// 1. Walk up from CWD to find a project .phaseq/ directory, so
	//    commands work from subdirectories.
	cwd, err := os.Getwd()
	if err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			phaseqDir := filepath.Join(dir, ".phaseq")
			if info, err := os.Stat(phaseqDir); err == nil && info.IsDir() {
				v.AddConfigPath(phaseqDir)
				break
			}
		}
	}

	// 2. User config directory (~/.config/phaseq/)
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "phaseq"))
	}

	// 3. Home directory (~/.phaseq/)
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".phaseq"))
	}

	// Environment variables take precedence over the config file,
	// e.g. PHASEQ_DB, PHASEQ_POLL_INTERVAL, PHASEQ_LISTEN.
	v.SetEnvPrefix("PHASEQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("db", "")
	v.SetDefault("json", false)
	v.SetDefault("poll-interval", "10s")
	v.SetDefault("listen", "127.0.0.1:7410")
	v.SetDefault("log-file", "")
	v.SetDefault("executor-url", "")
	v.SetDefault("ticket-url", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is fine, defaults apply.
	}

	return nil
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// DatabasePath resolves the database location: explicit config first,
// then the project .phaseq directory, then ~/.phaseq.
func DatabasePath() string {
	if db := GetString("db"); db != "" {
		return db
	}
	cwd, err := os.Getwd()
	if err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			phaseqDir := filepath.Join(dir, ".phaseq")
			if info, err := os.Stat(phaseqDir); err == nil && info.IsDir() {
				return filepath.Join(phaseqDir, "phaseq.db")
			}
		}
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "phaseq.db"
	}
	return filepath.Join(homeDir, ".phaseq", "phaseq.db")
}
