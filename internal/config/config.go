package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/viper"

	"github.com/xdm-project/xdm-updater/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Setting keys.
const (
	KeyAppPath           = "app_path"
	KeyPluginInstallPath = "plugin_install_path"
	KeyTempPath          = "temp_path"
	KeyExtraPluginPath   = "extra_plugin_path"
	KeyRepositoriesFile  = "repositories_file"
	KeyCollisionPolicy   = "collision_policy"
	KeyHTTPTimeout       = "http_timeout"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
)

// Keys lists every supported setting.
var Keys = []string{
	KeyAppPath,
	KeyPluginInstallPath,
	KeyTempPath,
	KeyExtraPluginPath,
	KeyRepositoriesFile,
	KeyCollisionPolicy,
	KeyHTTPTimeout,
	KeyLogLevel,
	KeyLogFormat,
}

// ErrUnknownKey is returned by Set for a key not in Keys.
var ErrUnknownKey = errors.New("unknown config key")

// Settings is a typed snapshot of the configuration.
type Settings struct {
	AppPath           string
	PluginInstallPath string
	TempPath          string
	ExtraPluginPath   string
	RepositoriesFile  string
	CollisionPolicy   string
	HTTPTimeout       time.Duration
	LogLevel          string
	LogFormat         string
}

// Dir returns the path to the config directory (~/.xdm/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.xdm/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

func setDefaults() {
	dir := Dir()
	viper.SetDefault(KeyAppPath, ".")
	viper.SetDefault(KeyPluginInstallPath, filepath.Join(dir, "plugins"))
	viper.SetDefault(KeyTempPath, filepath.Join(dir, "tmp"))
	viper.SetDefault(KeyExtraPluginPath, "")
	viper.SetDefault(KeyRepositoriesFile, filepath.Join(dir, "repositories.yaml"))
	viper.SetDefault(KeyCollisionPolicy, "overwrite")
	viper.SetDefault(KeyHTTPTimeout, "20s")
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyLogFormat, "console")
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	setDefaults()
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Current returns the loaded settings.
func Current() Settings {
	return Settings{
		AppPath:           viper.GetString(KeyAppPath),
		PluginInstallPath: viper.GetString(KeyPluginInstallPath),
		TempPath:          viper.GetString(KeyTempPath),
		ExtraPluginPath:   viper.GetString(KeyExtraPluginPath),
		RepositoriesFile:  viper.GetString(KeyRepositoriesFile),
		CollisionPolicy:   viper.GetString(KeyCollisionPolicy),
		HTTPTimeout:       viper.GetDuration(KeyHTTPTimeout),
		LogLevel:          viper.GetString(KeyLogLevel),
		LogFormat:         viper.GetString(KeyLogFormat),
	}
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if !slices.Contains(Keys, key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if key == KeyHTTPTimeout {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
