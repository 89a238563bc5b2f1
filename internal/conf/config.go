// config.go: This file contains the configuration for the FriendsWall server. It defines the settings struct and functions to load and save the settings.
package conf

import (
	"crypto/rand"
	"embed"
	"encoding/base64"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/friendswall/friendswall-go/internal/errors"
	"github.com/friendswall/friendswall-go/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// LogSettings controls the application logger.
type LogSettings struct {
	Level    string // trace, debug, info, warn or error
	Path     string // log file path, empty to log to stdout
	Timezone string // timezone for log timestamps
	JSON     bool   // JSON output on stdout
}

// SSESettings controls the event stream endpoint.
type SSESettings struct {
	PollInterval  time.Duration // delay between informer ticks
	KeepAlive     time.Duration // interval between keepalive comments
	MaxDuration   time.Duration // stream lifetime before the client is asked to reconnect, 0 for unlimited
	RetryInterval time.Duration // reconnect delay advertised to clients
	RateLimit     float64       // new streams per second per client IP
	Burst         int           // rate limiter burst
	MaxStreams    int           // global cap on concurrent streams, 0 for unlimited
}

// WebServerSettings contains settings for the HTTP server.
type WebServerSettings struct {
	Debug          bool          // true to enable request debug logging
	Listen         string        // listen address, e.g. ":8080"
	ReadTimeout    time.Duration // request read timeout
	IdleTimeout    time.Duration // keep-alive idle timeout
	BodyLimit      string        // maximum request body size, echo syntax ("2M")
	AllowedOrigins []string      // CORS origins allowed to send the session cookie, "*" for any origin without it
	UserCacheTTL   time.Duration // how long resolved user snapshots are cached
	SSE            SSESettings
}

// SecuritySettings contains cookie session settings.
type SecuritySettings struct {
	SessionSecret     string        // secret for session cookie signing, ${VAR} references are expanded
	SessionSecretFile string        // file holding the session secret, overrides SessionSecret
	CookieName        string        // session cookie name
	SecureCookie      bool          // true to set the Secure flag on the cookie
	SessionMaxAge     time.Duration // session lifetime
}

// SQLiteSettings contains settings for the SQLite store.
type SQLiteSettings struct {
	Enabled bool   // true to use SQLite
	Path    string // path to the database file
}

// MySQLSettings contains settings for the MySQL store.
type MySQLSettings struct {
	Enabled      bool   // true to use MySQL
	Username     string // database user
	Password     string // database password, ${VAR} references are expanded
	PasswordFile string // file holding the password, overrides Password
	Database     string // database name
	Host         string // database host
	Port         string // database port
}

// DatabaseSettings selects and configures the relational store.
type DatabaseSettings struct {
	Debug         bool          // true to log SQL at trace level
	SlowThreshold time.Duration // queries slower than this are logged as warnings
	SQLite        SQLiteSettings
	MySQL         MySQLSettings
}

// MQTTSettings contains settings for friend-request fan-out over MQTT.
type MQTTSettings struct {
	Enabled      bool   // true to enable MQTT publishing
	Debug        bool   // true to log every publish
	Broker       string // broker URL, e.g. tcp://localhost:1883
	Topic        string // topic prefix
	Username     string // broker user
	Password     string // broker password, ${VAR} references are expanded
	PasswordFile string // file holding the password, overrides Password
	ClientID     string // client id, generated when empty
	QoS          byte   // publish QoS (0, 1 or 2)
	Retain       bool   // retain published messages
}

// NotifySettings contains shoutrrr targets for operator alerts.
type NotifySettings struct {
	Enabled bool          // true to send notifications
	URLs    []string      // shoutrrr service URLs
	Timeout time.Duration // per-send timeout
}

// FeedbackSettings contains settings for the help/feedback form.
type FeedbackSettings struct {
	PageSize int // rows per page when listing feedback
	Notify   NotifySettings
}

// SentrySettings contains error telemetry settings.
type SentrySettings struct {
	Enabled     bool   // true to report errors to Sentry
	DSN         string // Sentry DSN
	Environment string // environment tag
}

// MetricsSettings contains Prometheus settings.
type MetricsSettings struct {
	Enabled bool   // true to expose the metrics endpoint
	Path    string // metrics endpoint path
}

// Settings contains all configuration options for the FriendsWall server.
type Settings struct {
	Debug bool // true to enable debug mode

	Log       LogSettings
	WebServer WebServerSettings
	Security  SecuritySettings
	Database  DatabaseSettings
	MQTT      MQTTSettings
	Feedback  FeedbackSettings
	Sentry    SentrySettings
	Metrics   MetricsSettings

	// Runtime values, not stored in config file
	ConfigFile string `yaml:"-" mapstructure:"-"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	configFileFlag   string
)

// SetConfigFile makes Load read path instead of searching the default locations.
func SetConfigFile(path string) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	configFileFlag = path
}

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	settings.ConfigFile = viper.ConfigFileUsed()

	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		return err
	}

	if configFileFlag != "" {
		viper.SetConfigFile(configFileFlag)
		if _, err := os.Stat(configFileFlag); errors.Is(err, fs.ErrNotExist) {
			return createDefaultConfig(configFileFlag)
		}
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file: %w", err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			userDir, err := UserConfigDir()
			if err != nil {
				return err
			}
			return createDefaultConfig(filepath.Join(userDir, "config.yaml"))
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to configPath and reads it back.
func createDefaultConfig(configPath string) error {
	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	viper.SetConfigFile(configPath)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading default config file: %w", err)
	}

	// The shipped config has no session secret; generate one per installation.
	if viper.GetString("security.sessionsecret") == "" {
		viper.Set("security.sessionsecret", GenerateRandomSecret())
		if err := viper.WriteConfig(); err != nil {
			return fmt.Errorf("error persisting session secret: %w", err)
		}
	}

	return nil
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath atomically.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write to a sibling temp file first so a crash never leaves a truncated config.
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}

// GenerateRandomSecret generates a URL-safe base64 encoded random string
// suitable for use as a session secret. The output is 43 characters long,
// providing 256 bits of entropy.
func GenerateRandomSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}

// LoggerConfig returns the logger configuration; Debug raises the level to at least debug.
func (s *Settings) LoggerConfig() logger.Config {
	level := s.Log.Level
	if s.Debug && logger.ParseLevel(level) != logger.LogLevelTrace {
		level = string(logger.LogLevelDebug)
	}
	return logger.Config{
		Level:    level,
		Timezone: s.Log.Timezone,
		FilePath: s.Log.Path,
		JSON:     s.Log.JSON,
	}
}
