// env.go - Environment variable configuration and validation for FriendsWall
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "FRIENDSWALL"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "FRIENDSWALL_DEBUG", validateEnvBool},
		{"log.level", "FRIENDSWALL_LOG_LEVEL", validateEnvLogLevel},
		{"log.path", "FRIENDSWALL_LOG_PATH", nil},

		// Web server
		{"webserver.listen", "FRIENDSWALL_WEBSERVER_LISTEN", nil},
		{"webserver.sse.pollinterval", "FRIENDSWALL_WEBSERVER_SSE_POLLINTERVAL", validateEnvDuration},
		{"webserver.sse.keepalive", "FRIENDSWALL_WEBSERVER_SSE_KEEPALIVE", validateEnvDuration},
		{"webserver.sse.ratelimit", "FRIENDSWALL_WEBSERVER_SSE_RATELIMIT", validateEnvPositiveFloat},

		// Security
		{"security.sessionsecret", "FRIENDSWALL_SECURITY_SESSIONSECRET", nil},
		{"security.securecookie", "FRIENDSWALL_SECURITY_SECURECOOKIE", validateEnvBool},

		// Database
		{"database.sqlite.enabled", "FRIENDSWALL_DATABASE_SQLITE_ENABLED", validateEnvBool},
		{"database.sqlite.path", "FRIENDSWALL_DATABASE_SQLITE_PATH", nil},
		{"database.mysql.enabled", "FRIENDSWALL_DATABASE_MYSQL_ENABLED", validateEnvBool},
		{"database.mysql.username", "FRIENDSWALL_DATABASE_MYSQL_USERNAME", nil},
		{"database.mysql.password", "FRIENDSWALL_DATABASE_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "FRIENDSWALL_DATABASE_MYSQL_DATABASE", nil},
		{"database.mysql.host", "FRIENDSWALL_DATABASE_MYSQL_HOST", nil},
		{"database.mysql.port", "FRIENDSWALL_DATABASE_MYSQL_PORT", validateEnvPort},

		// Side channels
		{"mqtt.enabled", "FRIENDSWALL_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "FRIENDSWALL_MQTT_BROKER", validateEnvURL},
		{"mqtt.username", "FRIENDSWALL_MQTT_USERNAME", nil},
		{"mqtt.password", "FRIENDSWALL_MQTT_PASSWORD", nil},
		{"sentry.enabled", "FRIENDSWALL_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "FRIENDSWALL_SENTRY_DSN", validateEnvURL},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be a boolean (true/false, 1/0)")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("must be one of trace, debug, info, warn, error")
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

func validateEnvPositiveFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number: %w", err)
	}
	if f <= 0 {
		return fmt.Errorf("must be greater than 0, got %g", f)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include scheme and host")
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return bindEnvVars()
}
