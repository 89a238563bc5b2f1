// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/friendswall/friendswall-go/internal/errors"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		func(s *Settings) error { return validateWebServerSettings(&s.WebServer) },
		func(s *Settings) error { return validateSecuritySettings(&s.Security) },
		func(s *Settings) error { return validateDatabaseSettings(&s.Database) },
		func(s *Settings) error { return validateMQTTSettings(&s.MQTT) },
		func(s *Settings) error { return validateFeedbackSettings(&s.Feedback) },
		func(s *Settings) error { return validateSentrySettings(&s.Sentry) },
	}

	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	var errs []string

	if _, _, err := net.SplitHostPort(settings.Listen); err != nil {
		errs = append(errs, fmt.Sprintf("invalid listen address %q: %v", settings.Listen, err))
	}

	sse := settings.SSE
	if sse.PollInterval < 10*time.Millisecond {
		errs = append(errs, fmt.Sprintf("SSE poll interval must be at least 10ms, got %s", sse.PollInterval))
	}
	if sse.KeepAlive <= 0 {
		errs = append(errs, "SSE keepalive interval must be positive")
	}
	if sse.MaxDuration < 0 {
		errs = append(errs, "SSE max duration must not be negative")
	}
	if sse.RateLimit <= 0 {
		errs = append(errs, "SSE rate limit must be greater than 0")
	}
	if sse.Burst < 1 {
		errs = append(errs, "SSE burst must be at least 1")
	}
	if sse.MaxStreams < 0 {
		errs = append(errs, "SSE max streams must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("webserver settings errors: %v", errs)
	}
	return nil
}

func validateSecuritySettings(settings *SecuritySettings) error {
	if settings.CookieName == "" {
		return errors.NewStd("security settings errors: cookie name must not be empty")
	}
	if settings.SessionMaxAge <= 0 {
		return errors.NewStd("security settings errors: session max age must be positive")
	}
	return nil
}

func validateDatabaseSettings(settings *DatabaseSettings) error {
	switch {
	case settings.SQLite.Enabled && settings.MySQL.Enabled:
		return errors.NewStd("database settings errors: enable either SQLite or MySQL, not both")
	case !settings.SQLite.Enabled && !settings.MySQL.Enabled:
		return errors.NewStd("database settings errors: no database backend enabled")
	case settings.SQLite.Enabled && settings.SQLite.Path == "":
		return errors.NewStd("database settings errors: SQLite path must not be empty")
	case settings.MySQL.Enabled && (settings.MySQL.Host == "" || settings.MySQL.Database == ""):
		return errors.NewStd("database settings errors: MySQL host and database are required")
	}
	return nil
}

func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}

	var errs []string
	if settings.Broker == "" {
		errs = append(errs, "broker URL is required")
	} else if u, err := url.Parse(settings.Broker); err != nil || u.Scheme == "" {
		errs = append(errs, fmt.Sprintf("invalid broker URL %q", settings.Broker))
	}
	if strings.TrimSpace(settings.Topic) == "" {
		errs = append(errs, "topic is required")
	}
	if settings.QoS > 2 {
		errs = append(errs, fmt.Sprintf("QoS must be 0, 1 or 2, got %d", settings.QoS))
	}

	if len(errs) > 0 {
		return fmt.Errorf("MQTT settings errors: %v", errs)
	}
	return nil
}

func validateFeedbackSettings(settings *FeedbackSettings) error {
	if settings.PageSize < 1 {
		return fmt.Errorf("feedback settings errors: page size must be at least 1, got %d", settings.PageSize)
	}
	if settings.Notify.Enabled && len(settings.Notify.URLs) == 0 {
		return errors.NewStd("feedback settings errors: notifications enabled without any URLs")
	}
	return nil
}

func validateSentrySettings(settings *SentrySettings) error {
	if settings.Enabled && settings.DSN == "" {
		return errors.NewStd("sentry settings errors: DSN is required when Sentry is enabled")
	}
	return nil
}
