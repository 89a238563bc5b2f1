// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// ErrorHook is called for every built error while reporting is active.
type ErrorHook func(ee *EnhancedError)

var (
	telemetryReporter TelemetryReporter
	errorHooks        []ErrorHook
	reporterMu        sync.RWMutex
)

// SetTelemetryReporter installs the reporter used by Build. Passing nil disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	telemetryReporter = reporter
	updateActiveReporting()
}

// AddErrorHook registers a hook that observes every built error.
func AddErrorHook(hook ErrorHook) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	errorHooks = append(errorHooks, hook)
	updateActiveReporting()
}

// ClearErrorHooks removes all registered hooks.
func ClearErrorHooks() {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	errorHooks = nil
	updateActiveReporting()
}

// updateActiveReporting must be called with reporterMu held.
func updateActiveReporting() {
	active := len(errorHooks) > 0 || (telemetryReporter != nil && telemetryReporter.IsEnabled())
	hasActiveReporting.Store(active)
}

func reportToTelemetry(ee *EnhancedError) {
	reporterMu.RLock()
	reporter := telemetryReporter
	hooks := errorHooks
	reporterMu.RUnlock()

	for _, hook := range hooks {
		hook(ee)
	}

	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// InitSentry initializes the Sentry SDK and returns a reporter bound to it.
func InitSentry(dsn, environment, release string) (*SentryReporter, error) {
	if dsn == "" {
		return nil, Newf("sentry dsn is empty").
			Component("errors").
			Category(CategoryConfiguration).
			Build()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: false,
		SendDefaultPII:   false,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			event.User = sentry.User{}
			event.ServerName = ""
			return event
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sentry initialization failed: %w", err)
	}

	return NewSentryReporter(true), nil
}

// FlushSentry waits for buffered events to be delivered.
func FlushSentry(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry with privacy protection
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	scrubbedMessage := scrubMessageForPrivacy(fmt.Sprintf("[%s] %s", ee.GetCategory(), ee.GetMessage()))
	component := ee.GetComponent()

	sentry.WithScope(func(scope *sentry.Scope) {
		errorTitle := generateErrorTitle(ee)

		scope.SetTag("error_title", errorTitle)
		scope.SetTag("component", component)
		scope.SetTag("category", ee.GetCategory())
		if priority := ee.GetPriority(); priority != "" {
			scope.SetTag("priority", priority)
		}

		for key, value := range ee.GetContext() {
			scrubbedValue := value
			if strValue, ok := value.(string); ok {
				scrubbedValue = scrubMessageForPrivacy(strValue)
			}
			scope.SetContext(key, map[string]any{"value": scrubbedValue})
		}

		level := getErrorLevel(ee.Category)
		scope.SetLevel(level)
		scope.SetFingerprint([]string{errorTitle, component, ee.GetCategory()})

		event := sentry.NewEvent()
		event.Message = scrubbedMessage
		event.Level = level
		event.Timestamp = ee.GetTimestamp()
		event.Exception = []sentry.Exception{{
			Type:  errorTitle,
			Value: scrubbedMessage,
		}}

		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// generateErrorTitle creates a meaningful error title based on enhanced error context
func generateErrorTitle(ee *EnhancedError) string {
	var titleParts []string

	if component := ee.GetComponent(); component != "" && component != ComponentUnknown {
		titleParts = append(titleParts, titleCase(component))
	}

	titleParts = append(titleParts, formatCategoryForTitle(ee.Category))

	if operation, ok := ee.GetContext()["operation"].(string); ok && operation != "" {
		titleParts = append(titleParts, formatOperationForTitle(operation))
	}

	return strings.Join(titleParts, " ")
}

// formatCategoryForTitle converts error categories to human-readable titles
func formatCategoryForTitle(category ErrorCategory) string {
	switch category {
	case CategoryValidation:
		return "Validation Error"
	case CategoryDatabase:
		return "Database Error"
	case CategoryNotFound:
		return "Not Found"
	case CategoryConflict:
		return "Conflict"
	case CategoryAuthentication:
		return "Authentication Error"
	case CategoryNetwork:
		return "Network Error"
	case CategoryBroadcast:
		return "Event Stream Error"
	case CategoryIntegration:
		return "Integration Error"
	case CategoryConfiguration:
		return "Configuration Error"
	default:
		return "Error"
	}
}

// formatOperationForTitle converts operation context to human-readable format
func formatOperationForTitle(operation string) string {
	formatted := strings.NewReplacer("_", " ", "-", " ").Replace(operation)
	words := strings.Fields(formatted)
	for i, word := range words {
		words[i] = titleCase(word)
	}
	return strings.Join(words, " ")
}

// titleCase capitalizes the first letter of a string
func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// getErrorLevel returns appropriate Sentry level based on category
func getErrorLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryValidation, CategoryNotFound, CategoryConflict, CategoryAuthentication:
		return sentry.LevelInfo
	case CategoryNetwork, CategoryIntegration, CategoryTimeout, CategoryBroadcast:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

// Pre-compiled patterns for message scrubbing
var (
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	urlQueryPattern   = regexp.MustCompile(`(https?://[^\s?]+)\?[^\s]*`)
	credentialPattern = regexp.MustCompile(`(?i)(password|passwd|secret|token|api_key|apikey|auth)=[^\s&]+`)
	dsnPattern        = regexp.MustCompile(`[^\s:/@]+:[^\s:/@]+@tcp\(`)
)

// scrubMessageForPrivacy removes emails, credentials and URL query strings from a message
func scrubMessageForPrivacy(message string) string {
	scrubbed := urlQueryPattern.ReplaceAllString(message, "$1?[REDACTED]")
	scrubbed = credentialPattern.ReplaceAllString(scrubbed, "$1=[REDACTED]")
	scrubbed = dsnPattern.ReplaceAllString(scrubbed, "[CREDENTIALS_REDACTED]@tcp(")
	scrubbed = emailPattern.ReplaceAllString(scrubbed, "[EMAIL]")
	return scrubbed
}
