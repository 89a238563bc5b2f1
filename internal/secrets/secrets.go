// Package secrets resolves credentials referenced from the config file:
// ${VAR} expansion for values and file-based secrets (Docker or Kubernetes
// mounts) for the *file settings.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/friendswall/friendswall-go/internal/errors"
)

// maxSecretFileSize limits secret file reads; secrets are tokens and passwords.
const maxSecretFileSize = 64 * 1024

// ExpandString expands ${VAR} and ${VAR:-default} references in s.
// A referenced variable that is unset and has no default is an error.
func ExpandString(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if value := os.Getenv(name); value != "" {
			return value
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})

	if len(missing) > 0 {
		return "", errors.Newf("missing required environment variable(s): %s", strings.Join(missing, ", ")).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return expanded, nil
}

// ReadFile reads a secret from path, trimming trailing newlines.
// insecure reports that group or other users can access the file.
func ReadFile(path string) (secret string, insecure bool, err error) {
	if path == "" {
		return "", false, fileError("secret file path is empty", path)
	}

	cleanPath := filepath.Clean(path)
	info, err := os.Stat(cleanPath)
	if err != nil {
		return "", false, fileError(fmt.Sprintf("failed to stat secret file: %v", err), cleanPath)
	}
	if !info.Mode().IsRegular() {
		return "", false, fileError("secret path is not a regular file", cleanPath)
	}
	if info.Size() > maxSecretFileSize {
		return "", false, fileError(fmt.Sprintf("secret file larger than %d bytes", maxSecretFileSize), cleanPath)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", false, fileError(fmt.Sprintf("failed to read secret file: %v", err), cleanPath)
	}

	secret = strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", false, fileError("secret file is empty", cleanPath)
	}
	return secret, info.Mode().Perm()&0o077 != 0, nil
}

// Resolve returns the secret from filePath when set, otherwise value with
// environment references expanded.
func Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		secret, _, err := ReadFile(filePath)
		return secret, err
	}
	return ExpandString(value)
}

func fileError(msg, path string) error {
	return errors.Newf("%s", msg).
		Component("secrets").
		Category(errors.CategoryConfiguration).
		Context("path", path).
		Build()
}
