// conf/utils.go various util functions for configuration package
package conf

import (
	"os"
	"path/filepath"

	"github.com/friendswall/friendswall-go/internal/errors"
)

const appDirName = "friendswall"

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order:
// the working directory, the user config directory and the system directory.
// If a config.yaml file is found in any of the paths, only that path is returned.
func GetDefaultConfigPaths() ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-working-directory").
			Build()
	}

	userDir, err := UserConfigDir()
	if err != nil {
		return nil, err
	}

	configPaths := []string{
		cwd,
		userDir,
		filepath.Join("/etc", appDirName),
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}

	return configPaths, nil
}

// UserConfigDir returns ~/.config/friendswall.
func UserConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}
	return filepath.Join(homeDir, ".config", appDirName), nil
}

// FindConfigFile locates the configuration file.
func FindConfigFile() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "find-config-paths").
			Build()
	}

	for _, path := range configPaths {
		configFilePath := filepath.Join(path, "config.yaml")
		if _, err := os.Stat(configFilePath); err == nil {
			return configFilePath, nil
		}
	}

	return "", errors.Newf("config file not found").
		Category(errors.CategoryFileIO).
		Context("operation", "find-config-file").
		Build()
}
