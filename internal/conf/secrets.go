package conf

import (
	"fmt"

	"github.com/friendswall/friendswall-go/internal/secrets"
)

// resolveSecrets replaces credential settings with their file or environment values.
func resolveSecrets(settings *Settings) error {
	fields := []struct {
		name  string
		file  string
		value *string
	}{
		{"security.sessionsecret", settings.Security.SessionSecretFile, &settings.Security.SessionSecret},
		{"database.mysql.password", settings.Database.MySQL.PasswordFile, &settings.Database.MySQL.Password},
		{"mqtt.password", settings.MQTT.PasswordFile, &settings.MQTT.Password},
	}

	for _, f := range fields {
		resolved, err := secrets.Resolve(f.file, *f.value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = resolved
	}
	return nil
}
