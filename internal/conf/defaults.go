// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.path", "")
	viper.SetDefault("log.timezone", "Local")
	viper.SetDefault("log.json", false)

	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.listen", ":8080")
	viper.SetDefault("webserver.readtimeout", 15*time.Second)
	viper.SetDefault("webserver.idletimeout", 120*time.Second)
	viper.SetDefault("webserver.bodylimit", "2M")
	viper.SetDefault("webserver.allowedorigins", []string{"*"})
	viper.SetDefault("webserver.usercachettl", 30*time.Second)

	viper.SetDefault("webserver.sse.pollinterval", 500*time.Millisecond)
	viper.SetDefault("webserver.sse.keepalive", 30*time.Second)
	viper.SetDefault("webserver.sse.maxduration", 10*time.Minute)
	viper.SetDefault("webserver.sse.retryinterval", time.Second)
	viper.SetDefault("webserver.sse.ratelimit", 1.0)
	viper.SetDefault("webserver.sse.burst", 5)
	viper.SetDefault("webserver.sse.maxstreams", 1000)

	viper.SetDefault("security.sessionsecret", "")
	viper.SetDefault("security.sessionsecretfile", "")
	viper.SetDefault("security.cookiename", "friendswall_session")
	viper.SetDefault("security.securecookie", false)
	viper.SetDefault("security.sessionmaxage", 7*24*time.Hour)

	viper.SetDefault("database.debug", false)
	viper.SetDefault("database.slowthreshold", 200*time.Millisecond)
	viper.SetDefault("database.sqlite.enabled", true)
	viper.SetDefault("database.sqlite.path", "friendswall.db")
	viper.SetDefault("database.mysql.enabled", false)
	viper.SetDefault("database.mysql.username", "friendswall")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.passwordfile", "")
	viper.SetDefault("database.mysql.database", "friendswall")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", "3306")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.debug", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic", "friendswall")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.passwordfile", "")
	viper.SetDefault("mqtt.clientid", "")
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("feedback.pagesize", 20)
	viper.SetDefault("feedback.notify.enabled", false)
	viper.SetDefault("feedback.notify.urls", []string{})
	viper.SetDefault("feedback.notify.timeout", 10*time.Second)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
}
