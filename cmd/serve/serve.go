// Package serve implements the `friendswall serve` command.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/friendswall/friendswall-go/internal/api"
	"github.com/friendswall/friendswall-go/internal/buildinfo"
	"github.com/friendswall/friendswall-go/internal/conf"
	"github.com/friendswall/friendswall-go/internal/datastore"
	"github.com/friendswall/friendswall-go/internal/errors"
	"github.com/friendswall/friendswall-go/internal/httpserver"
	"github.com/friendswall/friendswall-go/internal/logger"
	"github.com/friendswall/friendswall-go/internal/mqtt"
	"github.com/friendswall/friendswall-go/internal/notify"
	"github.com/friendswall/friendswall-go/internal/observability"
)

const (
	sentryFlushTimeout = 2 * time.Second
	mqttConnectTimeout = 10 * time.Second
)

// Command creates the serve command.
func Command(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and event stream server",
		Long:  "Open the database and serve the JSON API and the event stream until SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings, build)
		},
	}

	if err := setupFlags(cmd); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command. They override
// the config file through viper when set.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("listen", "", "Listen address, e.g. :8080 (default from config)")
	cmd.Flags().Bool("mqtt", false, "Publish friend requests over MQTT")

	for key, name := range map[string]string{
		"webserver.listen": "listen",
		"mqtt.enabled":     "mqtt",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("error binding flags: %w", err)
		}
	}
	return nil
}

// Run starts every component enabled in settings and blocks until ctx is cancelled.
func Run(ctx context.Context, settings *conf.Settings, build *buildinfo.Context) error {
	appLogger, err := logger.New(settings.LoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = appLogger.Close() }()
	log := appLogger.Module("serve")

	log.Info("starting friendswall",
		logger.String("version", build.GetVersion()),
		logger.String("config", settings.ConfigFile))

	if settings.Sentry.Enabled {
		reporter, err := errors.InitSentry(settings.Sentry.DSN, settings.Sentry.Environment, build.GetVersion())
		if err != nil {
			log.Warn("error telemetry disabled", logger.Error(err))
		} else {
			errors.SetTelemetryReporter(reporter)
			defer errors.FlushSentry(sentryFlushTimeout)
		}
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics.EnableErrorCounting()
	defer errors.ClearErrorHooks()

	ds := datastore.New(settings, appLogger.Module("datastore"))
	if ds == nil {
		return errors.Newf("no database backend enabled, enable database.sqlite or database.mysql").
			Component("serve").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			log.Warn("failed to close database", logger.Error(err))
		}
	}()

	opts := []api.ServerOption{
		api.WithLogger(appLogger),
		api.WithDataStore(ds),
		api.WithMetrics(metrics),
		api.WithBuildInfo(build),
	}

	if settings.MQTT.Enabled {
		publisher, disconnect, err := startMQTT(ctx, settings, metrics, appLogger.Module("mqtt"))
		if err != nil {
			return err
		}
		defer disconnect()
		opts = append(opts, api.WithPublisher(publisher))
	}

	dispatcher, err := notify.NewFromSettings(&settings.Feedback.Notify, metrics.Notification, appLogger.Module("notify"))
	if err != nil {
		return fmt.Errorf("failed to initialize feedback notifications: %w", err)
	}
	if dispatcher != nil {
		dispatcher.Start(ctx)
		defer dispatcher.Stop()
		opts = append(opts, api.WithFeedbackNotifier(dispatcher))
	}

	server, err := api.New(settings, opts...)
	if err != nil {
		return err
	}

	return serve(ctx, server, appLogger)
}

// serve runs srv and reopens the log file on SIGHUP until ctx is cancelled.
func serve(ctx context.Context, srv httpserver.Server, appLogger *logger.SlogLogger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				if err := appLogger.ReopenLogFile(); err != nil {
					appLogger.Module("serve").Warn("failed to reopen log file", logger.Error(err))
				}
			}
		}
	})

	return g.Wait()
}

// startMQTT connects the broker client. A failed first connection is logged
// and left to the client's reconnect logic.
func startMQTT(ctx context.Context, settings *conf.Settings, metrics *observability.Metrics, log logger.Logger) (*mqtt.Publisher, func(), error) {
	cfg := mqtt.ConfigFromSettings(&settings.MQTT)
	client, err := mqtt.NewClient(cfg, metrics.MQTT, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create MQTT client: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		log.Warn("initial MQTT connection failed, friend requests are published once the broker is reachable",
			logger.String("broker", cfg.Broker),
			logger.Error(err))
	}

	return mqtt.NewPublisher(client, cfg.Topic, log), client.Disconnect, nil
}
