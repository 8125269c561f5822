package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shootcast/config"
	"shootcast/internal/collector"
	"shootcast/internal/logging"
	"shootcast/internal/metrics"
	"shootcast/internal/mqtt"
	"shootcast/internal/publish"
	"shootcast/internal/report"
	"shootcast/internal/storage"
	"shootcast/internal/weather"
)

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "shootcast",
		Short:        "Photo conditions forecaster",
		Long:         "Fetch sunrise, cloud and fog forecasts for each location and write a scored shooting report",
		SilenceUsage: true,
		RunE:         runGenerate,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(checkCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Write the predictions file",
		Long:  "Fetch every source for every location, write the predictions file and run the enabled publishers",
		RunE:  runGenerate,
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Test every configured provider",
		Long:  "Call each provider once per location and report which ones respond",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			locations, err := cfg.ResolveLocations(time.Now())
			if err != nil {
				return err
			}

			coll := collector.NewCollector(collector.CollectorConfig{
				Providers: buildProviders(cfg),
				Locations: locations,
				Logger:    logger,
			})

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			failed := 0
			for _, r := range coll.Check(ctx) {
				status := "OK"
				if !r.OK() {
					status = "FAILED"
					failed++
				}
				fmt.Printf("%-20s %-10s %-16s %-7s %s\n", r.Location, r.Source, r.Provider, status, r.Elapsed.Round(time.Millisecond))
				if r.Err != nil {
					fmt.Printf("  %v\n", r.Err)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d source check(s) failed", failed)
			}
			fmt.Println("All sources OK")
			return nil
		},
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	locations, err := cfg.ResolveLocations(time.Now())
	if err != nil {
		return err
	}

	store, err := storage.NewFileStore(cfg.Output.Path)
	if err != nil {
		return err
	}

	layout, err := report.ParseLayout(cfg.Output.Layout)
	if err != nil {
		return err
	}

	publishers, closers := buildPublishers(cfg, logger)
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	coll := collector.NewCollector(collector.CollectorConfig{
		Providers:   buildProviders(cfg),
		Locations:   locations,
		Store:       store,
		Layout:      layout,
		Publishers:  publishers,
		Metrics:     metrics.NewCollector(),
		PushURL:     cfg.Metrics.PushgatewayURL,
		PushJob:     cfg.Metrics.Job,
		Concurrency: cfg.Collector.Concurrency,
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := coll.Run(ctx); err != nil {
		return err
	}
	return nil
}

func setup() (*config.Config, *zap.SugaredLogger, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func buildProviders(cfg *config.Config) collector.Providers {
	p := cfg.Providers
	opts := func(baseURL string) []weather.ClientOption {
		return []weather.ClientOption{weather.WithTimeout(p.Timeout), weather.WithBaseURL(baseURL)}
	}

	var providers collector.Providers
	providers.Ephemeris = weather.NewSunriseSunsetClient(opts(p.Ephemeris.BaseURL)...)

	switch p.Weather.Provider {
	case config.ProviderOpenMeteo:
		providers.Weather = weather.NewOpenMeteoClient(opts(p.Weather.BaseURL)...)
	default:
		providers.Weather = weather.NewVisualCrossingClient(p.Weather.APIKey, opts(p.Weather.BaseURL)...)
	}

	switch p.Fog.Provider {
	case config.ProviderOpenMeteo:
		providers.Fog = weather.NewOpenMeteoClient(opts(p.Fog.BaseURL)...)
	default:
		providers.Fog = weather.NewMeteosourceClient(p.Fog.APIKey, opts(p.Fog.BaseURL)...)
	}

	if p.Current.APIKey != "" {
		switch p.Current.Provider {
		case config.ProviderOpenWeather:
			providers.Current = weather.NewOpenWeatherClient(p.Current.APIKey, opts(p.Current.BaseURL)...)
		default:
			providers.Current = weather.NewWeatherAPIClient(p.Current.APIKey, opts(p.Current.BaseURL)...)
		}
	}

	return providers
}

// buildPublishers returns the enabled publishers in run order: git, s3, mqtt.
// A publisher that cannot be set up is logged and skipped.
func buildPublishers(cfg *config.Config, logger *zap.SugaredLogger) ([]collector.Publisher, []func()) {
	var (
		publishers []collector.Publisher
		closers    []func()
	)

	if g := cfg.Publish.Git; g.Enabled {
		publishers = append(publishers, publish.NewGit(publish.GitConfig{
			Dir:     g.Dir,
			Message: g.Message,
			Push:    g.Push,
		}))
	}

	if s3 := cfg.Publish.S3; s3.Enabled {
		bucket, err := publish.NewBucket(publish.BucketConfig{
			Endpoint:  s3.Endpoint,
			Bucket:    s3.Bucket,
			Key:       s3.Key,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Region:    s3.Region,
		})
		if err != nil {
			logger.Warnw("S3 publisher disabled", "error", err)
		} else {
			publishers = append(publishers, bucket)
		}
	}

	if m := cfg.Publish.MQTT; m.Enabled {
		publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
			Broker:      m.Broker,
			ClientID:    m.ClientID,
			Username:    m.Username,
			Password:    m.Password,
			TopicPrefix: m.TopicPrefix,
			Enabled:     true,
			Logger:      logger,
		})
		if err != nil {
			logger.Warnw("MQTT publisher disabled", "broker", m.Broker, "error", err)
		} else {
			publishers = append(publishers, publisher)
			closers = append(closers, publisher.Close)
		}
	}

	return publishers, closers
}
