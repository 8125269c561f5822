package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"shootcast/internal/report"
	"shootcast/internal/weather"
)

type Config struct {
	Log       LogConfig        `mapstructure:"log"`
	Output    OutputConfig     `mapstructure:"output"`
	Collector CollectorConfig  `mapstructure:"collector"`
	Providers ProvidersConfig  `mapstructure:"providers"`
	Locations []LocationConfig `mapstructure:"locations"`
	Publish   PublishConfig    `mapstructure:"publish"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type OutputConfig struct {
	Path   string `mapstructure:"path"`
	Layout string `mapstructure:"layout"`
}

type CollectorConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type ProvidersConfig struct {
	Timeout   time.Duration  `mapstructure:"timeout"`
	Ephemeris EndpointConfig `mapstructure:"ephemeris"`
	Weather   SourceConfig   `mapstructure:"weather"`
	Fog       SourceConfig   `mapstructure:"fog"`
	Current   SourceConfig   `mapstructure:"current"`
}

type EndpointConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type SourceConfig struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

type LocationConfig struct {
	Slug      string  `mapstructure:"slug"`
	Name      string  `mapstructure:"name"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Timezone  string  `mapstructure:"timezone"`
	Query     string  `mapstructure:"query"`
	PlaceID   string  `mapstructure:"place_id"`
}

type PublishConfig struct {
	Git  GitConfig  `mapstructure:"git"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
	S3   S3Config   `mapstructure:"s3"`
}

type GitConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	Message string `mapstructure:"message"`
	Push    bool   `mapstructure:"push"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type S3Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Key       string `mapstructure:"key"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

const (
	ProviderVisualCrossing = "visualcrossing"
	ProviderOpenMeteo      = "openmeteo"
	ProviderMeteosource    = "meteosource"
	ProviderWeatherAPI     = "weatherapi"
	ProviderOpenWeather    = "openweather"
)

// LoadDotEnv exports the variables in the given files (".env" by default)
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("shootcast")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/shootcast")
	}

	setDefaults(v)

	v.SetEnvPrefix("SHOOTCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("providers.current.api_key", "SHOOTCAST_PROVIDERS_CURRENT_API_KEY", "WEATHERAPI_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("output.path", "predictions.json")
	v.SetDefault("output.layout", string(report.LayoutAuto))
	v.SetDefault("collector.concurrency", 1)

	v.SetDefault("providers.timeout", "10s")
	v.SetDefault("providers.ephemeris.base_url", "")
	v.SetDefault("providers.weather.provider", ProviderVisualCrossing)
	v.SetDefault("providers.weather.api_key", "")
	v.SetDefault("providers.weather.base_url", "")
	v.SetDefault("providers.fog.provider", ProviderMeteosource)
	v.SetDefault("providers.fog.api_key", "")
	v.SetDefault("providers.fog.base_url", "")
	v.SetDefault("providers.current.provider", ProviderWeatherAPI)
	v.SetDefault("providers.current.base_url", "")

	v.SetDefault("locations", []map[string]interface{}{
		{
			"slug":      "san-francisco",
			"name":      "San Francisco",
			"latitude":  37.7749,
			"longitude": -122.4194,
			"timezone":  "America/Los_Angeles",
			"query":     "san francisco",
			"place_id":  "san-francisco",
		},
	})

	v.SetDefault("publish.git.enabled", false)
	v.SetDefault("publish.git.dir", ".")
	v.SetDefault("publish.git.message", "Update predictions")
	v.SetDefault("publish.git.push", true)

	v.SetDefault("publish.mqtt.enabled", false)
	v.SetDefault("publish.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("publish.mqtt.topic_prefix", "shootcast")
	v.SetDefault("publish.mqtt.client_id", "shootcast")
	v.SetDefault("publish.mqtt.username", "")
	v.SetDefault("publish.mqtt.password", "")

	v.SetDefault("publish.s3.enabled", false)
	v.SetDefault("publish.s3.endpoint", "")
	v.SetDefault("publish.s3.bucket", "")
	v.SetDefault("publish.s3.key", "predictions.json")
	v.SetDefault("publish.s3.access_key", "")
	v.SetDefault("publish.s3.secret_key", "")
	v.SetDefault("publish.s3.region", "")

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "shootcast")
}

func (c *Config) Validate() error {
	if c.Output.Path == "" {
		return errors.New("output.path is required")
	}
	if _, err := report.ParseLayout(c.Output.Layout); err != nil {
		return fmt.Errorf("output.layout: %w", err)
	}
	if c.Collector.Concurrency < 1 {
		return errors.New("collector.concurrency must be at least 1")
	}
	if c.Providers.Timeout <= 0 {
		return errors.New("providers.timeout must be positive")
	}

	switch c.Providers.Weather.Provider {
	case ProviderVisualCrossing, ProviderOpenMeteo:
	default:
		return fmt.Errorf("providers.weather.provider: unknown provider %q", c.Providers.Weather.Provider)
	}
	switch c.Providers.Fog.Provider {
	case ProviderMeteosource, ProviderOpenMeteo:
	default:
		return fmt.Errorf("providers.fog.provider: unknown provider %q", c.Providers.Fog.Provider)
	}
	switch c.Providers.Current.Provider {
	case ProviderWeatherAPI, ProviderOpenWeather:
	default:
		return fmt.Errorf("providers.current.provider: unknown provider %q", c.Providers.Current.Provider)
	}

	if len(c.Locations) == 0 {
		return errors.New("at least one location is required")
	}
	seen := make(map[string]bool, len(c.Locations))
	for i, loc := range c.Locations {
		if loc.Slug == "" {
			return fmt.Errorf("locations[%d]: slug is required", i)
		}
		if seen[loc.Slug] {
			return fmt.Errorf("locations[%d]: duplicate slug %q", i, loc.Slug)
		}
		seen[loc.Slug] = true

		if loc.Latitude < -90 || loc.Latitude > 90 {
			return fmt.Errorf("locations[%d]: latitude %v out of range", i, loc.Latitude)
		}
		if loc.Longitude < -180 || loc.Longitude > 180 {
			return fmt.Errorf("locations[%d]: longitude %v out of range", i, loc.Longitude)
		}
		if _, err := time.LoadLocation(loc.Timezone); err != nil || loc.Timezone == "" {
			return fmt.Errorf("locations[%d]: invalid timezone %q", i, loc.Timezone)
		}
	}
	if c.Output.Layout == string(report.LayoutSingle) && len(c.Locations) != 1 {
		return errors.New("output.layout single needs exactly one location")
	}

	if c.Publish.Git.Enabled && c.Publish.Git.Dir == "" {
		return errors.New("publish.git.dir is required")
	}
	if c.Publish.MQTT.Enabled && c.Publish.MQTT.Broker == "" {
		return errors.New("publish.mqtt.broker is required")
	}
	if s3 := c.Publish.S3; s3.Enabled && (s3.Endpoint == "" || s3.Bucket == "" || s3.Key == "") {
		return errors.New("publish.s3 needs endpoint, bucket and key")
	}

	return nil
}

// ResolveLocations pins every location's timezone to the UTC offset in effect
// at now.
func (c *Config) ResolveLocations(now time.Time) ([]weather.Location, error) {
	out := make([]weather.Location, 0, len(c.Locations))
	for _, lc := range c.Locations {
		tz, err := time.LoadLocation(lc.Timezone)
		if err != nil {
			return nil, fmt.Errorf("location %s: %w", lc.Slug, err)
		}
		name := lc.Name
		if name == "" {
			name = lc.Slug
		}
		out = append(out, weather.Location{
			Slug:      lc.Slug,
			Name:      name,
			Latitude:  lc.Latitude,
			Longitude: lc.Longitude,
			Zone:      weather.FixedZone(tz, now),
			TZ:        lc.Timezone,
			Query:     lc.Query,
			PlaceID:   lc.PlaceID,
		})
	}
	return out, nil
}
