package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"shootcast/internal/logging"
	"shootcast/internal/metrics"
	"shootcast/internal/report"
	"shootcast/internal/weather"
)

// Source names used in logs, metrics and check output.
const (
	SourceEphemeris = "ephemeris"
	SourceWeather   = "weather"
	SourceFog       = "fog"
	SourceCurrent   = "current"
)

// Providers are the upstream collaborators. Current is optional.
type Providers struct {
	Ephemeris weather.EphemerisProvider
	Weather   weather.HourlySampler
	Fog       weather.FogSampler
	Current   weather.CurrentProvider
}

type Store interface {
	Path() string
	Write(data []byte) error
}

type Publisher interface {
	Name() string
	Publish(ctx context.Context, a report.Artifact) error
}

type Collector struct {
	providers   Providers
	locations   []weather.Location
	store       Store
	layout      report.Layout
	publishers  []Publisher
	metrics     *metrics.Collector
	pushURL     string
	pushJob     string
	concurrency int
	logger      *zap.SugaredLogger
	now         func() time.Time
}

type CollectorConfig struct {
	Providers   Providers
	Locations   []weather.Location
	Store       Store
	Layout      report.Layout
	Publishers  []Publisher
	Metrics     *metrics.Collector
	PushURL     string
	PushJob     string
	Concurrency int
	Logger      *zap.SugaredLogger
	Now         func() time.Time
}

func NewCollector(cfg CollectorConfig) *Collector {
	c := &Collector{
		providers:   cfg.Providers,
		locations:   cfg.Locations,
		store:       cfg.Store,
		layout:      cfg.Layout,
		publishers:  cfg.Publishers,
		metrics:     cfg.Metrics,
		pushURL:     cfg.PushURL,
		pushJob:     cfg.PushJob,
		concurrency: cfg.Concurrency,
		logger:      logging.OrNop(cfg.Logger),
		now:         cfg.Now,
	}
	if c.layout == "" {
		c.layout = report.LayoutAuto
	}
	if c.concurrency < 1 {
		c.concurrency = 1
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.pushJob == "" {
		c.pushJob = "shootcast"
	}
	return c
}

// Run builds a report for every location, overwrites the artifact and hands
// it to the publishers. Only a failure to encode or write the artifact is
// returned; upstream and publisher failures are logged.
func (c *Collector) Run(ctx context.Context) (*report.Artifact, error) {
	started := c.now()
	logger := c.logger.With("run_id", uuid.NewString())

	entries := make([]report.Entry, len(c.locations))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, loc := range c.locations {
		i, loc := i, loc
		g.Go(func() error {
			entries[i] = report.Entry{Slug: loc.Slug, Report: c.collect(ctx, logger, loc, started)}
			return nil
		})
	}
	_ = g.Wait()

	data, err := report.Marshal(c.layout, entries)
	if err != nil {
		return nil, err
	}
	if err := c.store.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write artifact: %w", err)
	}

	artifact := &report.Artifact{Path: c.store.Path(), Data: data, Entries: entries}

	if c.metrics != nil {
		c.metrics.RecordRun(len(entries), c.now())
	}

	for _, p := range c.publishers {
		if err := p.Publish(ctx, *artifact); err != nil {
			logger.Warnw("Publish failed", "publisher", p.Name(), "error", err)
			continue
		}
		logger.Debugw("Published artifact", "publisher", p.Name())
	}

	if c.metrics != nil && c.pushURL != "" {
		if err := c.metrics.Push(ctx, c.pushURL, c.pushJob); err != nil {
			logger.Warnw("Metrics push failed", "url", c.pushURL, "error", err)
		}
	}

	logger.Infow("Predictions written",
		"locations", len(entries),
		"path", artifact.Path,
		"duration", c.now().Sub(started).String())

	return artifact, nil
}

// collect fetches the sources for one location in order and assembles its
// report. A failed source falls back without affecting the others.
func (c *Collector) collect(ctx context.Context, logger *zap.SugaredLogger, loc weather.Location, now time.Time) report.LocationReport {
	logger = logger.With("location", loc.Slug)
	in := report.Inputs{Location: loc, Now: now}

	if p := c.providers.Ephemeris; p != nil {
		eph, err := fetch(c, SourceEphemeris, func() (*weather.Ephemeris, error) {
			return p.Ephemeris(ctx, loc, now)
		})
		if err != nil {
			warnFallback(logger, SourceEphemeris, p.Name(), err)
		} else {
			in.Ephemeris = eph
		}
	}

	if p := c.providers.Weather; p != nil {
		forecast, err := fetch(c, SourceWeather, func() (*weather.DayForecast, error) {
			return p.Hourly(ctx, loc, now)
		})
		if err != nil {
			warnFallback(logger, SourceWeather, p.Name(), err)
		} else {
			in.Forecast = forecast
		}
	}

	if p := c.providers.Fog; p != nil {
		readings, err := fetch(c, SourceFog, func() ([]weather.FogReading, error) {
			return p.Fog(ctx, loc)
		})
		if err != nil {
			warnFallback(logger, SourceFog, p.Name(), err)
		} else {
			in.Fog = readings
		}
	}

	if p := c.providers.Current; p != nil {
		current, err := fetch(c, SourceCurrent, func() (*weather.Current, error) {
			return p.Current(ctx, loc)
		})
		if err != nil {
			warnFallback(logger, SourceCurrent, p.Name(), err)
		} else {
			in.Current = current
		}
	}

	return report.Build(in)
}

func fetch[T any](c *Collector, source string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	if c.metrics != nil {
		c.metrics.ObserveUpstream(source, time.Since(start), err)
	}
	return v, err
}

func warnFallback(logger *zap.SugaredLogger, source, provider string, err error) {
	logger.Warnw("Upstream fetch failed, using fallback",
		"source", source,
		"provider", provider,
		"error", err)
}
