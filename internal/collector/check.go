package collector

import (
	"context"
	"time"
)

// CheckResult is the outcome of one probe of one upstream source.
type CheckResult struct {
	Location string
	Source   string
	Provider string
	Elapsed  time.Duration
	Err      error
}

func (r CheckResult) OK() bool {
	return r.Err == nil
}

// Check calls every configured provider once per location, sequentially,
// without writing or publishing anything.
func (c *Collector) Check(ctx context.Context) []CheckResult {
	now := c.now()

	var results []CheckResult
	probe := func(slug, source, provider string, fn func() error) {
		start := time.Now()
		err := fn()
		results = append(results, CheckResult{
			Location: slug,
			Source:   source,
			Provider: provider,
			Elapsed:  time.Since(start),
			Err:      err,
		})
	}

	for _, loc := range c.locations {
		if p := c.providers.Ephemeris; p != nil {
			probe(loc.Slug, SourceEphemeris, p.Name(), func() error {
				_, err := p.Ephemeris(ctx, loc, now)
				return err
			})
		}
		if p := c.providers.Weather; p != nil {
			probe(loc.Slug, SourceWeather, p.Name(), func() error {
				_, err := p.Hourly(ctx, loc, now)
				return err
			})
		}
		if p := c.providers.Fog; p != nil {
			probe(loc.Slug, SourceFog, p.Name(), func() error {
				_, err := p.Fog(ctx, loc)
				return err
			})
		}
		if p := c.providers.Current; p != nil {
			probe(loc.Slug, SourceCurrent, p.Name(), func() error {
				_, err := p.Current(ctx, loc)
				return err
			})
		}
	}
	return results
}
