package weather

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const visualCrossingBaseURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"

// VisualCrossingClient reads the hourly timeline for one day from Visual
// Crossing. Units are US (visibility in miles).
type VisualCrossingClient struct {
	apiKey string
	opts   clientOptions
}

func NewVisualCrossingClient(apiKey string, opts ...ClientOption) *VisualCrossingClient {
	return &VisualCrossingClient{apiKey: apiKey, opts: buildOptions(visualCrossingBaseURL, opts)}
}

type visualCrossingResponse struct {
	Days []struct {
		Datetime  string   `json:"datetime"`
		Sunrise   string   `json:"sunrise"`
		Sunset    string   `json:"sunset"`
		MoonPhase *float64 `json:"moonphase"`
		Moonrise  string   `json:"moonrise"`
		Moonset   string   `json:"moonset"`
		Hours     []struct {
			Datetime   string   `json:"datetime"`
			CloudCover *float64 `json:"cloudcover"`
			Visibility *float64 `json:"visibility"`
		} `json:"hours"`
	} `json:"days"`
}

func (c *VisualCrossingClient) Name() string {
	return "visualcrossing"
}

func (c *VisualCrossingClient) Hourly(ctx context.Context, loc Location, date time.Time) (*DayForecast, error) {
	if c.apiKey == "" {
		return nil, &UpstreamError{Source: c.Name(), Err: errors.New("api key is empty")}
	}

	local := date.In(loc.Zone)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc.Zone)

	query := url.Values{}
	query.Set("unitGroup", "us")
	query.Set("include", "hours,days")
	query.Set("elements", "datetime,sunrise,sunset,moonphase,moonrise,moonset,cloudcover,visibility")
	query.Set("key", c.apiKey)
	query.Set("contentType", "json")

	endpoint := fmt.Sprintf("%s/%s/%s?%s",
		strings.TrimRight(c.opts.baseURL, "/"),
		url.PathEscape(loc.query()),
		day.Format("2006-01-02"),
		query.Encode())

	var payload visualCrossingResponse
	if err := getJSON(ctx, c.opts.httpClient, c.Name(), endpoint, &payload); err != nil {
		return nil, err
	}
	if len(payload.Days) == 0 {
		return nil, upstreamErr(c.Name(), "no days in response")
	}

	d := payload.Days[0]
	sunriseHour, err := clockHour(d.Sunrise)
	if err != nil {
		return nil, upstreamErr(c.Name(), "sunrise: %w", err)
	}
	sunsetHour, err := clockHour(d.Sunset)
	if err != nil {
		return nil, upstreamErr(c.Name(), "sunset: %w", err)
	}

	forecast := &DayForecast{
		Date:        day,
		SunriseHour: sunriseHour,
		SunsetHour:  sunsetHour,
		Moon: Moon{
			Phase: d.MoonPhase,
			Rise:  atClock(day, d.Moonrise),
			Set:   atClock(day, d.Moonset),
		},
	}

	for _, h := range d.Hours {
		at := atClock(day, h.Datetime)
		if at.IsZero() {
			continue
		}
		forecast.Hours = append(forecast.Hours, HourlySample{
			Time:       at,
			CloudCover: h.CloudCover,
			Visibility: h.Visibility,
		})
	}

	return forecast, nil
}

// clockHour extracts the hour from "HH:MM" or "HH:MM:SS".
func clockHour(value string) (int, error) {
	head, _, _ := strings.Cut(strings.TrimSpace(value), ":")
	hour, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", value)
	}
	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("hour out of range in %q", value)
	}
	return hour, nil
}

// atClock places an "HH:MM[:SS]" clock reading on day. Unparseable or empty
// values give the zero time.
func atClock(day time.Time, value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, day.Location())
		}
	}
	return time.Time{}
}
