package weather

import (
	"context"
	"net/url"
	"strings"
	"time"
)

const (
	openMeteoBaseURL = "https://api.open-meteo.com"
	fogHorizonHours  = 12
)

// OpenMeteoClient is a keyless hourly sampler and fog sampler backed by the
// Open-Meteo forecast API.
type OpenMeteoClient struct {
	opts clientOptions
	now  func() time.Time
}

func NewOpenMeteoClient(opts ...ClientOption) *OpenMeteoClient {
	return &OpenMeteoClient{opts: buildOptions(openMeteoBaseURL, opts), now: time.Now}
}

type openMeteoResponse struct {
	Timezone string `json:"timezone"`
	Hourly   struct {
		Time       []string   `json:"time"`
		CloudCover []*float64 `json:"cloud_cover"`
		Visibility []*float64 `json:"visibility"`
	} `json:"hourly"`
	Daily struct {
		Time    []string `json:"time"`
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

func (c *OpenMeteoClient) Name() string {
	return "openmeteo"
}

func (c *OpenMeteoClient) Hourly(ctx context.Context, loc Location, date time.Time) (*DayForecast, error) {
	local := date.In(loc.Zone)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc.Zone)

	query := c.baseQuery(loc)
	query.Set("daily", "sunrise,sunset")
	query.Set("start_date", day.Format("2006-01-02"))
	query.Set("end_date", day.Format("2006-01-02"))

	payload, err := c.fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	sunrise, sunset := pickOpenMeteoSunTimes(day, loc.Zone, payload.Daily.Sunrise, payload.Daily.Sunset)
	if sunrise.IsZero() || sunset.IsZero() {
		return nil, upstreamErr(c.Name(), "daily sunrise/sunset missing")
	}

	forecast := &DayForecast{
		Date:        day,
		SunriseHour: sunrise.Hour(),
		SunsetHour:  sunset.Hour(),
	}
	for _, r := range openMeteoReadings(payload, loc.Zone) {
		if !sameDate(r.Time, day) {
			continue
		}
		forecast.Hours = append(forecast.Hours, HourlySample{
			Time:       r.Time,
			CloudCover: r.CloudCover,
			Visibility: r.Visibility,
		})
	}
	return forecast, nil
}

// Fog returns up to twelve hourly readings starting at the current hour.
func (c *OpenMeteoClient) Fog(ctx context.Context, loc Location) ([]FogReading, error) {
	query := c.baseQuery(loc)
	query.Set("forecast_days", "2")

	payload, err := c.fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	now := c.now().In(loc.Zone)
	from := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, loc.Zone)
	var readings []FogReading
	for _, r := range openMeteoReadings(payload, loc.Zone) {
		if r.Time.Before(from) {
			continue
		}
		readings = append(readings, r)
		if len(readings) == fogHorizonHours {
			break
		}
	}
	return readings, nil
}

func (c *OpenMeteoClient) baseQuery(loc Location) url.Values {
	query := url.Values{}
	query.Set("latitude", formatCoord(loc.Latitude))
	query.Set("longitude", formatCoord(loc.Longitude))
	query.Set("hourly", "cloud_cover,visibility")
	query.Set("timezone", "auto")
	if loc.TZ != "" {
		query.Set("timezone", loc.TZ)
	}
	return query
}

func (c *OpenMeteoClient) fetch(ctx context.Context, query url.Values) (*openMeteoResponse, error) {
	endpoint := strings.TrimRight(c.opts.baseURL, "/") + "/v1/forecast?" + query.Encode()

	var payload openMeteoResponse
	if err := getJSON(ctx, c.opts.httpClient, c.Name(), endpoint, &payload); err != nil {
		return nil, err
	}
	if len(payload.Hourly.Time) == 0 {
		return nil, upstreamErr(c.Name(), "hourly data missing")
	}
	return &payload, nil
}

// openMeteoReadings zips the hourly arrays, converting visibility from
// metres to miles. Hours whose timestamp does not parse are dropped.
func openMeteoReadings(payload *openMeteoResponse, zone *time.Location) []FogReading {
	h := payload.Hourly
	readings := make([]FogReading, 0, len(h.Time))
	for i, raw := range h.Time {
		at := parseOpenMeteoTime(raw, zone)
		if at.IsZero() {
			continue
		}
		r := FogReading{Time: at}
		if i < len(h.CloudCover) {
			r.CloudCover = h.CloudCover[i]
		}
		if i < len(h.Visibility) && h.Visibility[i] != nil {
			miles := *h.Visibility[i] / metersPerMile
			r.Visibility = &miles
		}
		readings = append(readings, r)
	}
	return readings
}

// parseOpenMeteoTime reads local wall-clock times into zone.
func parseOpenMeteoTime(value string, zone *time.Location) time.Time {
	if t, err := time.ParseInLocation("2006-01-02T15:04", value, zone); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(zone)
	}
	return time.Time{}
}

func pickOpenMeteoSunTimes(day time.Time, zone *time.Location, sunrises, sunsets []string) (time.Time, time.Time) {
	count := len(sunrises)
	if len(sunsets) < count {
		count = len(sunsets)
	}

	for i := 0; i < count; i++ {
		sunrise := parseOpenMeteoTime(sunrises[i], zone)
		sunset := parseOpenMeteoTime(sunsets[i], zone)
		if sunrise.IsZero() || sunset.IsZero() {
			continue
		}
		if sameDate(day, sunrise) {
			return sunrise, sunset
		}
	}
	return time.Time{}, time.Time{}
}
