package weather

import (
	"context"
	"net/url"
	"strings"
	"time"
)

const sunriseSunsetBaseURL = "https://api.sunrise-sunset.org"

// SunriseSunsetClient reads solar events from api.sunrise-sunset.org.
type SunriseSunsetClient struct {
	opts clientOptions
}

func NewSunriseSunsetClient(opts ...ClientOption) *SunriseSunsetClient {
	return &SunriseSunsetClient{opts: buildOptions(sunriseSunsetBaseURL, opts)}
}

type sunriseSunsetResponse struct {
	Status  string `json:"status"`
	Results struct {
		Sunrise                   string `json:"sunrise"`
		Sunset                    string `json:"sunset"`
		SolarNoon                 string `json:"solar_noon"`
		DayLength                 int64  `json:"day_length"`
		CivilTwilightBegin        string `json:"civil_twilight_begin"`
		CivilTwilightEnd          string `json:"civil_twilight_end"`
		NauticalTwilightBegin     string `json:"nautical_twilight_begin"`
		NauticalTwilightEnd       string `json:"nautical_twilight_end"`
		AstronomicalTwilightBegin string `json:"astronomical_twilight_begin"`
		AstronomicalTwilightEnd   string `json:"astronomical_twilight_end"`
	} `json:"results"`
}

func (c *SunriseSunsetClient) Name() string {
	return "sunrise-sunset"
}

func (c *SunriseSunsetClient) Ephemeris(ctx context.Context, loc Location, date time.Time) (*Ephemeris, error) {
	query := url.Values{}
	query.Set("lat", formatCoord(loc.Latitude))
	query.Set("lng", formatCoord(loc.Longitude))
	query.Set("date", date.In(loc.Zone).Format("2006-01-02"))
	query.Set("formatted", "0")
	if loc.TZ != "" {
		query.Set("tzid", loc.TZ)
	}

	endpoint := strings.TrimRight(c.opts.baseURL, "/") + "/json?" + query.Encode()

	var payload sunriseSunsetResponse
	if err := getJSON(ctx, c.opts.httpClient, c.Name(), endpoint, &payload); err != nil {
		return nil, err
	}
	if payload.Status != "OK" {
		return nil, upstreamErr(c.Name(), "status %q", payload.Status)
	}

	r := payload.Results
	eph := &Ephemeris{
		Sunrise:            parseSunriseSunsetTime(r.Sunrise, loc.Zone),
		Sunset:             parseSunriseSunsetTime(r.Sunset, loc.Zone),
		SolarNoon:          parseSunriseSunsetTime(r.SolarNoon, loc.Zone),
		DayLength:          time.Duration(r.DayLength) * time.Second,
		CivilTwilightBegin: parseSunriseSunsetTime(r.CivilTwilightBegin, loc.Zone),
		CivilTwilightEnd:   parseSunriseSunsetTime(r.CivilTwilightEnd, loc.Zone),
		NauticalBegin:      parseSunriseSunsetTime(r.NauticalTwilightBegin, loc.Zone),
		NauticalEnd:        parseSunriseSunsetTime(r.NauticalTwilightEnd, loc.Zone),
		AstronomicalBegin:  parseSunriseSunsetTime(r.AstronomicalTwilightBegin, loc.Zone),
		AstronomicalEnd:    parseSunriseSunsetTime(r.AstronomicalTwilightEnd, loc.Zone),
	}
	if eph.Sunrise.IsZero() {
		return nil, upstreamErr(c.Name(), "sunrise missing from payload")
	}
	return eph, nil
}

// parseSunriseSunsetTime returns the zero time for empty values and for the
// 1970-01-01 marker the API uses when an event does not occur that day.
func parseSunriseSunsetTime(value string, zone *time.Location) time.Time {
	if strings.TrimSpace(value) == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil || t.Year() <= 1970 {
		return time.Time{}
	}
	return t.In(zone)
}
