package weather

import (
	"context"
	"time"
)

// Location is a configured place, with its zone already pinned to a fixed
// UTC offset for the run.
type Location struct {
	Slug      string
	Name      string
	Latitude  float64
	Longitude float64
	Zone      *time.Location
	// TZ is the IANA name Zone was resolved from.
	TZ string
	// Query is the free-form location string some providers accept
	// ("san francisco"). Empty means "lat,lon".
	Query string
	// PlaceID is the Meteosource place identifier. Empty means lat/lon.
	PlaceID string
}

type EphemerisProvider interface {
	Name() string
	Ephemeris(ctx context.Context, loc Location, date time.Time) (*Ephemeris, error)
}

type HourlySampler interface {
	Name() string
	Hourly(ctx context.Context, loc Location, date time.Time) (*DayForecast, error)
}

type FogSampler interface {
	Name() string
	Fog(ctx context.Context, loc Location) ([]FogReading, error)
}

type CurrentProvider interface {
	Name() string
	Current(ctx context.Context, loc Location) (*Current, error)
}

// Ephemeris is one day of solar events. Zero times mean the provider did not
// report that event.
type Ephemeris struct {
	Sunrise            time.Time
	Sunset             time.Time
	SolarNoon          time.Time
	DayLength          time.Duration
	CivilTwilightBegin time.Time
	CivilTwilightEnd   time.Time
	NauticalBegin      time.Time
	NauticalEnd        time.Time
	AstronomicalBegin  time.Time
	AstronomicalEnd    time.Time
	Moon               Moon
}

// Moon holds the phase fraction (0 new, 0.5 full) and rise/set times.
type Moon struct {
	Phase *float64
	Rise  time.Time
	Set   time.Time
}

// DayForecast is the hourly cloud/visibility series for one local day plus
// the forecast hour-of-day of sunrise and sunset.
type DayForecast struct {
	Date        time.Time
	SunriseHour int
	SunsetHour  int
	Hours       []HourlySample
	Moon        Moon
}

type HourlySample struct {
	Time       time.Time
	CloudCover *float64 // percent
	Visibility *float64 // miles
}

type FogReading struct {
	Time       time.Time
	Visibility *float64 // miles
	CloudCover *float64 // percent
}

type Current struct {
	TempF     float64 `json:"temp_f"`
	TempC     float64 `json:"temp_c"`
	Condition string  `json:"condition"`
}

const metersPerMile = 1609.344

// FixedZone pins tz to the UTC offset in effect at the given instant.
func FixedZone(tz *time.Location, at time.Time) *time.Location {
	name, offset := at.In(tz).Zone()
	return time.FixedZone(name, offset)
}

func (l Location) query() string {
	if l.Query != "" {
		return l.Query
	}
	return formatCoord(l.Latitude) + "," + formatCoord(l.Longitude)
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
