// Package report merges the ephemeris, hourly forecast and fog series of one
// location into the record written to the predictions artifact.
package report

import (
	"fmt"
	"time"

	"shootcast/internal/scoring"
	"shootcast/internal/twilight"
	"shootcast/internal/weather"
)

const (
	fallbackSunrise = "6:00 AM"
	fallbackSunset  = "8:00 PM"
	fallbackScore   = 5
)

type MoonPhase struct {
	Value    *float64 `json:"value"`
	Label    string   `json:"label"`
	Moonrise string   `json:"moonrise"`
	Moonset  string   `json:"moonset"`
}

type CloudCover struct {
	Total *float64 `json:"total"`
}

type FogPoint struct {
	Time       string     `json:"time"`
	Visibility *float64   `json:"visibility"`
	CloudCover CloudCover `json:"cloud_cover"`
	FogScore   *float64   `json:"fog_score"`
}

type TwilightPhase struct {
	Label       string   `json:"label"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	AvgFogScore *float64 `json:"avg_fog_score"`
}

type ShootTime struct {
	Time     string  `json:"time"`
	Phase    string  `json:"phase"`
	FogScore float64 `json:"fog_score"`
}

type Conditions struct {
	TempF     float64 `json:"temp_f"`
	TempC     float64 `json:"temp_c"`
	Condition string  `json:"condition"`
}

// LocationReport is one location's entry in the artifact. Times are display
// strings in the location's zone.
type LocationReport struct {
	Location                  string          `json:"location"`
	Sunrise                   string          `json:"sunrise"`
	Sunset                    string          `json:"sunset"`
	SolarNoon                 string          `json:"solar_noon"`
	CivilTwilightBegin        string          `json:"civil_twilight_begin"`
	CivilTwilightEnd          string          `json:"civil_twilight_end"`
	NauticalTwilightBegin     string          `json:"nautical_twilight_begin"`
	NauticalTwilightEnd       string          `json:"nautical_twilight_end"`
	AstronomicalTwilightBegin string          `json:"astronomical_twilight_begin"`
	AstronomicalTwilightEnd   string          `json:"astronomical_twilight_end"`
	DayLength                 string          `json:"day_length"`
	SunriseScore              int             `json:"sunrise_score"`
	SunsetScore               int             `json:"sunset_score"`
	MoonPhase                 MoonPhase       `json:"moon_phase"`
	FogForecast               []FogPoint      `json:"fog_forecast"`
	TwilightPhases            []TwilightPhase `json:"twilight_phases"`
	RecommendedShootTime      *ShootTime      `json:"recommended_shoot_time"`
	SummaryText               string          `json:"summary_text"`
	UpdatedAt                 string          `json:"updated_at"`
	Current                   *Conditions     `json:"current,omitempty"`
}

// Inputs are the fetch results for one location. A nil Ephemeris or Forecast
// means that source failed; Fog is empty when the fog source failed.
type Inputs struct {
	Location  weather.Location
	Ephemeris *weather.Ephemeris
	Forecast  *weather.DayForecast
	Fog       []weather.FogReading
	Current   *weather.Current
	Now       time.Time
}

// Build assembles the report, substituting fallbacks for failed sources.
func Build(in Inputs) LocationReport {
	r := LocationReport{
		Location:  in.Location.Name,
		UpdatedAt: in.Now.UTC().Truncate(time.Second).Format(time.RFC3339),
	}

	var bounds twilight.Bounds
	if eph := in.Ephemeris; eph != nil {
		r.Sunrise = clock(eph.Sunrise)
		r.Sunset = clock(eph.Sunset)
		r.SolarNoon = clock(eph.SolarNoon)
		r.CivilTwilightBegin = clock(eph.CivilTwilightBegin)
		r.CivilTwilightEnd = clock(eph.CivilTwilightEnd)
		r.NauticalTwilightBegin = clock(eph.NauticalBegin)
		r.NauticalTwilightEnd = clock(eph.NauticalEnd)
		r.AstronomicalTwilightBegin = clock(eph.AstronomicalBegin)
		r.AstronomicalTwilightEnd = clock(eph.AstronomicalEnd)
		r.DayLength = FormatDuration(eph.DayLength)

		bounds = twilight.Bounds{
			AstronomicalDawn: eph.AstronomicalBegin,
			NauticalDawn:     eph.NauticalBegin,
			CivilDawn:        eph.CivilTwilightBegin,
			Sunrise:          eph.Sunrise,
		}
	} else {
		r.Sunrise = fallbackSunrise
		r.Sunset = fallbackSunset
	}

	if f := in.Forecast; f != nil {
		hours := make([]scoring.HourReading, 0, len(f.Hours))
		for _, h := range f.Hours {
			hours = append(hours, scoring.HourReading{
				Hour:       h.Time.Hour(),
				CloudCover: h.CloudCover,
				Visibility: h.Visibility,
			})
		}
		r.SunriseScore, r.SunsetScore = scoring.HourScores(hours, f.SunriseHour, f.SunsetHour)
	} else {
		r.SunriseScore, r.SunsetScore = fallbackScore, fallbackScore
	}

	r.MoonPhase = moonPhase(in.Ephemeris, in.Forecast)

	samples := make([]scoring.FogSample, 0, len(in.Fog))
	r.FogForecast = make([]FogPoint, 0, len(in.Fog))
	for _, f := range in.Fog {
		s := scoring.NewFogSample(f.Time, f.Visibility, f.CloudCover)
		samples = append(samples, s)
		r.FogForecast = append(r.FogForecast, FogPoint{
			Time:       s.Time.Format(time.RFC3339),
			Visibility: s.Visibility,
			CloudCover: CloudCover{Total: s.CloudCover},
			FogScore:   s.FogScore,
		})
	}

	analysis := twilight.Analyze(bounds, samples)
	r.TwilightPhases = make([]TwilightPhase, 0, len(analysis.Windows))
	for _, w := range analysis.Windows {
		r.TwilightPhases = append(r.TwilightPhases, TwilightPhase{
			Label:       string(w.Phase),
			Start:       clock(w.Start),
			End:         clock(w.End),
			AvgFogScore: w.AvgFogScore,
		})
	}
	if rec := analysis.Recommendation; rec != nil {
		r.RecommendedShootTime = &ShootTime{
			Time:     clock(rec.Time),
			Phase:    string(rec.Phase),
			FogScore: rec.FogScore,
		}
	}
	r.SummaryText = analysis.Summary

	if c := in.Current; c != nil {
		r.Current = &Conditions{TempF: c.TempF, TempC: c.TempC, Condition: c.Condition}
	}

	return r
}

// moonPhase prefers the ephemeris moon data and falls back to the forecast.
func moonPhase(eph *weather.Ephemeris, forecast *weather.DayForecast) MoonPhase {
	var moon weather.Moon
	switch {
	case eph != nil && eph.Moon.Phase != nil:
		moon = eph.Moon
	case forecast != nil:
		moon = forecast.Moon
	}
	return MoonPhase{
		Value:    moon.Phase,
		Label:    scoring.MoonLabel(moon.Phase),
		Moonrise: clock(moon.Rise),
		Moonset:  clock(moon.Set),
	}
}

func clock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(twilight.ClockLayout)
}

// FormatDuration renders d as H:MM:SS.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}
