// Package scoring turns raw cloud cover and visibility readings into bounded
// photo-condition scores.
//
// Two unrelated heuristics live here. CloudVisibility rates how photogenic a
// sunrise or sunset is likely to be (higher is better, moderate cloud wins).
// Fog rates how foggy an hour is (higher is worse).
package scoring

import (
	"math"
	"time"
)

const (
	idealCloudCover    = 45.0
	maxVisibilityMiles = 10.0
	cloudWeight        = 0.7
	visibilityWeight   = 0.3

	lunarCycleDays = 29.53
)

// CloudVisibility scores sunrise/sunset quality in [0,10]. Missing cloud
// cover counts as overcast, missing visibility counts as zero.
func CloudVisibility(cloudCover, visibility *float64) int {
	cloud := 100.0
	if cloudCover != nil {
		cloud = *cloudCover
	}
	vis := 0.0
	if visibility != nil {
		vis = *visibility
	}

	cloudScore := math.Max(0, 10-math.Abs(cloud-idealCloudCover)/5)
	visScore := math.Max(0, math.Min(vis/maxVisibilityMiles, 1.0)) * 10

	return int(math.Floor(cloudScore*cloudWeight + visScore*visibilityWeight))
}

// Fog scores fogginess in [0,10], rounded to one decimal. The result is nil
// when cloud cover is unknown.
func Fog(visibility, cloudCover *float64) *float64 {
	if cloudCover == nil {
		return nil
	}
	if visibility == nil {
		score := Round(math.Min(math.Max(*cloudCover/10, 0), 10), 1)
		return &score
	}

	raw := 10 - math.Min(*visibility, maxVisibilityMiles) + *cloudCover/20
	score := Round(math.Min(math.Max(raw, 0), 10), 1)
	return &score
}

// FogSample is one hourly fog reading with its derived score.
type FogSample struct {
	Time       time.Time
	Visibility *float64
	CloudCover *float64
	FogScore   *float64
}

func NewFogSample(at time.Time, visibility, cloudCover *float64) FogSample {
	return FogSample{
		Time:       at,
		Visibility: visibility,
		CloudCover: cloudCover,
		FogScore:   Fog(visibility, cloudCover),
	}
}

// HourReading is the minimal hourly input for HourScores.
type HourReading struct {
	Hour       int
	CloudCover *float64
	Visibility *float64
}

// HourScores rates the forecast hour matching sunriseHour and the one
// matching sunsetHour. A repeated hour (DST fall-back) is scored from its
// last reading, and sunrise takes precedence when both hours coincide.
// Unmatched hours score 0.
func HourScores(hours []HourReading, sunriseHour, sunsetHour int) (sunrise, sunset int) {
	for _, h := range hours {
		switch h.Hour {
		case sunriseHour:
			sunrise = CloudVisibility(h.CloudCover, h.Visibility)
		case sunsetHour:
			sunset = CloudVisibility(h.CloudCover, h.Visibility)
		}
	}
	return sunrise, sunset
}

// NormalizeMoonPhase maps a lunar-day count onto the [0,1) phase fraction.
// Values already in [0,1] are returned unchanged.
func NormalizeMoonPhase(value float64) float64 {
	if value >= 0 && value <= 1 {
		return value
	}
	days := math.Mod(value, lunarCycleDays)
	if days < 0 {
		days += lunarCycleDays
	}
	return days / lunarCycleDays
}

// MoonLabel names the moon phase for a fraction in [0,1] (0 new, 0.5 full).
// Values outside [0,1] are treated as lunar-day counts.
func MoonLabel(phase *float64) string {
	if phase == nil {
		return "Unknown"
	}
	v := NormalizeMoonPhase(*phase)
	switch {
	case v == 0:
		return "New Moon"
	case v < 0.25:
		return "Waxing Crescent"
	case v == 0.25:
		return "First Quarter"
	case v < 0.5:
		return "Waxing Gibbous"
	case v == 0.5:
		return "Full Moon"
	case v < 0.75:
		return "Waning Gibbous"
	case v == 0.75:
		return "Last Quarter"
	case v == 1:
		return "Full Moon"
	default:
		return "Waning Crescent"
	}
}

// Round rounds v to the given number of decimal places. Exact ties go to
// the even digit, so 0.125 becomes 0.12 at two places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(v*p) / p
}
