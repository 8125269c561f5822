// Package twilight splits the pre-sunrise period into named light phases,
// scores each phase by the fog samples falling inside it and picks the best
// one to shoot.
package twilight

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"shootcast/internal/scoring"
)

// Phase names a twilight window.
type Phase string

const (
	Astronomical Phase = "Astronomical Twilight"
	Nautical     Phase = "Nautical Twilight"
	Civil        Phase = "Civil Twilight"
	GoldenHour   Phase = "Golden Hour"
)

const (
	goldenHourLength = time.Hour

	// ClockLayout is the display format for times of day.
	ClockLayout = "3:04 PM"

	lowFogThreshold = 5.0
	fallbackSummary = "Fog may linger around sunrise. Consider shooting at sunset or waiting for the fog to clear."
)

// Bounds holds the morning boundary instants. Zero values mean the provider
// did not report that boundary.
type Bounds struct {
	AstronomicalDawn time.Time
	NauticalDawn     time.Time
	CivilDawn        time.Time
	Sunrise          time.Time
}

// Window is one twilight phase and the mean fog score of the samples inside
// it. AvgFogScore is nil when no sample matched.
type Window struct {
	Phase       Phase
	Start       time.Time
	End         time.Time
	AvgFogScore *float64
}

// Recommendation is the window with the lowest mean fog score.
type Recommendation struct {
	Time     time.Time
	Phase    Phase
	FogScore float64
}

type Analysis struct {
	Windows        []Window
	Recommendation *Recommendation
	Summary        string
}

// Windows lays out the phases in chronological order. All three dawn
// boundaries give four windows, civil dawn alone gives Civil Twilight and
// Golden Hour, and sunrise alone gives only Golden Hour. Without a sunrise
// there are no windows.
func Windows(b Bounds) []Window {
	if b.Sunrise.IsZero() {
		return nil
	}

	golden := Window{Phase: GoldenHour, Start: b.Sunrise, End: b.Sunrise.Add(goldenHourLength)}

	switch {
	case !b.AstronomicalDawn.IsZero() && !b.NauticalDawn.IsZero() && !b.CivilDawn.IsZero():
		return []Window{
			{Phase: Astronomical, Start: b.AstronomicalDawn, End: b.NauticalDawn},
			{Phase: Nautical, Start: b.NauticalDawn, End: b.CivilDawn},
			{Phase: Civil, Start: b.CivilDawn, End: b.Sunrise},
			golden,
		}
	case !b.CivilDawn.IsZero():
		return []Window{
			{Phase: Civil, Start: b.CivilDawn, End: b.Sunrise},
			golden,
		}
	default:
		return []Window{golden}
	}
}

// Contains reports whether at lies in [Start, End].
func (w Window) Contains(at time.Time) bool {
	return !at.Before(w.Start) && !at.After(w.End)
}

// Analyze scores every window against samples and picks the recommendation.
// Samples without a fog score are ignored. A sample exactly on a shared
// boundary counts toward both adjacent windows.
func Analyze(b Bounds, samples []scoring.FogSample) Analysis {
	windows := Windows(b)

	var best *Recommendation
	for i := range windows {
		w := &windows[i]

		var sum float64
		var n int
		for _, s := range samples {
			if s.FogScore == nil || !w.Contains(s.Time) {
				continue
			}
			sum += *s.FogScore
			n++
		}
		if n == 0 {
			continue
		}

		avg := scoring.Round(sum/float64(n), 2)
		w.AvgFogScore = &avg

		if best == nil || avg < best.FogScore {
			best = &Recommendation{Time: w.Start, Phase: w.Phase, FogScore: avg}
		}
	}

	return Analysis{
		Windows:        windows,
		Recommendation: best,
		Summary:        Summary(best),
	}
}

// Summary renders the one-line shooting advice.
func Summary(rec *Recommendation) string {
	if rec == nil || rec.FogScore > lowFogThreshold {
		return fallbackSummary
	}
	return fmt.Sprintf("Best time to shoot: %s — low fog (%s) during %s.",
		rec.Time.Format(ClockLayout), FormatScore(rec.FogScore), rec.Phase)
}

// FormatScore prints the shortest decimal form of v, always keeping one
// fractional digit (3 -> "3.0", 4.25 -> "4.25").
func FormatScore(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
