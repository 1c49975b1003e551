package irradiance

import "time"

// Summarize reduces a series to its peak and total irradiation.
// Irradiation sums GHI × period length; points without a period label
// use the spacing to the previous point.
func Summarize(s Series) Summary {
	if len(s) == 0 {
		return Summary{}
	}

	var (
		peak   = s[0]
		energy float64
	)

	for i, p := range s {
		if p.GHI > peak.GHI {
			peak = p
		}

		period := p.Period
		if period == 0 && i > 0 {
			period = p.Time.Sub(s[i-1].Time)
		}
		energy += p.GHI * period.Hours()
	}

	return Summary{
		Points:      len(s),
		PeakGHI:     peak.GHI,
		PeakAt:      peak.Time,
		EnergyKWhM2: energy / 1000,
		From:        s[0].Time,
		To:          s[len(s)-1].Time,
	}
}

// Between returns the points whose time falls in [from, to).
func (s Series) Between(from, to time.Time) Series {
	var out Series
	for _, p := range s {
		if !p.Time.Before(from) && p.Time.Before(to) {
			out = append(out, p)
		}
	}
	return out
}
