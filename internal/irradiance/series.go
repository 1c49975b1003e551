package irradiance

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Year-first layouts accepted for the Period End column.
var periodEndLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParsePeriodEnd parses a period-end timestamp and returns it in UTC.
func ParsePeriodEnd(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range periodEndLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised period end %q", s)
}

// ParsePeriod converts an ISO 8601 duration label such as "PT30M".
// Unknown labels yield zero.
func ParsePeriod(s string) time.Duration {
	m := isoDuration.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		d += time.Duration(n) * u
	}
	return d
}

// ForecastSeries converts forecast rows into a sorted series shifted by offsetHours.
func ForecastSeries(recs []Forecast, offsetHours int) (Series, error) {
	out := make(Series, 0, len(recs))
	for _, r := range recs {
		p, err := newPoint(r.PeriodEnd, r.GHI, r.Period, offsetHours)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	out.Sort()
	return out, nil
}

// ActualSeries converts estimated actual rows into a sorted series shifted by offsetHours.
func ActualSeries(recs []Actual, offsetHours int) (Series, error) {
	out := make(Series, 0, len(recs))
	for _, r := range recs {
		p, err := newPoint(r.PeriodEnd, r.GHI, r.Period, offsetHours)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	out.Sort()
	return out, nil
}

// Sort orders the series by time ascending. Equal timestamps keep input order.
func (s Series) Sort() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })
}

func newPoint(periodEnd string, ghi float64, period string, offsetHours int) (Point, error) {
	ts, err := ParsePeriodEnd(periodEnd)
	if err != nil {
		return Point{}, err
	}
	return Point{
		Time:   ts.Add(time.Duration(offsetHours) * time.Hour),
		GHI:    ghi,
		Period: ParsePeriod(period),
	}, nil
}
