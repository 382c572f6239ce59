package schedule

import (
	"time"

	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

// NextRun computes when a recurring schedule should fire again, purely
// additive from the completed run's time. MONTHLY is a flat 30 days,
// calendar-naive. A misconfigured frequency falls back to hourly so a
// recurring record never stalls.
func NextRun(freq seo.Frequency, customMinutes int, from time.Time) time.Time {
	switch freq {
	case seo.FrequencyHourly:
		return from.Add(time.Hour)
	case seo.FrequencyDaily:
		return from.Add(24 * time.Hour)
	case seo.FrequencyWeekly:
		return from.Add(7 * 24 * time.Hour)
	case seo.FrequencyMonthly:
		return from.Add(30 * 24 * time.Hour)
	case seo.FrequencyCustom:
		if customMinutes > 0 {
			return from.Add(time.Duration(customMinutes) * time.Minute)
		}
		return from.Add(time.Hour)
	default:
		return from.Add(time.Hour)
	}
}
