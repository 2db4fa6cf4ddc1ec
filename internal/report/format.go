package report

import (
	"fmt"
	"strings"

	"beebi/backend/internal/analytics"
)

const notAvailable = "N/A"

type document struct {
	b       strings.Builder
	section int
}

func newDocument(kind string, days *int) *document {
	d := &document{}
	d.b.WriteString(title(kind, days))
	d.b.WriteString("\n")
	return d
}

func title(kind string, days *int) string {
	switch {
	case days == nil:
		return kind + " Report for All Recorded History"
	case *days == 1:
		return kind + " Report for the Last Day"
	default:
		return fmt.Sprintf("%s Report for the Last %d Days", kind, *days)
	}
}

func (d *document) heading(name string) {
	d.section++
	fmt.Fprintf(&d.b, "\n%d. %s:\n", d.section, name)
}

func (d *document) line(format string, args ...any) {
	d.b.WriteString("- ")
	fmt.Fprintf(&d.b, format, args...)
	d.b.WriteString("\n")
}

// unavailable writes the report's summary when it carries no metrics and reports whether it did.
func (d *document) unavailable(r analytics.Report, ok bool) bool {
	if !ok {
		d.line("Not analyzed.")
		return true
	}
	if r.Status == analytics.StatusOK {
		return false
	}
	if r.Status == analytics.StatusError {
		d.line("Analysis failed: %s", r.Error)
		return true
	}
	d.line("%s", r.Summary)
	return true
}

func (d *document) suggestions(reports []analytics.Report) {
	d.heading("Suggestions")
	written := 0
	for _, r := range reports {
		if r.Status == analytics.StatusOK && r.Recommendation != "" {
			d.line("%s", r.Recommendation)
			written++
		}
	}
	if written == 0 {
		d.line("Not enough data for suggestions yet.")
	}
}

func (d *document) String() string {
	return strings.TrimRight(d.b.String(), "\n")
}

// value renders one metric, dereferencing optional numbers and strings.
func value(r analytics.Report, key string) string {
	v, ok := r.Metrics[key]
	if !ok {
		return notAvailable
	}
	switch x := v.(type) {
	case nil:
		return notAvailable
	case *float64:
		if x == nil {
			return notAvailable
		}
		return fmt.Sprintf("%g", *x)
	case *string:
		if x == nil {
			return notAvailable
		}
		return *x
	case float64:
		return fmt.Sprintf("%g", x)
	case []string:
		if len(x) == 0 {
			return "none"
		}
		return strings.Join(x, ", ")
	default:
		return fmt.Sprint(x)
	}
}

func count(r analytics.Report, key, bucket string) int {
	switch m := r.Metrics[key].(type) {
	case map[string]int:
		return m[bucket]
	case map[string]float64:
		return int(m[bucket])
	}
	return 0
}

func formatFeed(days *int, byName map[string]analytics.Report, reports []analytics.Report) string {
	d := newDocument("Feeding", days)

	d.heading("Feeding Volume Overview")
	if r, ok := byName[analytics.NameFeedVolume]; !d.unavailable(r, ok) {
		d.line("Total volume: %s ml", value(r, "total_volume_ml"))
		d.line("Average per feed: %s ml", value(r, "average_volume_ml"))
		d.line("Feeds per day: %s", value(r, "feeds_per_day"))
		d.line("Volume band: %s", value(r, "volume_band"))
	}

	d.heading("Feeding Type Ratio")
	if r, ok := byName[analytics.NameFeedTypeRatio]; !d.unavailable(r, ok) {
		d.line("Breast milk ratio: %s", value(r, "breast_ratio"))
		d.line("Formula ratio: %s", value(r, "formula_ratio"))
		d.line("Breast milk trend: %s", value(r, "trend"))
		d.line("Type summary: %s", r.Summary)
	}

	d.heading("Time of Day Distribution")
	if r, ok := byName[analytics.NameFeedTimeOfDay]; !d.unavailable(r, ok) {
		for _, period := range []string{"Morning", "Noon", "Evening", "Night"} {
			d.line("%s: %d feeds", period, count(r, "counts", period))
		}
		d.line("Time summary: %s", r.Summary)
	}

	d.heading("Feeding Interval Consistency")
	if r, ok := byName[analytics.NameFeedInterval]; !d.unavailable(r, ok) {
		d.line("Average interval: %s hours", value(r, "average_interval_hours"))
		d.line("Min interval: %s hours", value(r, "min_interval_hours"))
		d.line("Max interval: %s hours", value(r, "max_interval_hours"))
		d.line("Std deviation: %s", value(r, "std_dev_hours"))
		d.line("Regularity: %s", value(r, "regularity"))
	}

	d.heading("Feed Consistency (Volume & Timing)")
	if r, ok := byName[analytics.NameFeedConsistency]; !d.unavailable(r, ok) {
		d.line("Time variability (CV): %s", value(r, "interval_cv"))
		d.line("Volume variability (CV): %s", value(r, "volume_cv"))
		d.line("Time pattern: %s", value(r, "interval_pattern"))
		d.line("Volume pattern: %s", value(r, "volume_pattern"))
	}

	d.suggestions(reports)
	return d.String()
}

func formatSleep(days *int, byName map[string]analytics.Report, reports []analytics.Report) string {
	d := newDocument("Sleep", days)

	sessions, sessionsOK := byName[analytics.NameSleepSessions]
	d.heading("Overview")
	if !d.unavailable(sessions, sessionsOK) {
		d.line("Total days analyzed: %s", value(sessions, "days_analyzed"))
		d.line("Total sleep sessions: %s", value(sessions, "total_sessions"))
		d.line("Average sleep per day: %s hours", value(sessions, "avg_hours_per_day"))
		d.line("Average duration per session: %s minutes", value(sessions, "avg_duration_per_session_minutes"))
	}

	d.heading("Sleep Quality Distribution")
	if !d.unavailable(sessions, sessionsOK) {
		for _, q := range []string{"Poor", "Good", "Rich"} {
			d.line("%s quality sleeps: %d", q, count(sessions, "quality_distribution", q))
		}
	}

	pattern, patternOK := byName[analytics.NameSleepPattern]
	d.heading("Sleep Timing Distribution")
	if !d.unavailable(pattern, patternOK) {
		d.line("Morning (6 AM - 12 PM): %d sessions", count(pattern, "segment_distribution", "Morning"))
		d.line("Afternoon (12 PM - 6 PM): %d sessions", count(pattern, "segment_distribution", "Afternoon"))
		d.line("Evening (6 PM - 12 AM): %d sessions", count(pattern, "segment_distribution", "Evening"))
		d.line("Overnight (12 AM - 6 AM): %d sessions", count(pattern, "segment_distribution", "Overnight"))
	}

	d.heading("Sleep Regularity")
	if !d.unavailable(pattern, patternOK) {
		d.line("Sleep onset spread: %s hours", value(pattern, "onset_drift_hours"))
		d.line("Std deviation of sleep duration: %s minutes", value(pattern, "duration_std_minutes"))
		d.line("Profile: %s", value(pattern, "profile"))
	}

	d.heading("Anomaly Detection")
	if r, ok := byName[analytics.NameSleepAnomaly]; !d.unavailable(r, ok) {
		d.line("Days with large sleep changes: %s", value(r, "duration_jump_days"))
		d.line("Days with missed naps: %s", value(r, "missed_nap_days"))
		d.line("Average naps per day: %s", value(r, "average_naps_per_day"))
	}

	d.suggestions(reports)
	return d.String()
}

func formatDiaper(days *int, byName map[string]analytics.Report, reports []analytics.Report) string {
	d := newDocument("Diaper", days)

	d.heading("Change Frequency")
	if r, ok := byName[analytics.NameDiaperFrequency]; !d.unavailable(r, ok) {
		d.line("Average changes per day: %s", value(r, "average_changes_per_day"))
		d.line("Total changes: %s", value(r, "total_changes"))
		if subjects, ok := r.Metrics["subjects"].([]analytics.SubjectFrequency); ok {
			for _, s := range subjects {
				d.line("Subject %s: %g changes per day over %d days", s.SubjectID, s.AverageChangesPerDay, s.Days)
			}
		}
	}

	d.heading("Pee and Poo Distribution")
	if r, ok := byName[analytics.NameDiaperType]; !d.unavailable(r, ok) {
		for _, kind := range []string{"pee", "poo"} {
			key := kind + "_stats"
			d.line("%s: small %d, medium %d, big %d", strings.ToUpper(kind[:1])+kind[1:],
				count(r, key, "small"), count(r, key, "medium"), count(r, key, "big"))
		}
	}

	d.heading("Change Timing")
	if r, ok := byName[analytics.NameDiaperTiming]; !d.unavailable(r, ok) {
		if bins, ok := r.Metrics["bins"].([]analytics.TimingBin); ok {
			for _, b := range bins {
				d.line("%s: %d changes (%g%%)", b.Label, b.Count, b.Percent)
			}
		}
		d.line("Busiest slice: %s", value(r, "peak_bin"))
	}

	d.heading("Change Intervals")
	if r, ok := byName[analytics.NameDiaperInterval]; !d.unavailable(r, ok) {
		d.line("Average interval: %s hours", value(r, "average_interval_hours"))
		d.line("Min interval: %s hours", value(r, "min_interval_hours"))
		d.line("Max interval: %s hours", value(r, "max_interval_hours"))
	}

	d.heading("Alerts")
	if r, ok := byName[analytics.NameDiaperAlert]; !d.unavailable(r, ok) {
		alerts, _ := r.Metrics["alerts"].([]analytics.Alert)
		if len(alerts) == 0 {
			d.line("No alerts.")
		}
		for _, a := range alerts {
			d.line("%s", a.Message)
		}
	}

	d.suggestions(reports)
	return d.String()
}
