package analytics

import (
	"fmt"
	"time"

	"beebi/backend/internal/activity"
	"beebi/backend/internal/stats"
)

const (
	NameDiaperFrequency = "diaper_frequency"
	NameDiaperType      = "diaper_type"
	NameDiaperTiming    = "diaper_timing"
	NameDiaperInterval  = "diaper_interval"
	NameDiaperAlert     = "diaper_alert"
)

const (
	AlertConsecutiveBigPoo = "consecutive_big_poo"
	AlertLongInterval      = "long_interval"
)

const minutesPerDay = 24 * 60

// SubjectFrequency is one subject's share of a grouped frequency report.
type SubjectFrequency struct {
	SubjectID            string  `json:"subject_id"`
	AverageChangesPerDay float64 `json:"average_changes_per_day"`
	Days                 int     `json:"days"`
}

// IntervalStats describes the gaps between consecutive changes. Nil fields mean fewer than two changes.
type IntervalStats struct {
	SubjectID            string   `json:"subject_id,omitempty"`
	AverageIntervalHours *float64 `json:"average_interval_hours"`
	MinIntervalHours     *float64 `json:"min_interval_hours"`
	MaxIntervalHours     *float64 `json:"max_interval_hours"`
	Count                int      `json:"count"`
}

// TimingBin is one equal-width slice of the day.
type TimingBin struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Alert is one anomaly found by DiaperAlert.
type Alert struct {
	Kind       string     `json:"kind"`
	Message    string     `json:"message"`
	StartIndex *int       `json:"start_index,omitempty"`
	Length     *int       `json:"length,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	GapHours   *float64   `json:"gap_hours,omitempty"`
}

func levelCounts(records []activity.Normalized, level func(activity.Normalized) *activity.Level) (map[string]int, int) {
	keys := make([]string, len(activity.Levels))
	for i, l := range activity.Levels {
		keys[i] = string(l)
	}
	counter := stats.NewCounter(keys...)
	for _, r := range records {
		if l := level(r); l != nil {
			counter.Add(string(*l))
		}
	}
	return counter.Counts(), counter.Total()
}

func peeLevel(r activity.Normalized) *activity.Level { return r.PeeLevel }
func pooLevel(r activity.Normalized) *activity.Level { return r.PooLevel }

func bySubject(records []activity.Normalized) ([]string, map[string][]activity.Normalized) {
	groups := make(map[string][]activity.Normalized)
	for _, r := range records {
		groups[r.SubjectID] = append(groups[r.SubjectID], r)
	}
	return stats.SortedKeys(groups), groups
}

func changesPerDay(records []activity.Normalized) (float64, int) {
	perDate := make(map[string]int)
	for _, r := range records {
		perDate[dateKey(r.StartTime)]++
	}
	counts := make([]float64, 0, len(perDate))
	for _, n := range perDate {
		counts = append(counts, float64(n))
	}
	mean, _ := stats.Mean(counts)
	return mean, len(perDate)
}

// DiaperFrequency reports the average number of changes per calendar day.
func DiaperFrequency(records []activity.Normalized, q Query, p Policy) Report {
	changes := window(records, q.Days)
	if len(changes) == 0 {
		return insufficientReport(NameDiaperFrequency, q, "No diaper changes recorded")
	}

	metrics := map[string]any{}
	var average float64
	if q.BySubject {
		subjects, groups := bySubject(changes)
		breakdown := make([]SubjectFrequency, 0, len(subjects))
		averages := make([]float64, 0, len(subjects))
		for _, id := range subjects {
			mean, days := changesPerDay(groups[id])
			breakdown = append(breakdown, SubjectFrequency{SubjectID: id, AverageChangesPerDay: stats.Round(mean, 2), Days: days})
			averages = append(averages, mean)
		}
		average, _ = stats.Mean(averages)
		metrics["subjects"] = breakdown
	} else {
		var days int
		average, days = changesPerDay(changes)
		metrics["days"] = days
	}
	pee, _ := levelCounts(changes, peeLevel)
	poo, _ := levelCounts(changes, pooLevel)

	metrics["average_changes_per_day"] = stats.Round(average, 2)
	metrics["total_changes"] = len(changes)
	metrics["pee_stats"] = pee
	metrics["poo_stats"] = poo

	summary := fmt.Sprintf("%.1f diaper changes per day on average %s.", average, scope(q.Days))
	if q.BySubject {
		summary = fmt.Sprintf("%.1f diaper changes per day on average %s, grouped by subject.", average, scope(q.Days))
	}
	return okReport(NameDiaperFrequency, q, metrics, summary,
		"Adjust the care plan to the change frequency and output amounts.")
}

// DiaperType reports the pee and poo level distributions.
func DiaperType(records []activity.Normalized, q Query, p Policy) Report {
	changes := window(records, q.Days)
	if len(changes) == 0 {
		return insufficientReport(NameDiaperType, q, "No diaper changes recorded")
	}

	pee, peeCount := levelCounts(changes, peeLevel)
	poo, pooCount := levelCounts(changes, pooLevel)

	recommendation := "Keep an eye on the pee and poo distribution to spot changes early."
	if peeCount == 0 && pooCount == 0 {
		recommendation = "No pee or poo levels were annotated; log them as pee:<level> or poo:<level> to enable this analysis."
	}
	return okReport(NameDiaperType, q, map[string]any{
		"pee_stats": pee,
		"poo_stats": poo,
		"pee_count": peeCount,
		"poo_count": pooCount,
	},
		fmt.Sprintf("%d changes with pee and %d with poo %s.", peeCount, pooCount, scope(q.Days)),
		recommendation,
	)
}

func binEdges(bins int) []int {
	edges := make([]int, bins+1)
	for i := range edges {
		edges[i] = i * minutesPerDay / bins
	}
	return edges
}

func binLabel(from, to int) string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", from/60, from%60, to/60, to%60)
}

// DiaperTiming counts changes in equal-width slices of the day.
func DiaperTiming(records []activity.Normalized, q Query, p Policy) Report {
	changes := window(records, q.Days)
	if len(changes) == 0 {
		return insufficientReport(NameDiaperTiming, q, "No diaper changes recorded")
	}

	bins := q.Bins
	if bins <= 0 {
		bins = p.Diaper.TimingBins
	}
	if bins <= 0 {
		bins = DefaultPolicy().Diaper.TimingBins
	}
	bins = min(bins, minutesPerDay)
	edges := binEdges(bins)

	counts := make([]int, bins)
	for _, r := range changes {
		minute := r.StartTime.Hour()*60 + r.StartTime.Minute()
		for i := 0; i < bins; i++ {
			if minute >= edges[i] && minute < edges[i+1] {
				counts[i]++
				break
			}
		}
	}

	distribution := make([]TimingBin, bins)
	peak := 0
	for i, n := range counts {
		distribution[i] = TimingBin{
			Label:   binLabel(edges[i], edges[i+1]),
			Count:   n,
			Percent: stats.Percent(n, len(changes)),
		}
		if n > counts[peak] {
			peak = i
		}
	}
	share := float64(counts[peak]) / float64(len(changes))
	concentrated := share > p.Diaper.ConcentrationRatio

	pattern := "Changes are spread fairly evenly across the day."
	if concentrated {
		pattern = fmt.Sprintf("Changes are concentrated in %s.", distribution[peak].Label)
	}
	return okReport(NameDiaperTiming, q, map[string]any{
		"bins":         distribution,
		"peak_bin":     distribution[peak].Label,
		"peak_share":   stats.Round(share, 2),
		"concentrated": concentrated,
	},
		fmt.Sprintf("Diaper change timing %s across %d slices. %s", scope(q.Days), bins, pattern),
		"Watch for clustered or irregular change times and plan care accordingly.",
	)
}

func intervalStats(subjectID string, records []activity.Normalized) IntervalStats {
	gaps := stats.Gaps(startTimes(records))
	out := IntervalStats{SubjectID: subjectID, Count: len(gaps)}
	mean, ok := stats.Mean(gaps)
	if !ok {
		return out
	}
	lo, hi, _ := stats.MinMax(gaps)
	out.AverageIntervalHours = optional(mean, true, 2)
	out.MinIntervalHours = optional(lo, true, 2)
	out.MaxIntervalHours = optional(hi, true, 2)
	return out
}

// DiaperInterval describes the gaps between consecutive changes, optionally per subject.
func DiaperInterval(records []activity.Normalized, q Query, p Policy) Report {
	changes := window(records, q.Days)
	if len(changes) < 2 {
		return insufficientReport(NameDiaperInterval, q, "Too few diaper changes to measure intervals")
	}

	metrics := map[string]any{}
	var overall IntervalStats
	if q.BySubject {
		subjects, groups := bySubject(changes)
		breakdown := make([]IntervalStats, 0, len(subjects))
		var gaps []float64
		for _, id := range subjects {
			breakdown = append(breakdown, intervalStats(id, groups[id]))
			gaps = append(gaps, stats.Gaps(startTimes(groups[id]))...)
		}
		metrics["subjects"] = breakdown
		overall = IntervalStats{Count: len(gaps)}
		if mean, ok := stats.Mean(gaps); ok {
			lo, hi, _ := stats.MinMax(gaps)
			overall.AverageIntervalHours = optional(mean, true, 2)
			overall.MinIntervalHours = optional(lo, true, 2)
			overall.MaxIntervalHours = optional(hi, true, 2)
		}
	} else {
		overall = intervalStats("", changes)
	}
	if overall.AverageIntervalHours == nil {
		return insufficientReport(NameDiaperInterval, q, "Too few diaper changes per subject to measure intervals")
	}

	metrics["average_interval_hours"] = overall.AverageIntervalHours
	metrics["min_interval_hours"] = overall.MinIntervalHours
	metrics["max_interval_hours"] = overall.MaxIntervalHours
	metrics["count"] = overall.Count

	return okReport(NameDiaperInterval, q, metrics,
		fmt.Sprintf("Diapers were changed every %.2f hours on average %s.", *overall.AverageIntervalHours, scope(q.Days)),
		"Keep change intervals from growing too long or too short.",
	)
}

// DiaperAlert flags runs of big poo and overly long gaps between changes.
func DiaperAlert(records []activity.Normalized, q Query, p Policy) Report {
	changes := window(records, q.Days)
	if len(changes) == 0 {
		return insufficientReport(NameDiaperAlert, q, "No diaper changes recorded")
	}

	threshold := q.BigPooThreshold
	if threshold <= 0 {
		threshold = p.Diaper.BigPooRun
	}
	maxHours := q.MaxIntervalHours
	if maxHours <= 0 {
		maxHours = p.Diaper.MaxIntervalHours
	}

	alerts := []Alert{}
	isBig := func(i int) bool {
		return changes[i].PooLevel != nil && *changes[i].PooLevel == activity.Big
	}
	for _, run := range stats.Runs(len(changes), isBig, threshold) {
		start, length := run.Start, run.Length
		from := changes[start].StartTime
		to := changes[start+length-1].StartTime
		alerts = append(alerts, Alert{
			Kind:       AlertConsecutiveBigPoo,
			Message:    fmt.Sprintf("%d consecutive big poos starting at change #%d.", length, start+1),
			StartIndex: &start,
			Length:     &length,
			From:       &from,
			To:         &to,
		})
	}

	for i := 1; i < len(changes); i++ {
		gap := changes[i].StartTime.Sub(changes[i-1].StartTime).Hours()
		if gap <= maxHours {
			continue
		}
		from := changes[i-1].StartTime
		to := changes[i].StartTime
		rounded := stats.Round(gap, 1)
		alerts = append(alerts, Alert{
			Kind: AlertLongInterval,
			Message: fmt.Sprintf("No change between %s and %s; the gap exceeds %g hours (actual %.1f hours).",
				from.Format(time.DateTime), to.Format(time.DateTime), maxHours, gap),
			From:     &from,
			To:       &to,
			GapHours: &rounded,
		})
	}

	summary := "No anomalies found " + scope(q.Days) + "."
	if len(alerts) > 0 {
		summary = fmt.Sprintf("Found %d alerts %s.", len(alerts), scope(q.Days))
	}
	return okReport(NameDiaperAlert, q, map[string]any{
		"alerts":      alerts,
		"alert_count": len(alerts),
	},
		summary,
		"Review the alerts and adjust the care plan promptly.",
	)
}
