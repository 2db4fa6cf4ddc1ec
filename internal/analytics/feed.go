package analytics

import (
	"fmt"

	"beebi/backend/internal/activity"
	"beebi/backend/internal/stats"
)

const (
	NameFeedVolume      = "feed_volume"
	NameFeedInterval    = "feed_interval"
	NameFeedConsistency = "feed_consistency"
	NameFeedTimeOfDay   = "feed_time_of_day"
	NameFeedTypeRatio   = "feed_type_ratio"
)

const (
	periodMorning = "Morning"
	periodNoon    = "Noon"
	periodEvening = "Evening"
	periodNight   = "Night"
)

// FeedVolume summarises recorded feed volumes and bands the mean per-feed volume.
func FeedVolume(records []activity.Normalized, q Query, p Policy) Report {
	feeds := window(filter(records, func(r activity.Normalized) bool { return r.VolumeML != nil }), q.Days)
	if len(feeds) == 0 {
		return insufficientReport(NameFeedVolume, q, "No feeds with a recorded volume")
	}

	total := 0
	volumes := make([]float64, 0, len(feeds))
	days := make(map[string]struct{})
	for _, r := range feeds {
		total += *r.VolumeML
		volumes = append(volumes, float64(*r.VolumeML))
		days[dateKey(r.StartTime)] = struct{}{}
	}
	mean, _ := stats.Mean(volumes)

	dayCount := len(days)
	if q.Days != nil && *q.Days > 0 {
		dayCount = *q.Days
	}
	perDay := float64(len(feeds)) / float64(dayCount)

	var band, recommendation string
	switch stats.Classify(mean, p.Feed.LowVolumeML, p.Feed.HighVolumeML) {
	case stats.Below:
		band = "Low"
		recommendation = "Intake per feed is on the low side. Watch for weak sucking or feeds spaced too closely."
	case stats.Above:
		band = "High"
		recommendation = "Intake per feed is on the high side. Watch for spit-up or gassiness after feeds."
	default:
		band = "Normal"
		recommendation = "Intake per feed is in a healthy range. Keep the current feeding plan."
	}

	return okReport(NameFeedVolume, q, map[string]any{
		"total_volume_ml":   total,
		"feed_count":        len(feeds),
		"average_volume_ml": stats.Round(mean, 1),
		"feeds_per_day":     stats.Round(perDay, 2),
		"volume_band":       band,
	},
		fmt.Sprintf("%d feeds recorded %s, %d ml in total, %.1f ml per feed on average.", len(feeds), scope(q.Days), total, mean),
		recommendation,
	)
}

// FeedInterval describes the gaps between consecutive feeds.
func FeedInterval(records []activity.Normalized, q Query, p Policy) Report {
	feeds := window(records, q.Days)
	if len(feeds) < 2 {
		return insufficientReport(NameFeedInterval, q, "Too few feeds to measure intervals")
	}

	gaps := stats.Gaps(startTimes(feeds))
	mean, _ := stats.Mean(gaps)
	lo, hi, _ := stats.MinMax(gaps)
	std, stdOK := stats.StdDev(gaps)

	var regularity *string
	recommendation := "Only one interval was recorded. Log a few more feeds to judge regularity."
	if stdOK {
		label := "Moderate"
		recommendation = "Feeding intervals vary somewhat, which is generally normal."
		switch stats.Classify(std, p.Feed.RegularStdHours, p.Feed.IrregularStdHours) {
		case stats.Below:
			label = "Regular"
			recommendation = "Feeding intervals are very regular."
		case stats.Above:
			label = "Irregular"
			recommendation = "Feeding intervals vary widely. The schedule may be inconsistent or some feeds may not have been logged."
		}
		regularity = &label
	}

	return okReport(NameFeedInterval, q, map[string]any{
		"average_interval_hours": stats.Round(mean, 1),
		"min_interval_hours":     stats.Round(lo, 1),
		"max_interval_hours":     stats.Round(hi, 1),
		"std_dev_hours":          optional(std, stdOK, 2),
		"regularity":             regularity,
	},
		fmt.Sprintf("Feeds %s came every %.1f hours on average (shortest %.1f, longest %.1f).", scope(q.Days), mean, lo, hi),
		recommendation,
	)
}

// FeedConsistency reports the coefficient of variation of feed intervals and volumes.
func FeedConsistency(records []activity.Normalized, q Query, p Policy) Report {
	feeds := window(records, q.Days)
	if len(feeds) < 2 {
		return insufficientReport(NameFeedConsistency, q, "Too few feeds to measure variability")
	}

	intervalCV, intervalOK := stats.CV(stats.Gaps(startTimes(feeds)))
	var volumes []float64
	for _, r := range feeds {
		if r.VolumeML != nil {
			volumes = append(volumes, float64(*r.VolumeML))
		}
	}
	volumeCV, volumeOK := stats.CV(volumes)

	intervalPattern := cvPattern(intervalCV, intervalOK, p.Feed)
	volumePattern := cvPattern(volumeCV, volumeOK, p.Feed)

	recommendation := fmt.Sprintf(
		"Timing is %s and volume is %s. If either is unstable, watch the baby's mood and the feeding routine, and ask a pediatrician when in doubt.",
		describePattern(intervalPattern), describePattern(volumePattern),
	)

	return okReport(NameFeedConsistency, q, map[string]any{
		"interval_cv":      optional(intervalCV, intervalOK, 3),
		"volume_cv":        optional(volumeCV, volumeOK, 3),
		"interval_pattern": intervalPattern,
		"volume_pattern":   volumePattern,
	},
		fmt.Sprintf("Variability of feeding times and volumes %s.", scope(q.Days)),
		recommendation,
	)
}

func cvPattern(cv float64, ok bool, p FeedPolicy) *string {
	if !ok {
		return nil
	}
	label := "Moderate"
	switch stats.Classify(cv, p.StableCV, p.UnstableCV) {
	case stats.Below:
		label = "Stable"
	case stats.Above:
		label = "Unstable"
	}
	return &label
}

func describePattern(pattern *string) string {
	if pattern == nil {
		return "not measurable"
	}
	switch *pattern {
	case "Stable":
		return "stable"
	case "Unstable":
		return "unstable"
	default:
		return "moderately variable"
	}
}

func feedPeriod(hour int) string {
	switch {
	case hour >= 6 && hour < 10:
		return periodMorning
	case hour >= 10 && hour < 14:
		return periodNoon
	case hour >= 17 && hour < 20:
		return periodEvening
	default:
		return periodNight
	}
}

// FeedTimeOfDay distributes feeds over the four day periods.
func FeedTimeOfDay(records []activity.Normalized, q Query, p Policy) Report {
	feeds := window(records, q.Days)
	if len(feeds) == 0 {
		return insufficientReport(NameFeedTimeOfDay, q, "No feeds recorded")
	}

	counter := stats.NewCounter(periodMorning, periodNoon, periodEvening, periodNight)
	for _, r := range feeds {
		counter.Add(feedPeriod(r.StartTime.Hour()))
	}
	peak, _ := counter.Peak()
	distribution := counter.Percentages()

	recommendation := fmt.Sprintf(
		"Most feeds happen in the %s period (%.1f%%). Plan feeds around that peak so the baby is neither overly hungry nor fed too often.",
		peak, distribution[peak],
	)
	if peak == periodNight {
		recommendation += " Frequent night feeds may ease with a calmer sleep environment."
	}

	return okReport(NameFeedTimeOfDay, q, map[string]any{
		"distribution": distribution,
		"counts":       counter.Counts(),
		"peak_period":  peak,
	},
		fmt.Sprintf("Feeds %s peak in the %s period.", scope(q.Days), peak),
		recommendation,
	)
}

// FeedTypeRatio reports the breast and formula shares and the trend of the daily breast share.
func FeedTypeRatio(records []activity.Normalized, q Query, p Policy) Report {
	typed := filter(window(records, q.Days), func(r activity.Normalized) bool { return r.FeedType != nil })
	if len(typed) == 0 {
		return insufficientReport(NameFeedTypeRatio, q, "No feeds with a breast or formula annotation")
	}

	breast := 0
	var dates []string
	daily := make(map[string][2]int)
	for _, r := range typed {
		key := dateKey(r.StartTime)
		if _, seen := daily[key]; !seen {
			dates = append(dates, key)
		}
		counts := daily[key]
		if *r.FeedType == activity.Breast {
			breast++
			counts[0]++
		}
		counts[1]++
		daily[key] = counts
	}
	breastRatio := float64(breast) / float64(len(typed))
	formulaRatio := 1 - breastRatio

	trend := "Stable"
	if len(dates) >= 2 {
		first := daily[dates[0]]
		last := daily[dates[len(dates)-1]]
		firstRatio := float64(first[0]) / float64(first[1])
		lastRatio := float64(last[0]) / float64(last[1])
		switch {
		case lastRatio > firstRatio:
			trend = "Rising"
		case lastRatio < firstRatio:
			trend = "Falling"
		}
	}

	return okReport(NameFeedTypeRatio, q, map[string]any{
		"breast_ratio":  stats.Round(breastRatio, 2),
		"formula_ratio": stats.Round(formulaRatio, 2),
		"breast_count":  breast,
		"formula_count": len(typed) - breast,
		"trend":         trend,
	},
		fmt.Sprintf("Breast milk made up about %.0f%% and formula about %.0f%% of feeds %s; the breast milk share is %s.",
			breastRatio*100, formulaRatio*100, scope(q.Days), trendPhrase(trend)),
		"Adjust the mixed feeding plan according to the current ratio.",
	)
}

func trendPhrase(trend string) string {
	switch trend {
	case "Rising":
		return "rising"
	case "Falling":
		return "falling"
	default:
		return "steady"
	}
}
