package analytics

import (
	"fmt"
	"math"

	"beebi/backend/internal/activity"
	"beebi/backend/internal/stats"
)

const (
	NameSleepSessions = "sleep_sessions"
	NameSleepPattern  = "sleep_pattern"
	NameSleepAnomaly  = "sleep_anomaly"
)

const (
	qualityPoor = "Poor"
	qualityGood = "Good"
	qualityRich = "Rich"

	segmentMorning   = "Morning"
	segmentAfternoon = "Afternoon"
	segmentEvening   = "Evening"
	segmentOvernight = "Overnight"
)

const (
	ProfileLongNightWithNaps = "Long night sleep with regular naps"
	ProfileFragmented        = "Frequent naps, fragmented sleep"
	ProfileLongNight         = "Consistent long night sleep"
	ProfileIrregular         = "Irregular sleep pattern"
)

type session struct {
	activity.Normalized
	minutes float64
}

// sessions keeps sleep records with a known duration, inside the window.
func sessions(records []activity.Normalized, days *int) []session {
	var out []session
	for _, r := range window(records, days) {
		if minutes, ok := r.Duration(); ok {
			out = append(out, session{Normalized: r, minutes: minutes})
		}
	}
	return out
}

func startHour(s session) float64 {
	return float64(s.StartTime.Hour()) + float64(s.StartTime.Minute())/60
}

// SleepSessions reports per-day totals and the quality of each session.
func SleepSessions(records []activity.Normalized, q Query, p Policy) Report {
	all := sessions(records, q.Days)
	if len(all) == 0 {
		return insufficientReport(NameSleepSessions, q, "No sleep sessions with a duration")
	}

	quality := stats.NewCounter(qualityPoor, qualityGood, qualityRich)
	days := make(map[string]struct{})
	minutes := make([]float64, 0, len(all))
	totalMinutes := 0.0
	for _, s := range all {
		days[dateKey(s.StartTime)] = struct{}{}
		minutes = append(minutes, s.minutes)
		totalMinutes += s.minutes
		switch stats.Classify(s.minutes/60, p.Sleep.PoorHours, p.Sleep.RichHours) {
		case stats.Below:
			quality.Add(qualityPoor)
		case stats.Above:
			quality.Add(qualityRich)
		default:
			quality.Add(qualityGood)
		}
	}
	avgSession, _ := stats.Mean(minutes)
	totalHours := totalMinutes / 60
	perDay := totalHours / float64(len(days))

	recommendation := "Sleep sessions look healthy overall."
	if quality.Count(qualityPoor) > quality.Total()/2 {
		recommendation = "Most sessions are shorter than ideal. A consistent wind-down routine may help the baby sleep longer."
	}

	return okReport(NameSleepSessions, q, map[string]any{
		"days_analyzed":                    len(days),
		"total_sessions":                   len(all),
		"total_hours":                      stats.Round(totalHours, 2),
		"avg_hours_per_day":                stats.Round(perDay, 2),
		"avg_duration_per_session_minutes": stats.Round(avgSession, 2),
		"quality_distribution":             quality.Counts(),
	},
		fmt.Sprintf("%d sleep sessions over %d days %s, %.2f hours per day on average.", len(all), len(days), scope(q.Days), perDay),
		recommendation,
	)
}

func sleepSegment(hour float64) string {
	switch {
	case hour >= 6 && hour < 12:
		return segmentMorning
	case hour >= 12 && hour < 18:
		return segmentAfternoon
	case hour >= 18 && hour < 24:
		return segmentEvening
	default:
		return segmentOvernight
	}
}

// SleepPattern buckets sessions by onset and derives a qualitative profile.
func SleepPattern(records []activity.Normalized, q Query, p Policy) Report {
	all := sessions(records, q.Days)
	if len(all) == 0 {
		return insufficientReport(NameSleepPattern, q, "No sleep sessions with a duration")
	}

	segments := stats.NewCounter(segmentMorning, segmentAfternoon, segmentEvening, segmentOvernight)
	hours := make([]float64, 0, len(all))
	minutes := make([]float64, 0, len(all))
	naps, longNights := 0, 0
	for _, s := range all {
		hour := startHour(s)
		segment := sleepSegment(hour)
		segments.Add(segment)
		hours = append(hours, hour)
		minutes = append(minutes, s.minutes)

		switch {
		case (segment == segmentMorning || segment == segmentAfternoon) && s.minutes < p.Sleep.NapMaxMinutes:
			naps++
		case segment == segmentOvernight && s.minutes >= p.Sleep.LongNightMinutes:
			longNights++
		}
	}

	lo, hi, _ := stats.MinMax(hours)
	std, stdOK := stats.StdDev(minutes)
	durationStd := optional(std, stdOK, 2)

	profile := sleepProfile(naps, longNights, p.Sleep)

	return okReport(NameSleepPattern, q, map[string]any{
		"segment_distribution": segments.Counts(),
		"onset_drift_hours":    stats.Round(hi-lo, 2),
		"duration_std_minutes": durationStd,
		"naps":                 naps,
		"long_night_sleeps":    longNights,
		"profile":              profile,
	},
		fmt.Sprintf("Sleep %s shows: %s (%d naps, %d long night sleeps).", scope(q.Days), profile, naps, longNights),
		profileRecommendation(profile),
	)
}

func sleepProfile(naps, longNights int, p SleepPolicy) string {
	switch {
	case longNights >= p.ProfileLongNights && naps >= p.ProfileNaps:
		return ProfileLongNightWithNaps
	case naps >= p.ProfileNaps:
		return ProfileFragmented
	case longNights >= p.ProfileLongNights:
		return ProfileLongNight
	default:
		return ProfileIrregular
	}
}

func profileRecommendation(profile string) string {
	switch profile {
	case ProfileLongNightWithNaps:
		return "Night sleep and naps are both well established. Keep the current routine."
	case ProfileFragmented:
		return "Sleep is split into many short naps. Longer awake windows during the day may consolidate night sleep."
	case ProfileLongNight:
		return "Night sleep is solid. Offer regular daytime naps to avoid overtiredness."
	default:
		return "Sleep times vary a lot. A consistent bedtime and nap schedule can help the baby settle into a rhythm."
	}
}

// SleepAnomaly flags day-over-day jumps in total sleep and days with too few naps.
func SleepAnomaly(records []activity.Normalized, q Query, p Policy) Report {
	all := sessions(records, q.Days)
	if len(all) == 0 {
		return insufficientReport(NameSleepAnomaly, q, "No sleep sessions with a duration")
	}

	totals := make(map[string]float64)
	napCounts := make(map[string]int)
	for _, s := range all {
		key := dateKey(s.StartTime)
		totals[key] += s.minutes
		hour := startHour(s)
		if hour >= 6 && hour < 18 && s.minutes < p.Sleep.NapMaxMinutes {
			napCounts[key]++
		}
	}
	dates := stats.SortedKeys(totals)

	jumpDays := []string{}
	for i := 1; i < len(dates); i++ {
		if math.Abs(totals[dates[i]]-totals[dates[i-1]]) > p.Sleep.JumpMinutes {
			jumpDays = append(jumpDays, dates[i])
		}
	}

	counts := make([]float64, 0, len(dates))
	for _, d := range dates {
		counts = append(counts, float64(napCounts[d]))
	}
	avgNaps, _ := stats.Mean(counts)

	missedNapDays := []string{}
	var threshold *float64
	if avgNaps > 0 {
		t := math.Max(1, avgNaps*0.5)
		threshold = optional(t, true, 2)
		for _, d := range dates {
			if float64(napCounts[d]) < t {
				missedNapDays = append(missedNapDays, d)
			}
		}
	}

	recommendation := "No unusual changes in sleep were found."
	if len(jumpDays) > 0 || len(missedNapDays) > 0 {
		recommendation = "Some days differ noticeably from the usual rhythm. Check those days for illness or a changed schedule."
	}

	return okReport(NameSleepAnomaly, q, map[string]any{
		"duration_jump_days":   jumpDays,
		"missed_nap_days":      missedNapDays,
		"average_naps_per_day": stats.Round(avgNaps, 2),
		"nap_threshold":        threshold,
	},
		fmt.Sprintf("%d days with large sleep changes and %d days with missed naps %s.", len(jumpDays), len(missedNapDays), scope(q.Days)),
		recommendation,
	)
}
