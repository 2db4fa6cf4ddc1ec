package analytics

import (
	"fmt"
	"time"

	"beebi/backend/internal/activity"
	"beebi/backend/internal/stats"
)

type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
	StatusError            Status = "error"
)

// Report is the result of one analyzer run. Absent numbers serialise as null.
type Report struct {
	Analyzer       string         `json:"analyzer"`
	Status         Status         `json:"status"`
	SubjectID      string         `json:"subject_id"`
	Days           *int           `json:"days"`
	Metrics        map[string]any `json:"metrics"`
	Summary        string         `json:"summary"`
	Recommendation string         `json:"recommendation,omitempty"`
	Error          string         `json:"error,omitempty"`
	DroppedRecords int            `json:"dropped_records"`
}

// Query carries the per-call analyzer parameters. Zero values fall back to the Policy.
type Query struct {
	Days             *int    `json:"days,omitempty"`
	SubjectID        string  `json:"subject_id,omitempty"`
	BySubject        bool    `json:"by_subject,omitempty"`
	Bins             int     `json:"bins,omitempty"`
	MaxIntervalHours float64 `json:"max_interval_hours,omitempty"`
	BigPooThreshold  int     `json:"big_poo_threshold,omitempty"`
}

// Days is a helper for building a Query with a lookback.
func Days(n int) *int { return &n }

func okReport(name string, q Query, metrics map[string]any, summary, recommendation string) Report {
	return Report{
		Analyzer:       name,
		Status:         StatusOK,
		Days:           q.Days,
		Metrics:        metrics,
		Summary:        summary,
		Recommendation: recommendation,
	}
}

func insufficientReport(name string, q Query, condition string) Report {
	return Report{
		Analyzer:       name,
		Status:         StatusInsufficientData,
		Days:           q.Days,
		Summary:        fmt.Sprintf("%s %s.", condition, scope(q.Days)),
		Recommendation: "Check whether records are missing or were not logged in time.",
	}
}

func errorReport(name string, q Query, err error) Report {
	return Report{
		Analyzer:  name,
		Status:    StatusError,
		SubjectID: q.SubjectID,
		Days:      q.Days,
		Summary:   "Analysis failed; activity data could not be read.",
		Error:     err.Error(),
	}
}

func scope(days *int) string {
	if days == nil {
		return "across all recorded history"
	}
	if *days == 1 {
		return "in the last day"
	}
	return fmt.Sprintf("in the last %d days", *days)
}

// window keeps records that start no earlier than days before the latest start. A nil days keeps all.
func window(records []activity.Normalized, days *int) []activity.Normalized {
	if days == nil || len(records) == 0 {
		return records
	}
	starts := make([]time.Time, len(records))
	for i, r := range records {
		starts[i] = r.StartTime
	}
	latest, _ := stats.Latest(starts)
	cutoff := stats.WindowStart(latest, *days)

	out := make([]activity.Normalized, 0, len(records))
	for _, r := range records {
		if !r.StartTime.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func filter(records []activity.Normalized, keep func(activity.Normalized) bool) []activity.Normalized {
	out := make([]activity.Normalized, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func startTimes(records []activity.Normalized) []time.Time {
	out := make([]time.Time, len(records))
	for i, r := range records {
		out[i] = r.StartTime
	}
	return out
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// optional rounds v, or returns nil when ok is false.
func optional(v float64, ok bool, places int) *float64 {
	if !ok {
		return nil
	}
	rounded := stats.Round(v, places)
	return &rounded
}
