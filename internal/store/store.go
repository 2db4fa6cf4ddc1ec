// Package store loads activity records for a subject from a read-only source.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"beebi/backend/internal/activity"
	"beebi/backend/internal/observability"
)

const (
	// DefaultSubjectID is used when a caller does not name a subject.
	DefaultSubjectID = "10"
	// DefaultLookbackDays bounds the history read when a caller does not pass a lookback.
	// The bound is counted back from the subject's newest record, not from the wall clock.
	DefaultLookbackDays = 365
	// AllSubjects asks the loader to skip the subject filter.
	AllSubjects = "*"
)

var ErrInvalidLookback = errors.New("lookback days must not be negative")

// Filter narrows a Fetch. An empty SubjectID matches every subject; a nil Since is unbounded.
type Filter struct {
	SubjectID string
	Type      activity.Type
	Since     *time.Time
}

// Batch is the result of one load.
type Batch struct {
	SubjectID string
	Records   []activity.Record
	Dropped   int
}

// Source is a read-only activity store.
type Source interface {
	Name() string
	Fetch(ctx context.Context, filter Filter) (Batch, error)
}

// latestStarter is implemented by sources that can find the newest valid start time
// without reading every row. Since is ignored.
type latestStarter interface {
	LatestStart(ctx context.Context, filter Filter) (time.Time, bool, error)
}

type LoaderConfig struct {
	DefaultSubjectID string
	// DefaultLookbackDays applies when Load receives a nil lookback. Zero means unbounded.
	DefaultLookbackDays int
}

func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		DefaultSubjectID:    DefaultSubjectID,
		DefaultLookbackDays: DefaultLookbackDays,
	}
}

type Loader struct {
	source Source
	cfg    LoaderConfig
}

func NewLoader(source Source, cfg LoaderConfig) *Loader {
	if cfg.DefaultSubjectID == "" {
		cfg.DefaultSubjectID = DefaultSubjectID
	}
	return &Loader{source: source, cfg: cfg}
}

// Load returns the subject's records of one type, sorted by start time.
// A lookback keeps records that start at most that many days before the newest valid record,
// the same anchor the analyzers use for their windows. Zero loads everything.
// Source failures are wrapped in activity.ErrDataUnavailable.
func (l *Loader) Load(ctx context.Context, subjectID string, activityType activity.Type, lookbackDays *int) (Batch, error) {
	days := l.cfg.DefaultLookbackDays
	if lookbackDays != nil {
		days = *lookbackDays
	}
	if days < 0 {
		return Batch{}, ErrInvalidLookback
	}

	subject := subjectID
	if subject == "" {
		subject = l.cfg.DefaultSubjectID
	}
	filter := Filter{Type: activityType}
	if subject != AllSubjects {
		filter.SubjectID = subject
	}

	started := time.Now()
	batch, err := l.fetch(ctx, filter, days)
	observability.RecordLoad(l.source.Name(), string(activityType), time.Since(started), err)
	if err != nil {
		return Batch{}, fmt.Errorf("%w: %s: %w", activity.ErrDataUnavailable, l.source.Name(), err)
	}

	records := make([]activity.Record, 0, len(batch.Records))
	dropped := batch.Dropped
	for _, r := range batch.Records {
		if r.Validate() != nil {
			dropped++
			continue
		}
		records = append(records, r)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].StartTime.Before(records[j].StartTime)
	})
	if days > 0 && len(records) > 0 {
		records = trimBefore(records, cutoff(records[len(records)-1].StartTime, days))
	}
	observability.RecordDropped(l.source.Name(), dropped)

	return Batch{SubjectID: subject, Records: records, Dropped: dropped}, nil
}

// fetch pushes the lookback cutoff down to sources that can find their newest record.
// Other sources are read in full and trimmed by Load.
func (l *Loader) fetch(ctx context.Context, filter Filter, days int) (Batch, error) {
	finder, ok := l.source.(latestStarter)
	if days == 0 || !ok {
		return l.source.Fetch(ctx, filter)
	}
	latest, found, err := finder.LatestStart(ctx, filter)
	if err != nil {
		return Batch{}, fmt.Errorf("find latest record: %w", err)
	}
	if !found {
		return Batch{}, nil
	}
	since := cutoff(latest, days)
	filter.Since = &since
	return l.source.Fetch(ctx, filter)
}

func cutoff(latest time.Time, days int) time.Time {
	return latest.Add(-time.Duration(days) * 24 * time.Hour)
}

// trimBefore drops the leading records of a sorted slice that start before since.
func trimBefore(records []activity.Record, since time.Time) []activity.Record {
	i := sort.Search(len(records), func(i int) bool {
		return !records[i].StartTime.Before(since)
	})
	return records[i:]
}

func matches(filter Filter, r activity.Record) bool {
	if filter.Type != "" && r.Type != filter.Type {
		return false
	}
	if filter.SubjectID != "" && r.SubjectID != filter.SubjectID {
		return false
	}
	if filter.Since != nil && r.StartTime.Before(*filter.Since) {
		return false
	}
	return true
}
