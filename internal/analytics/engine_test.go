package analytics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"beebi/backend/internal/activity"
	"beebi/backend/internal/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, source store.Source, opts ...Option) *Engine {
	t.Helper()
	loader := store.NewLoader(source, store.LoaderConfig{DefaultSubjectID: "10"})
	return NewEngine(loader, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func record(id, subject string, kind activity.Type, at time.Time, start, end string) activity.Record {
	return activity.Record{ID: id, SubjectID: subject, Type: kind, StartTime: at, StartCondition: start, EndCondition: end}
}

func TestEngineRunsFeedVolumeFromStore(t *testing.T) {
	source := store.NewMemorySource(
		record("1", "10", activity.Feed, base.Add(8*time.Hour), "breast", "80ml"),
		record("2", "10", activity.Feed, base.Add(11*time.Hour), "", "85 ml"),
		record("3", "10", activity.Feed, base.Add(14*time.Hour), "formula 95ML", ""),
		record("4", "11", activity.Feed, base.Add(9*time.Hour), "", "300ml"),
		activity.Record{ID: "5", SubjectID: "10", Type: activity.Feed},
	)
	engine := newTestEngine(t, source)

	report := engine.FeedVolume(context.Background(), Query{})
	require.Equal(t, StatusOK, report.Status)
	require.Equal(t, "10", report.SubjectID)
	require.Equal(t, 86.7, report.Metrics["average_volume_ml"])
	require.Equal(t, 1, report.DroppedRecords)
}

func TestEngineWindowIsNotClippedByDefaultLookback(t *testing.T) {
	now := time.Now().UTC()
	source := store.NewMemorySource(
		record("1", "10", activity.Feed, now.AddDate(0, 0, -400), "", "100ml"),
		record("2", "10", activity.Feed, now.Add(-time.Hour), "", "120ml"),
	)
	engine := NewEngine(store.NewLoader(source, store.DefaultLoaderConfig()), WithLogger(quietLogger()))

	report := engine.FeedVolume(context.Background(), Query{Days: Days(500)})
	require.Equal(t, StatusOK, report.Status)
	require.Equal(t, 2, report.Metrics["feed_count"])

	report = engine.FeedVolume(context.Background(), Query{})
	require.Equal(t, StatusOK, report.Status)
	require.Equal(t, 1, report.Metrics["feed_count"])
}

func TestEngineAnalyzesHistoricExtract(t *testing.T) {
	now := time.Now().UTC()
	source := store.NewMemorySource(
		record("1", "10", activity.Feed, now.AddDate(0, 0, -400), "", "100ml"),
		record("2", "10", activity.Feed, now.AddDate(0, 0, -399), "", "120ml"),
	)
	engine := NewEngine(store.NewLoader(source, store.DefaultLoaderConfig()), WithLogger(quietLogger()))

	for _, q := range []Query{{}, {Days: Days(7)}, {Days: Days(400)}} {
		report := engine.FeedVolume(context.Background(), q)
		require.Equal(t, StatusOK, report.Status, report.Summary)
		require.Equal(t, 2, report.Metrics["feed_count"])
		require.Equal(t, 110.0, report.Metrics["average_volume_ml"])
	}
}

func TestEngineFeedVolumeWindowFollowsNewestMeasuredFeed(t *testing.T) {
	now := time.Now().UTC()
	source := store.NewMemorySource(
		record("1", "10", activity.Feed, now.AddDate(0, 0, -10), "", "90ml"),
		record("2", "10", activity.Feed, now.AddDate(0, 0, -4), "", "110ml"),
		record("3", "10", activity.Feed, now.Add(-time.Hour), "breast", ""),
	)
	engine := NewEngine(store.NewLoader(source, store.DefaultLoaderConfig()), WithLogger(quietLogger()))

	report := engine.FeedVolume(context.Background(), Query{Days: Days(7)})
	require.Equal(t, StatusOK, report.Status)
	require.Equal(t, 2, report.Metrics["feed_count"])

	report = engine.FeedTimeOfDay(context.Background(), Query{Days: Days(7)})
	require.Equal(t, StatusOK, report.Status)
	total := 0
	for _, n := range report.Metrics["counts"].(map[string]int) {
		total += n
	}
	require.Equal(t, 2, total)
}

func TestEngineRunByName(t *testing.T) {
	engine := newTestEngine(t, store.NewMemorySource())

	report, ok := engine.Run(context.Background(), NameSleepPattern, Query{Days: Days(7)})
	require.True(t, ok)
	require.Equal(t, NameSleepPattern, report.Analyzer)
	require.Equal(t, StatusInsufficientData, report.Status)
	require.Nil(t, report.Metrics)

	_, ok = engine.Run(context.Background(), "sleep_score", Query{})
	require.False(t, ok)
}

func TestEngineRegistryCoversEveryAnalyzer(t *testing.T) {
	engine := newTestEngine(t, store.NewMemorySource())
	registry := engine.Registry()
	require.Len(t, registry, 13)
	for _, name := range Names() {
		fn, ok := registry[name]
		require.True(t, ok, name)
		report := fn(context.Background(), Query{})
		require.Equal(t, name, report.Analyzer)
		require.Equal(t, StatusInsufficientData, report.Status, name)
		require.Nil(t, report.Metrics, name)
	}

	require.Len(t, NamesFor(activity.Feed), 5)
	require.Len(t, NamesFor(activity.Sleep), 3)
	require.Len(t, NamesFor(activity.Diaper), 5)
	domain, ok := DomainOf(NameDiaperAlert)
	require.True(t, ok)
	require.Equal(t, activity.Diaper, domain)
}

func TestEngineLoaderFailureYieldsErrorReport(t *testing.T) {
	source := store.NewMemorySource()
	source.FailWith(errors.New("connection refused"))
	engine := newTestEngine(t, source)

	report := engine.DiaperAlert(context.Background(), Query{SubjectID: "12"})
	require.Equal(t, StatusError, report.Status)
	require.Equal(t, "12", report.SubjectID)
	require.Contains(t, report.Error, "activity data unavailable")
	require.Contains(t, report.Error, "connection refused")
	require.Nil(t, report.Metrics)
}

func TestEngineRejectsNegativeDays(t *testing.T) {
	engine := newTestEngine(t, store.NewMemorySource())
	report := engine.FeedInterval(context.Background(), Query{Days: Days(-1)})
	require.Equal(t, StatusError, report.Status)
	require.Contains(t, report.Error, "negative")
}

type panicExtractor struct{}

func (panicExtractor) Extract(activity.Record) activity.Normalized { panic("boom") }

func TestEngineRecoversFromAnalyzerPanic(t *testing.T) {
	source := store.NewMemorySource(record("1", "10", activity.Feed, base, "", "100ml"))
	engine := newTestEngine(t, source, WithExtractor(panicExtractor{}))

	report := engine.FeedVolume(context.Background(), Query{})
	require.Equal(t, StatusError, report.Status)
	require.Contains(t, report.Error, "boom")
}

func TestEngineBySubjectLoadsEverySubject(t *testing.T) {
	source := store.NewMemorySource(
		record("1", "10", activity.Diaper, base.Add(time.Hour), "pee:small", ""),
		record("2", "10", activity.Diaper, base.Add(3*time.Hour), "", "poo:big"),
		record("3", "11", activity.Diaper, base.Add(2*time.Hour), "", ""),
		record("4", "11", activity.Diaper, base.Add(6*time.Hour), "", ""),
	)
	engine := newTestEngine(t, source)

	grouped := engine.DiaperInterval(context.Background(), Query{BySubject: true})
	require.Equal(t, StatusOK, grouped.Status)
	require.Equal(t, store.AllSubjects, grouped.SubjectID)
	require.Len(t, grouped.Metrics["subjects"].([]IntervalStats), 2)

	single := engine.DiaperInterval(context.Background(), Query{})
	require.Equal(t, "10", single.SubjectID)
	require.Equal(t, 2.0, *single.Metrics["average_interval_hours"].(*float64))

	// An explicit subject wins over grouping.
	pinned := engine.DiaperFrequency(context.Background(), Query{SubjectID: "11", BySubject: true})
	require.Len(t, pinned.Metrics["subjects"].([]SubjectFrequency), 1)
}

func TestEngineBucketsHoursInConfiguredLocation(t *testing.T) {
	seoul, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	source := store.NewMemorySource(record("1", "10", activity.Feed, time.Date(2025, 5, 1, 23, 0, 0, 0, time.UTC), "", ""))

	utc := newTestEngine(t, source).FeedTimeOfDay(context.Background(), Query{})
	require.Equal(t, "Night", utc.Metrics["peak_period"])

	local := newTestEngine(t, source, WithLocation(seoul)).FeedTimeOfDay(context.Background(), Query{})
	require.Equal(t, "Morning", local.Metrics["peak_period"])
}

type slowLoader struct{}

func (slowLoader) Load(ctx context.Context, _ string, _ activity.Type, _ *int) (store.Batch, error) {
	<-ctx.Done()
	return store.Batch{}, ctx.Err()
}

func TestEngineLoadTimeout(t *testing.T) {
	engine := NewEngine(slowLoader{}, WithLogger(quietLogger()), WithLoadTimeout(10*time.Millisecond))
	report := engine.SleepSessions(context.Background(), Query{})
	require.Equal(t, StatusError, report.Status)
	require.Contains(t, report.Error, context.DeadlineExceeded.Error())
}

func TestEngineUsesPolicy(t *testing.T) {
	source := store.NewMemorySource(record("1", "10", activity.Feed, base, "", "100ml"))
	policy := DefaultPolicy()
	policy.Feed.LowVolumeML = 120
	policy.Feed.HighVolumeML = 200

	report := newTestEngine(t, source, WithPolicy(policy)).FeedVolume(context.Background(), Query{})
	require.Equal(t, "Low", report.Metrics["volume_band"])
}

func TestLoadPolicyOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feed:\n  low_volume_ml: 70\ndiaper:\n  timing_bins: 8\n"), 0o600))

	policy, err := LoadPolicy(path)
	require.NoError(t, err)
	require.Equal(t, 70.0, policy.Feed.LowVolumeML)
	require.Equal(t, 150.0, policy.Feed.HighVolumeML)
	require.Equal(t, 8, policy.Diaper.TimingBins)
	require.Equal(t, DefaultPolicy().Sleep, policy.Sleep)

	defaults, err := LoadPolicy("")
	require.NoError(t, err)
	require.Equal(t, DefaultPolicy(), defaults)
}

func TestLoadPolicyRejectsInvalidThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sleep:\n  poor_hours: 10\ndiaper:\n  big_poo_run: 0\n"), 0o600))

	_, err := LoadPolicy(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "sleep.poor_hours")
	require.Contains(t, err.Error(), "diaper.big_poo_run")

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
