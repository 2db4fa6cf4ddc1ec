// Package analytics computes descriptive metric reports over windows of activity records.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"beebi/backend/internal/activity"
	"beebi/backend/internal/extract"
	"beebi/backend/internal/observability"
	"beebi/backend/internal/store"
)

// Loader is the read side the engine depends on; *store.Loader satisfies it.
type Loader interface {
	Load(ctx context.Context, subjectID string, activityType activity.Type, lookbackDays *int) (store.Batch, error)
}

// Func runs one analyzer end to end.
type Func func(context.Context, Query) Report

type computeFunc func([]activity.Normalized, Query, Policy) Report

type definition struct {
	name    string
	domain  activity.Type
	grouped bool

	// subsetWindow marks analyzers that anchor their window on a filtered subset of the
	// domain's records, so the load cannot be cut at the requested window.
	subsetWindow bool
	compute      computeFunc
}

// lookback is the loader lookback for a query: the window itself, nothing when the query
// has no window, or all history when the window anchor may sit before the newest record.
func (d definition) lookback(days *int) *int {
	if days == nil {
		return nil
	}
	if d.subsetWindow {
		return Days(0)
	}
	return days
}

var definitions = []definition{
	{name: NameFeedVolume, domain: activity.Feed, subsetWindow: true, compute: FeedVolume},
	{name: NameFeedInterval, domain: activity.Feed, compute: FeedInterval},
	{name: NameFeedConsistency, domain: activity.Feed, compute: FeedConsistency},
	{name: NameFeedTimeOfDay, domain: activity.Feed, compute: FeedTimeOfDay},
	{name: NameFeedTypeRatio, domain: activity.Feed, compute: FeedTypeRatio},
	{name: NameSleepSessions, domain: activity.Sleep, compute: SleepSessions},
	{name: NameSleepPattern, domain: activity.Sleep, compute: SleepPattern},
	{name: NameSleepAnomaly, domain: activity.Sleep, compute: SleepAnomaly},
	{name: NameDiaperFrequency, domain: activity.Diaper, grouped: true, compute: DiaperFrequency},
	{name: NameDiaperType, domain: activity.Diaper, compute: DiaperType},
	{name: NameDiaperTiming, domain: activity.Diaper, compute: DiaperTiming},
	{name: NameDiaperInterval, domain: activity.Diaper, grouped: true, compute: DiaperInterval},
	{name: NameDiaperAlert, domain: activity.Diaper, compute: DiaperAlert},
}

func lookup(name string) (definition, bool) {
	for _, d := range definitions {
		if d.name == name {
			return d, true
		}
	}
	return definition{}, false
}

// Names lists every analyzer in a stable order.
func Names() []string {
	out := make([]string, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, d.name)
	}
	return out
}

// NamesFor lists the analyzers of one domain in a stable order.
func NamesFor(domain activity.Type) []string {
	var out []string
	for _, d := range definitions {
		if d.domain == domain {
			out = append(out, d.name)
		}
	}
	return out
}

// DomainOf returns the activity type an analyzer reads.
func DomainOf(name string) (activity.Type, bool) {
	d, ok := lookup(name)
	return d.domain, ok
}

type Engine struct {
	loader      Loader
	policy      Policy
	extractor   extract.Extractor
	location    *time.Location
	logger      *slog.Logger
	now         func() time.Time
	loadTimeout time.Duration
}

type Option func(*Engine)

func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithExtractor(x extract.Extractor) Option {
	return func(e *Engine) {
		if x != nil {
			e.extractor = x
		}
	}
}

// WithLocation sets the zone used for hour-of-day and calendar-day bucketing.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLoadTimeout bounds each loader call. Zero disables the bound.
func WithLoadTimeout(d time.Duration) Option {
	return func(e *Engine) { e.loadTimeout = d }
}

func NewEngine(loader Loader, opts ...Option) *Engine {
	e := &Engine{
		loader:    loader,
		policy:    DefaultPolicy(),
		extractor: extract.Fields{},
		location:  time.UTC,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Policy() Policy { return e.policy }

// Registry maps analyzer names to the engine's bound analyzer methods.
func (e *Engine) Registry() map[string]Func {
	out := make(map[string]Func, len(definitions))
	for _, d := range definitions {
		out[d.name] = func(ctx context.Context, q Query) Report { return e.run(ctx, d, q) }
	}
	return out
}

// Run executes the named analyzer. The bool is false for an unknown name.
func (e *Engine) Run(ctx context.Context, name string, q Query) (Report, bool) {
	d, ok := lookup(name)
	if !ok {
		return Report{}, false
	}
	return e.run(ctx, d, q), true
}

func (e *Engine) FeedVolume(ctx context.Context, q Query) Report {
	return e.runNamed(ctx, NameFeedVolume, q)
}

func (e *Engine) FeedInterval(ctx context.Context, q Query) Report {
	return e.runNamed(ctx, NameFeedInterval, q)
}

func (e *Engine) FeedConsistency(ctx context.Context, q Query) Report {
	return e.runNamed(ctx, NameFeedConsistency, q)
}

func (e *Engine) FeedTimeOfDay(ctx context.Context, q Query) Report {
	return e.runNamed(ctx, NameFeedTimeOfDay, q)
}

func (e *Engine) FeedTypeRatio(ctx context.Context, q Query) Report {
	return e.runNamed(ctx, NameFeedTypeRatio, q)
}

func (e *Engine) SleepSessions(ctx context.Context, q Query) Report {
	return e.runNamed(ctx, NameSleepSessions, q)
}

func (e *Engine) SleepPattern(ctx context.Context, q Query) Report {
	return e.runNamed(ctx, NameSleepPattern, q)
}

func (e *Engine) SleepAnomaly(ctx context.Context, q Query) Report {
	return e.runNamed(ctx, NameSleepAnomaly, q)
}

func (e *Engine) DiaperFrequency(ctx context.Context, q Query) Report {
	return e.runNamed(ctx, NameDiaperFrequency, q)
}

func (e *Engine) DiaperType(ctx context.Context, q Query) Report {
	return e.runNamed(ctx, NameDiaperType, q)
}

func (e *Engine) DiaperTiming(ctx context.Context, q Query) Report {
	return e.runNamed(ctx, NameDiaperTiming, q)
}

func (e *Engine) DiaperInterval(ctx context.Context, q Query) Report {
	return e.runNamed(ctx, NameDiaperInterval, q)
}

func (e *Engine) DiaperAlert(ctx context.Context, q Query) Report {
	return e.runNamed(ctx, NameDiaperAlert, q)
}

func (e *Engine) runNamed(ctx context.Context, name string, q Query) Report {
	d, _ := lookup(name)
	return e.run(ctx, d, q)
}

func (e *Engine) run(ctx context.Context, d definition, q Query) (report Report) {
	started := e.now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("analyzer panicked", "analyzer", d.name, "panic", r)
			report = errorReport(d.name, q, fmt.Errorf("analyzer %s panicked: %v", d.name, r))
		}
		observability.RecordAnalyzerRun(d.name, string(report.Status), e.now().Sub(started))
	}()

	if q.Days != nil && *q.Days < 0 {
		return errorReport(d.name, q, fmt.Errorf("days must not be negative"))
	}

	subject := q.SubjectID
	if d.grouped && q.BySubject && subject == "" {
		subject = store.AllSubjects
	}

	loadCtx := ctx
	if e.loadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, e.loadTimeout)
		defer cancel()
	}
	batch, err := e.loader.Load(loadCtx, subject, d.domain, d.lookback(q.Days))
	if err != nil {
		e.logger.Warn("activity load failed", "analyzer", d.name, "subject_id", subject, "error", err)
		return errorReport(d.name, q, err)
	}
	if batch.Dropped > 0 {
		e.logger.Debug("malformed records dropped", "analyzer", d.name, "subject_id", batch.SubjectID, "dropped", batch.Dropped)
	}

	records := extract.All(e.extractor, batch.Records)
	for i := range records {
		records[i] = e.localize(records[i])
	}

	report = d.compute(records, q, e.policy)
	report.SubjectID = batch.SubjectID
	report.DroppedRecords = batch.Dropped
	return report
}

func (e *Engine) localize(n activity.Normalized) activity.Normalized {
	n.StartTime = n.StartTime.In(e.location)
	if n.EndTime != nil {
		end := n.EndTime.In(e.location)
		n.EndTime = &end
	}
	return n
}
