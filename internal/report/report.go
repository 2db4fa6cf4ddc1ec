// Package report bundles a domain's analyzers into one report with a readable text rendering.
package report

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"beebi/backend/internal/activity"
	"beebi/backend/internal/analytics"
)

// Runner executes one analyzer by name; *analytics.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, name string, q analytics.Query) (analytics.Report, bool)
}

// Result is a domain report: every analyzer of the domain plus the formatted text.
type Result struct {
	Domain  string             `json:"domain"`
	Reports []analytics.Report `json:"reports"`
	Text    string             `json:"text"`
}

// ParseDomain accepts feed, sleep or diaper in any case.
func ParseDomain(raw string) (activity.Type, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "feed":
		return activity.Feed, true
	case "sleep":
		return activity.Sleep, true
	case "diaper":
		return activity.Diaper, true
	}
	return "", false
}

// Domains lists the report domains in display order.
func Domains() []string {
	return []string{"feed", "sleep", "diaper"}
}

// Build runs every analyzer of the domain concurrently and formats the results.
// Analyzer failures surface as error reports inside the result, not as an error.
func Build(ctx context.Context, runner Runner, domain activity.Type, q analytics.Query) (Result, error) {
	names := analytics.NamesFor(domain)
	if len(names) == 0 {
		return Result{}, fmt.Errorf("unknown report domain %q", domain)
	}

	reports := make([]analytics.Report, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			r, ok := runner.Run(gctx, name, q)
			if !ok {
				return fmt.Errorf("analyzer %s is not registered", name)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return Result{
		Domain:  strings.ToLower(string(domain)),
		Reports: reports,
		Text:    Format(domain, q.Days, reports),
	}, nil
}

// Format renders the reports of one domain as numbered sections followed by suggestions.
func Format(domain activity.Type, days *int, reports []analytics.Report) string {
	byName := make(map[string]analytics.Report, len(reports))
	for _, r := range reports {
		byName[r.Analyzer] = r
	}
	switch domain {
	case activity.Feed:
		return formatFeed(days, byName, reports)
	case activity.Sleep:
		return formatSleep(days, byName, reports)
	case activity.Diaper:
		return formatDiaper(days, byName, reports)
	}
	return ""
}
