// Package extract turns the free-text condition fields of activity records into typed attributes.
//
// Every helper is pure and total: text that is absent or does not match yields ok == false,
// never an error.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"beebi/backend/internal/activity"
)

var (
	volumePattern = regexp.MustCompile(`(?i)(\d+)\s*ml`)
	peePattern    = regexp.MustCompile(`(?i)pee\s*:\s*(small|medium|big)`)
	pooPattern    = regexp.MustCompile(`(?i)poo\s*:\s*(small|medium|big)`)
)

// Extractor normalises a record. Implementations must be deterministic.
type Extractor interface {
	Extract(activity.Record) activity.Normalized
}

// Fields is the default Extractor.
type Fields struct{}

// Extract implements Extractor.
func (Fields) Extract(r activity.Record) activity.Normalized {
	n := activity.Normalized{Record: r}

	if ml, ok := firstOf(Volume, r.EndCondition, r.StartCondition); ok {
		n.VolumeML = &ml
	}
	if level, ok := firstOf(PeeLevel, r.EndCondition, r.StartCondition); ok {
		n.PeeLevel = &level
	}
	if level, ok := firstOf(PooLevel, r.EndCondition, r.StartCondition); ok {
		n.PooLevel = &level
	}
	if feed, ok := firstOf(Feed, r.StartCondition, r.EndCondition); ok {
		n.FeedType = &feed
	}
	return n
}

// All normalises a batch of records, preserving order.
func All(e Extractor, records []activity.Record) []activity.Normalized {
	out := make([]activity.Normalized, 0, len(records))
	for _, r := range records {
		out = append(out, e.Extract(r))
	}
	return out
}

func firstOf[T any](fn func(string) (T, bool), texts ...string) (T, bool) {
	for _, text := range texts {
		if v, ok := fn(text); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Volume returns the first integer immediately followed by the "ml" unit.
func Volume(text string) (int, bool) {
	match := volumePattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	ml, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return ml, true
}

// PeeLevel returns the level written as "pee:<level>".
func PeeLevel(text string) (activity.Level, bool) {
	return level(peePattern, text)
}

// PooLevel returns the level written as "poo:<level>".
func PooLevel(text string) (activity.Level, bool) {
	return level(pooPattern, text)
}

func level(pattern *regexp.Regexp, text string) (activity.Level, bool) {
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return activity.Level(strings.ToLower(match[1])), true
}

// Feed returns the feed type whose keyword occurs first in text.
func Feed(text string) (activity.FeedType, bool) {
	lowered := strings.ToLower(text)
	breast := strings.Index(lowered, "breast")
	formula := strings.Index(lowered, "formula")
	switch {
	case breast < 0 && formula < 0:
		return "", false
	case formula < 0 || (breast >= 0 && breast < formula):
		return activity.Breast, true
	default:
		return activity.Formula, true
	}
}
