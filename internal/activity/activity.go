// Package activity defines the activity log records read by the analytics engine.
package activity

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrDataUnavailable is returned when the activity store cannot be reached or a query fails.
	ErrDataUnavailable = errors.New("activity data unavailable")
	// ErrMalformedRecord marks a stored row whose fields cannot be coerced into a Record.
	ErrMalformedRecord = errors.New("malformed activity record")
)

// Type is the categorical tag of a logged event.
type Type string

const (
	Feed   Type = "Feed"
	Sleep  Type = "Sleep"
	Diaper Type = "Diaper"
)

var typeAliases = map[string]Type{
	"FEED":       Feed,
	"FORMULA":    Feed,
	"BREASTFEED": Feed,
	"SLEEP":      Sleep,
	"DIAPER":     Diaper,
	"PEE":        Diaper,
	"POO":        Diaper,
}

// ParseType normalises a raw store spelling into a Type.
func ParseType(input string) (Type, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}
	t, ok := typeAliases[normalized]
	return t, ok
}

// Aliases returns every upper-cased raw spelling that maps to t.
func (t Type) Aliases() []string {
	out := make([]string, 0, 3)
	for _, raw := range []string{"FEED", "FORMULA", "BREASTFEED", "SLEEP", "DIAPER", "PEE", "POO"} {
		if typeAliases[raw] == t {
			out = append(out, raw)
		}
	}
	return out
}

// Record is one logged event for a subject. Records are read-only to the analytics module.
type Record struct {
	ID              string
	SubjectID       string
	Type            Type
	StartTime       time.Time
	EndTime         *time.Time
	DurationMinutes *float64
	StartCondition  string
	EndCondition    string
}

// Validate reports ErrMalformedRecord when the record breaks the start <= end invariant.
func (r Record) Validate() error {
	if r.StartTime.IsZero() {
		return errors.Join(ErrMalformedRecord, errors.New("start time missing"))
	}
	if r.EndTime != nil && r.EndTime.Before(r.StartTime) {
		return errors.Join(ErrMalformedRecord, errors.New("end time before start time"))
	}
	if r.DurationMinutes != nil && *r.DurationMinutes < 0 {
		return errors.Join(ErrMalformedRecord, errors.New("negative duration"))
	}
	return nil
}

// Level is the pee/poo amount recorded on a diaper change.
type Level string

const (
	Small  Level = "small"
	Medium Level = "medium"
	Big    Level = "big"
)

// Levels lists the level vocabulary in ascending order.
var Levels = []Level{Small, Medium, Big}

// FeedType distinguishes breast milk from formula feeds.
type FeedType string

const (
	Breast  FeedType = "Breast"
	Formula FeedType = "Formula"
)

// Normalized is a Record plus the typed attributes extracted from its free-text conditions.
type Normalized struct {
	Record

	VolumeML *int
	PeeLevel *Level
	PooLevel *Level
	FeedType *FeedType
}

// Duration returns the stored duration in minutes, or derives it from the end time.
func (n Normalized) Duration() (float64, bool) {
	if n.DurationMinutes != nil {
		return *n.DurationMinutes, true
	}
	if n.EndTime != nil {
		return n.EndTime.Sub(n.StartTime).Minutes(), true
	}
	return 0, false
}
