// Package stats holds the numeric primitives shared by the analyzers.
package stats

import (
	"math"
	"sort"
	"time"
)

// Mean returns the arithmetic mean, or false for an empty slice.
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// MinMax returns the smallest and largest values, or false for an empty slice.
func MinMax(values []float64) (float64, float64, bool) {
	if len(values) == 0 {
		return 0, 0, false
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, true
}

// StdDev is the sample standard deviation (n-1 denominator). It is undefined below two values.
func StdDev(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	mean, _ := Mean(values)
	sq := 0.0
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1)), true
}

// CV is the coefficient of variation. It is undefined for fewer than two values or a zero mean.
func CV(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	mean, _ := Mean(values)
	if mean == 0 {
		return 0, false
	}
	std, _ := StdDev(values)
	return std / mean, true
}

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Percent returns part/total*100 rounded to one decimal, or 0 when total is 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round(float64(part)/float64(total)*100, 1)
}

// Band is the outcome of a three-way threshold classification.
type Band int

const (
	Below Band = iota
	Within
	Above
)

// Classify places v below low, above high, or within the inclusive range between them.
func Classify(v, low, high float64) Band {
	switch {
	case v < low:
		return Below
	case v > high:
		return Above
	default:
		return Within
	}
}

// Gaps returns the consecutive differences between sorted times, in hours.
func Gaps(times []time.Time) []float64 {
	if len(times) < 2 {
		return nil
	}
	out := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		out = append(out, times[i].Sub(times[i-1]).Hours())
	}
	return out
}

// WindowStart returns the earliest start kept by a trailing window of days anchored at the latest time.
func WindowStart(latest time.Time, days int) time.Time {
	return latest.Add(-time.Duration(days) * 24 * time.Hour)
}

// Latest returns the maximum of times.
func Latest(times []time.Time) (time.Time, bool) {
	if len(times) == 0 {
		return time.Time{}, false
	}
	latest := times[0]
	for _, t := range times[1:] {
		if t.After(latest) {
			latest = t
		}
	}
	return latest, true
}

// Run is a maximal stretch of consecutive matching elements.
type Run struct {
	Start  int
	Length int
}

// Runs returns every maximal run of matching elements of at least minLength.
func Runs(n int, match func(i int) bool, minLength int) []Run {
	var out []Run
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= minLength {
			out = append(out, Run{Start: start, Length: end - start})
		}
		start = -1
	}
	for i := 0; i < n; i++ {
		if match(i) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(n)
	return out
}

// Counter tallies string keys and remembers first-seen order.
type Counter struct {
	counts map[string]int
	order  []string
	total  int
}

// NewCounter seeds a counter with keys that are always reported, even at zero.
func NewCounter(keys ...string) *Counter {
	c := &Counter{counts: make(map[string]int, len(keys))}
	for _, k := range keys {
		c.ensure(k)
	}
	return c
}

func (c *Counter) ensure(key string) {
	if _, ok := c.counts[key]; !ok {
		c.counts[key] = 0
		c.order = append(c.order, key)
	}
}

// Add counts one occurrence of key.
func (c *Counter) Add(key string) {
	c.ensure(key)
	c.counts[key]++
	c.total++
}

// Total is the number of Add calls.
func (c *Counter) Total() int { return c.total }

// Count returns the tally for key.
func (c *Counter) Count(key string) int { return c.counts[key] }

// Keys returns keys in insertion order.
func (c *Counter) Keys() []string { return append([]string(nil), c.order...) }

// Counts returns a copy of the tallies.
func (c *Counter) Counts() map[string]int {
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// Percentages returns each key's share of the total in percent, rounded to one decimal.
func (c *Counter) Percentages() map[string]float64 {
	out := make(map[string]float64, len(c.counts))
	for k, v := range c.counts {
		out[k] = Percent(v, c.total)
	}
	return out
}

// Peak returns the key with the highest count; ties go to the earliest key.
func (c *Counter) Peak() (string, bool) {
	if len(c.order) == 0 {
		return "", false
	}
	best := c.order[0]
	for _, k := range c.order[1:] {
		if c.counts[k] > c.counts[best] {
			best = k
		}
	}
	return best, true
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
