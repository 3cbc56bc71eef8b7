// Package sizing turns population proportions into integer sample sizes.
package sizing

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Cause records why a sample size count was changed.
type Cause string

const (
	WithBuffer           Cause = "WITH_BUFFER"
	IncreasedForRounding Cause = "INCREASED_FOR_ROUNDING"
	DecreasedForRounding Cause = "DECREASED_FOR_ROUNDING"
	DecreasedForAgent    Cause = "DECREASED_FOR_AGENT"
	IncreasedForAgent    Cause = "INCREASED_FOR_AGENT"
)

// Adjustment is one entry of a SampleSize's history: the cause and the
// count it replaced.
type Adjustment struct {
	Cause    Cause `json:"type"`
	Previous int   `json:"previous"`
}

// InvariantError reports a SampleSize that would leave [0, ceiling].
type InvariantError struct {
	Count   int
	Ceiling int
	Cause   Cause
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("sample size %d outside [0, %d] after %s", e.Count, e.Ceiling, e.Cause)
}

// SampleSize is an immutable allocation for one key. Updates return a new
// value and never share history with the receiver.
type SampleSize struct {
	count      int
	ceiling    int
	percentage float64
	history    []Adjustment
}

// New returns a SampleSize with no history. Ceiling is the most that can be
// allocated; percentage is the key's share of its population.
func New(count, ceiling int, percentage float64) SampleSize {
	if count < 0 || count > ceiling {
		panic(&InvariantError{Count: count, Ceiling: ceiling})
	}
	return SampleSize{count: count, ceiling: ceiling, percentage: percentage}
}

func (s SampleSize) Count() int          { return s.count }
func (s SampleSize) Ceiling() int        { return s.ceiling }
func (s SampleSize) Percentage() float64 { return s.percentage }

// History returns a copy of the adjustments applied so far, oldest first.
func (s SampleSize) History() []Adjustment {
	return append([]Adjustment(nil), s.history...)
}

// Cause returns the most recent adjustment cause, or "" if unadjusted.
func (s SampleSize) Cause() Cause {
	if len(s.history) == 0 {
		return ""
	}
	return s.history[len(s.history)-1].Cause
}

// Change is the difference made by the most recent run of adjustments.
func (s SampleSize) Change() int {
	if len(s.history) == 0 {
		return 0
	}
	return s.count - s.history[len(s.history)-1].Previous
}

// Headroom is how many more can be allocated before hitting the ceiling.
func (s SampleSize) Headroom() int { return s.ceiling - s.count }

// Update returns a copy with the count set to n. Consecutive updates with
// the same cause collapse into one history entry keeping the earliest
// previous value. Update panics with *InvariantError if n is outside
// [0, ceiling].
func (s SampleSize) Update(cause Cause, n int) SampleSize {
	if n < 0 || n > s.ceiling {
		panic(&InvariantError{Count: n, Ceiling: s.ceiling, Cause: cause})
	}
	history := s.History()
	if s.Cause() != cause {
		history = append(history, Adjustment{Cause: cause, Previous: s.count})
	}
	return SampleSize{count: n, ceiling: s.ceiling, percentage: s.percentage, history: history}
}

type sampleSizeJSON struct {
	Count       int          `json:"count"`
	Total       int          `json:"total"`
	Percentage  string       `json:"percentage"`
	Adjustments []Adjustment `json:"adjustments,omitempty"`
}

// MarshalJSON writes the percentage with two decimal places.
func (s SampleSize) MarshalJSON() ([]byte, error) {
	return json.Marshal(sampleSizeJSON{
		Count:       s.count,
		Total:       s.ceiling,
		Percentage:  FormatPercentage(s.percentage),
		Adjustments: s.history,
	})
}

// FormatPercentage renders p with two decimal places.
func FormatPercentage(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
