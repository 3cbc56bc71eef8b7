// Package capacity tracks how many records have been assigned to each agent
// during one sampling run.
package capacity

import (
	"errors"
	"fmt"
	"math"
)

// ErrCapacityExceeded is returned when an add would take a key past the
// counter's maximum.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// Counter is a running tally per key with a hard maximum. A Counter belongs
// to a single run and is not safe for concurrent use.
type Counter struct {
	max    int
	counts map[string]int
}

// NewCounter returns a counter enforcing limit per key. A limit of zero or
// less means unlimited.
func NewCounter(limit int) *Counter {
	if limit <= 0 {
		limit = math.MaxInt
	}
	return &Counter{max: limit, counts: make(map[string]int)}
}

// Max is the per-key limit.
func (c *Counter) Max() int { return c.max }

// Size is the current tally for key.
func (c *Counter) Size(key string) int { return c.counts[key] }

// Add increases key by n. The tally is left unchanged if it would exceed
// the maximum.
func (c *Counter) Add(key string, n int) error {
	if n < 0 {
		return fmt.Errorf("add %d to %s: negative amount", n, key)
	}
	next := c.counts[key] + n
	if next > c.max {
		return fmt.Errorf("%w: %s will be larger than %d", ErrCapacityExceeded, key, c.max)
	}
	c.counts[key] = next
	return nil
}

// Inc increases key by one.
func (c *Counter) Inc(key string) error { return c.Add(key, 1) }

// CanIncrement reports whether key has room for one more.
func (c *Counter) CanIncrement(key string) bool { return c.Size(key) < c.max }

// Spare is the room left under the maximum for key.
func (c *Counter) Spare(key string) int { return max(0, c.max-c.Size(key)) }

// Snapshot returns a copy of every tally.
func (c *Counter) Snapshot() map[string]int {
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}
