package sizing

import (
	"math"
	"sort"
)

// Population is the number of candidates available under one key.
type Population[K comparable] struct {
	Key  K
	Size int
}

// Result pairs a key with its allocated size.
type Result[K comparable] struct {
	Key  K
	Size SampleSize
}

// Total sums the counts of results.
func Total[K comparable](results []Result[K]) int {
	total := 0
	for _, r := range results {
		total += r.Size.Count()
	}
	return total
}

// Target is the overall number of samples wanted for n requested samples
// with a buffer of buffer percent.
func Target(n int, buffer float64) int {
	return n + roundHalfUp(float64(n)*buffer/100)
}

// Calculate divides n samples plus a buffer percentage across populations in
// proportion to their sizes. Each key is capped at its population size.
// Counts are corrected so they sum to exactly Target(n, buffer) unless the
// populations are too small to reach it. Results keep the input order.
func Calculate[K comparable](n int, buffer float64, populations []Population[K]) []Result[K] {
	if len(populations) == 0 {
		return nil
	}
	total := 0
	for _, p := range populations {
		total += p.Size
	}

	results := make([]Result[K], len(populations))
	for i, p := range populations {
		proportion := 0.0
		if total > 0 {
			proportion = float64(p.Size) / float64(total)
		}
		results[i] = Result[K]{Key: p.Key, Size: proportional(n, buffer, proportion, p.Size)}
	}
	return AdjustForRounding(Target(n, buffer), results)
}

func proportional(n int, buffer, proportion float64, ceiling int) SampleSize {
	base := min(roundHalfUp(float64(n)*proportion), ceiling)
	size := New(base, ceiling, proportion*100)

	extra := roundHalfUp(float64(base) * buffer / 100)
	if extra <= 0 {
		return size
	}
	if buffered := min(base+extra, ceiling); buffered != base {
		size = size.Update(WithBuffer, buffered)
	}
	return size
}

// AdjustForRounding nudges counts one at a time until they sum to target.
// A shortfall is filled smallest-first, cycling through keys until the
// target is met or every key is at its ceiling; an excess is removed
// largest-first without taking any key below zero.
func AdjustForRounding[K comparable](target int, results []Result[K]) []Result[K] {
	if len(results) == 0 {
		return results
	}
	out := append([]Result[K](nil), results...)
	sum := Total(out)
	switch {
	case sum < target:
		c := newCycle(out, func(a, b int) bool { return out[a].Size.Count() < out[b].Size.Count() })
		for ; sum < target; sum++ {
			i, ok := c.next(func(i int) bool { return out[i].Size.Headroom() > 0 })
			if !ok {
				break
			}
			out[i].Size = out[i].Size.Update(IncreasedForRounding, out[i].Size.Count()+1)
		}
	case sum > target:
		c := newCycle(out, func(a, b int) bool { return out[a].Size.Count() > out[b].Size.Count() })
		for ; sum > target; sum-- {
			i, ok := c.next(func(i int) bool { return out[i].Size.Count() > 0 })
			if !ok {
				break
			}
			out[i].Size = out[i].Size.Update(DecreasedForRounding, out[i].Size.Count()-1)
		}
	}
	return out
}

// cycle visits indexes in a fixed order, wrapping around, remembering its
// position between calls.
type cycle struct {
	order []int
	pos   int
}

func newCycle[K comparable](results []Result[K], less func(a, b int) bool) *cycle {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return less(order[a], order[b]) })
	return &cycle{order: order}
}

// next returns the next index accepted by ok, trying each index at most once.
func (c *cycle) next(ok func(int) bool) (int, bool) {
	for range c.order {
		i := c.order[c.pos]
		c.pos = (c.pos + 1) % len(c.order)
		if ok(i) {
			return i, true
		}
	}
	return 0, false
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
