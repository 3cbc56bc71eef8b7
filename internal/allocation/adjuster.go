package allocation

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ministryofjustice/probation-case-sampler/internal/capacity"
	"github.com/ministryofjustice/probation-case-sampler/internal/sizing"
)

// DefaultMaxPerAgent is the most records one agent contributes to a run.
const DefaultMaxPerAgent = 6

// Adjuster keeps agent allocations within the capacity counter's maximum.
// Any allocation removed from a full agent is handed to other agents in the
// same unit, one at a time, smallest allocation first.
type Adjuster struct {
	counter *capacity.Counter
	logger  *zap.Logger
}

// NewAdjuster returns an adjuster charging allocations to counter.
func NewAdjuster(counter *capacity.Counter, logger *zap.Logger) *Adjuster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adjuster{counter: counter, logger: logger}
}

// Counter exposes the running tally the adjuster charges.
func (a *Adjuster) Counter() *capacity.Counter { return a.counter }

// Adjust clamps each agent to its remaining capacity, then reallocates the
// removed amount to agents with spare capacity. Results are sorted by agent.
// It returns how many samples could not be reallocated.
func (a *Adjuster) Adjust(sizes []sizing.Result[string]) ([]sizing.Result[string], int, error) {
	out := make([]sizing.Result[string], len(sizes))
	removed := 0
	for i, s := range sizes {
		size, cut, err := a.reduce(s.Key, s.Size)
		if err != nil {
			return nil, 0, err
		}
		out[i] = sizing.Result[string]{Key: s.Key, Size: size}
		removed += cut
	}

	if removed > 0 {
		a.logger.Info("reallocating agent cases",
			zap.Int("removed", removed),
			zap.Int("spare", a.spare(out)))
	}
	dropped, err := a.reallocate(out, removed)
	if err != nil {
		return nil, 0, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, dropped, nil
}

func (a *Adjuster) reduce(agent string, size sizing.SampleSize) (sizing.SampleSize, int, error) {
	current := a.counter.Size(agent)
	wanted := size.Count()
	cut := max(0, current+wanted-a.counter.Max())
	if cut == 0 {
		if err := a.counter.Add(agent, wanted); err != nil {
			return size, 0, fmt.Errorf("charge agent %s: %w", agent, err)
		}
		a.logger.Debug("agent within capacity",
			zap.String("agent", agent), zap.Int("current", current), zap.Int("additional", wanted))
		return size, 0, nil
	}

	kept := wanted - cut
	if err := a.counter.Add(agent, kept); err != nil {
		return size, 0, fmt.Errorf("charge agent %s: %w", agent, err)
	}
	a.logger.Debug("reducing agent allocation",
		zap.String("agent", agent), zap.Int("current", current),
		zap.Int("additional", wanted), zap.Int("adjustment", -cut))
	return size.Update(sizing.DecreasedForAgent, kept), cut, nil
}

func (a *Adjuster) spare(sizes []sizing.Result[string]) int {
	total := 0
	for _, s := range sizes {
		total += a.counter.Spare(s.Key)
	}
	return total
}

// reallocate hands out n samples one at a time. Each pass over the agents is
// ordered by current allocation, smallest first, and one sample's search
// walks a single ordering all the way round. An agent is skipped when it is
// at capacity or has no more candidate records.
func (a *Adjuster) reallocate(sizes []sizing.Result[string], n int) (int, error) {
	if len(sizes) == 0 {
		return n, nil
	}
	var order []int
	pos := 0
	for given := 0; given < n; given++ {
		if pos == 0 {
			order = smallestFirst(sizes)
		}
		placed := false
		for tries := 0; tries < len(order); tries++ {
			i := order[pos]
			pos = (pos + 1) % len(order)

			s := sizes[i]
			if !a.counter.CanIncrement(s.Key) || s.Size.Headroom() == 0 {
				a.logger.Debug("agent full", zap.String("agent", s.Key), zap.Int("current", a.counter.Size(s.Key)))
				continue
			}
			if err := a.counter.Inc(s.Key); err != nil {
				return 0, fmt.Errorf("charge agent %s: %w", s.Key, err)
			}
			sizes[i].Size = s.Size.Update(sizing.IncreasedForAgent, s.Size.Count()+1)
			placed = true
			break
		}
		if !placed {
			dropped := n - given
			a.logger.Warn("could not reallocate samples, no capacity left", zap.Int("dropped", dropped))
			return dropped, nil
		}
	}
	return 0, nil
}

func smallestFirst(sizes []sizing.Result[string]) []int {
	order := make([]int, len(sizes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return sizes[order[a]].Size.Count() < sizes[order[b]].Size.Count()
	})
	return order
}
