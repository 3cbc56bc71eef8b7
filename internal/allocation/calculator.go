// Package allocation divides a category's sample size down through clusters,
// units and agents while keeping each agent within its case limit.
package allocation

import (
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/ministryofjustice/probation-case-sampler/internal/cases"
	"github.com/ministryofjustice/probation-case-sampler/internal/sizing"
)

// Info is one node of an allocation path.
type Info struct {
	ID   string            `json:"id"`
	Size sizing.SampleSize `json:"size"`
}

// Path locates an agent's allocation in the hierarchy.
type Path struct {
	Cluster Info `json:"cluster"`
	Unit    Info `json:"ldu"`
	Agent   Info `json:"ro"`
}

// Bucket is the allocation for one agent and the records it may be drawn
// from.
type Bucket struct {
	Path    Path
	Records []cases.Record
}

// Shuffler permutes n elements; *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

var _ Shuffler = (*rand.Rand)(nil)

// Draw returns a uniformly random selection of the bucket's allocated count,
// never more than the records available.
func (b Bucket) Draw(s Shuffler) []cases.Record {
	pool := append([]cases.Record(nil), b.Records...)
	s.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:min(b.Path.Agent.Size.Count(), len(pool))]
}

type level struct {
	name string
	key  func(cases.Record) string
}

var levels = []level{
	{name: "cluster", key: func(r cases.Record) string { return r.Cluster }},
	{name: "ldu", key: func(r cases.Record) string { return r.Unit }},
	{name: "agent", key: func(r cases.Record) string { return r.Agent }},
}

// Calculator divides a sample across the organisational hierarchy.
type Calculator struct {
	adjuster *Adjuster
	logger   *zap.Logger
	dropped  int
}

// NewCalculator returns a calculator capping agents through adjuster.
func NewCalculator(adjuster *Adjuster, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{adjuster: adjuster, logger: logger}
}

// Dropped is the total number of samples lost to agent capacity across all
// calls to Calculate.
func (c *Calculator) Dropped() int { return c.dropped }

// Calculate divides size's count proportionally by cluster, then by unit
// within each cluster, then by agent within each unit. Buckets follow the
// first appearance of each cluster and unit in records, and agents within a
// unit are sorted by id.
func (c *Calculator) Calculate(size sizing.SampleSize, records []cases.Record) ([]Bucket, error) {
	var buckets []Bucket
	err := c.descend(0, size.Count(), records, nil, func(path []Info, rs []cases.Record) {
		buckets = append(buckets, Bucket{
			Path:    Path{Cluster: path[0], Unit: path[1], Agent: path[2]},
			Records: rs,
		})
	})
	if err != nil {
		return nil, err
	}
	return buckets, nil
}

func (c *Calculator) descend(depth, n int, records []cases.Record, path []Info, emit func([]Info, []cases.Record)) error {
	lvl := levels[depth]
	groups := groupBy(records, lvl.key)

	populations := make([]sizing.Population[string], len(groups))
	for i, g := range groups {
		populations[i] = sizing.Population[string]{Key: g.key, Size: len(g.records)}
	}
	results := sizing.Calculate(n, 0, populations)
	c.logger.Debug("divided sample",
		zap.String("level", lvl.name), zap.Int("size", n), zap.Int("groups", len(groups)))

	members := make(map[string][]cases.Record, len(groups))
	for _, g := range groups {
		members[g.key] = g.records
	}

	if depth == len(levels)-1 {
		c.logger.Debug("adjusting agent sample sizes", zap.String("ldu", path[len(path)-1].ID))
		adjusted, dropped, err := c.adjuster.Adjust(results)
		if err != nil {
			return err
		}
		c.dropped += dropped
		results = adjusted
	}

	for _, r := range results {
		next := append(append([]Info(nil), path...), Info{ID: r.Key, Size: r.Size})
		if depth == len(levels)-1 {
			emit(next, members[r.Key])
			continue
		}
		if err := c.descend(depth+1, r.Size.Count(), members[r.Key], next, emit); err != nil {
			return err
		}
	}
	return nil
}

type group struct {
	key     string
	records []cases.Record
}

// groupBy partitions records by key in order of first appearance.
func groupBy(records []cases.Record, key func(cases.Record) string) []group {
	index := make(map[string]int)
	var groups []group
	for _, r := range records {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, group{key: k})
		}
		groups[i].records = append(groups[i].records, r)
	}
	return groups
}
