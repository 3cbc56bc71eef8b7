package sampler

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ministryofjustice/probation-case-sampler/internal/allocation"
	"github.com/ministryofjustice/probation-case-sampler/internal/cases"
	"github.com/ministryofjustice/probation-case-sampler/internal/sizing"
)

// Row is a selected record with its position in the report.
type Row struct {
	Number string `json:"row"`
	cases.Record
}

// CategoryResult is one category's share of the report.
type CategoryResult struct {
	Category    cases.Category
	Size        sizing.SampleSize
	Allocations []allocation.Path
	Rows        []Row
}

// Report is the outcome of one sampling run.
type Report struct {
	ID          uuid.UUID
	Timestamp   time.Time
	Requested   int
	Buffer      float64
	MaxPerAgent int
	// Target is Requested plus the buffer.
	Target int
	// Eligible is the number of records left after exclusion and
	// deduplication.
	Eligible int
	Results  []CategoryResult
}

// Rows returns every selected row in report order.
func (r *Report) Rows() []Row {
	var rows []Row
	for _, res := range r.Results {
		rows = append(rows, res.Rows...)
	}
	return rows
}

// Selected is the number of records drawn.
func (r *Report) Selected() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Rows)
	}
	return n
}

// Shortfall is how far the selection fell below the target.
func (r *Report) Shortfall() int { return r.Target - r.Selected() }

func rowNumber(n int) string { return fmt.Sprintf("%03d", n) }

// assemble numbers the selected records sequentially across categories.
func assemble(samples []Sample) []CategoryResult {
	results := make([]CategoryResult, 0, len(samples))
	next := 0
	for _, s := range samples {
		rows := make([]Row, 0, len(s.Records))
		for _, rec := range s.Records {
			next++
			rows = append(rows, Row{Number: rowNumber(next), Record: rec})
		}
		results = append(results, CategoryResult{
			Category:    s.Category,
			Size:        s.Size,
			Allocations: s.Allocations,
			Rows:        rows,
		})
	}
	return results
}

// Summary is the flat view of a report.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Results   []Row     `json:"results"`
}

// Summarize returns the flat view of r.
func Summarize(r *Report) Summary {
	return Summary{ID: r.ID, Timestamp: r.Timestamp, Results: r.Rows()}
}

// Detail adds the allocation breakdown to the flat view.
type Detail struct {
	ID        uuid.UUID       `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Requested int             `json:"requested"`
	Target    int             `json:"target"`
	Selected  int             `json:"selected"`
	Shortfall int             `json:"shortfall"`
	Results   []Row           `json:"results"`
	Stratum   []StratumDetail `json:"stratum"`
}

// StratumDetail is one category's size and its cluster breakdown.
type StratumDetail struct {
	Name     cases.Category    `json:"name"`
	Size     sizing.SampleSize `json:"size"`
	Clusters []ClusterDetail   `json:"clusters"`
}

// ClusterDetail is a cluster's share and its units.
type ClusterDetail struct {
	Name  string            `json:"name"`
	Size  sizing.SampleSize `json:"size"`
	Units []UnitDetail      `json:"ldus"`
}

// UnitDetail is an LDU's share and its responsible officers.
type UnitDetail struct {
	Name   string            `json:"name"`
	Size   sizing.SampleSize `json:"size"`
	Agents []AgentDetail     `json:"ros"`
}

// AgentDetail is one responsible officer's allocation.
type AgentDetail struct {
	Name string            `json:"name"`
	Size sizing.SampleSize `json:"size"`
}

// Analyse returns the nested view of r.
func Analyse(r *Report) Detail {
	d := Detail{
		ID:        r.ID,
		Timestamp: r.Timestamp,
		Requested: r.Requested,
		Target:    r.Target,
		Selected:  r.Selected(),
		Shortfall: r.Shortfall(),
		Results:   r.Rows(),
		Stratum:   make([]StratumDetail, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		d.Stratum = append(d.Stratum, StratumDetail{
			Name:     res.Category,
			Size:     res.Size,
			Clusters: nest(res.Allocations),
		})
	}
	return d
}

// nest groups paths by cluster then unit, keeping first-seen order. Paths
// arrive grouped already, so a change of id starts a new node.
func nest(paths []allocation.Path) []ClusterDetail {
	var clusters []ClusterDetail
	for _, p := range paths {
		if n := len(clusters); n == 0 || clusters[n-1].Name != p.Cluster.ID {
			clusters = append(clusters, ClusterDetail{Name: p.Cluster.ID, Size: p.Cluster.Size})
		}
		c := &clusters[len(clusters)-1]
		if n := len(c.Units); n == 0 || c.Units[n-1].Name != p.Unit.ID {
			c.Units = append(c.Units, UnitDetail{Name: p.Unit.ID, Size: p.Unit.Size})
		}
		u := &c.Units[len(c.Units)-1]
		u.Agents = append(u.Agents, AgentDetail{Name: p.Agent.ID, Size: p.Agent.Size})
	}
	return clusters
}
