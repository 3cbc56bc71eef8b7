package sampler

import (
	"github.com/ministryofjustice/probation-case-sampler/internal/allocation"
	"github.com/ministryofjustice/probation-case-sampler/internal/cases"
	"github.com/ministryofjustice/probation-case-sampler/internal/sizing"
)

// Sample is the selection made for one category.
type Sample struct {
	Category    cases.Category
	Size        sizing.SampleSize
	Allocations []allocation.Path
	Records     []cases.Record
}

// Picker draws records for each category from its agent buckets.
type Picker struct {
	calculator *allocation.Calculator
	shuffler   allocation.Shuffler
}

// NewPicker returns a picker allocating through calculator. The calculator's
// capacity counter is shared by every category picked.
func NewPicker(calculator *allocation.Calculator, shuffler allocation.Shuffler) *Picker {
	return &Picker{calculator: calculator, shuffler: shuffler}
}

// Pick allocates and draws each category in the order given.
func (p *Picker) Pick(sizes []sizing.Result[cases.Category], strata map[cases.Category][]cases.Record) ([]Sample, error) {
	samples := make([]Sample, 0, len(sizes))
	for _, s := range sizes {
		buckets, err := p.calculator.Calculate(s.Size, strata[s.Key])
		if err != nil {
			return nil, err
		}
		sample := Sample{Category: s.Key, Size: s.Size}
		for _, b := range buckets {
			sample.Allocations = append(sample.Allocations, b.Path)
			sample.Records = append(sample.Records, b.Draw(p.shuffler)...)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}
