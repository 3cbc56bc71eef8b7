package sizing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pops(sizes ...int) []Population[string] {
	keys := []string{"A", "B", "C", "D", "E"}
	out := make([]Population[string], len(sizes))
	for i, s := range sizes {
		out[i] = Population[string]{Key: keys[i], Size: s}
	}
	return out
}

func counts(results []Result[string]) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Size.Count()
	}
	return out
}

func fixed(key string, n int) Result[string] {
	return Result[string]{Key: key, Size: New(n, n, 0)}
}

func TestUpdateMergesSameCause(t *testing.T) {
	s := New(1, 10, 50)
	s = s.Update(IncreasedForAgent, 2)
	s = s.Update(IncreasedForAgent, 3)
	s = s.Update(IncreasedForAgent, 4)

	assert.Equal(t, 4, s.Count())
	assert.Equal(t, []Adjustment{{Cause: IncreasedForAgent, Previous: 1}}, s.History())
	assert.Equal(t, 3, s.Change())

	s = s.Update(DecreasedForRounding, 2)
	assert.Equal(t, []Adjustment{
		{Cause: IncreasedForAgent, Previous: 1},
		{Cause: DecreasedForRounding, Previous: 4},
	}, s.History())
	assert.Equal(t, -2, s.Change())
}

func TestUpdateDoesNotShareHistory(t *testing.T) {
	base := New(5, 10, 0).Update(WithBuffer, 6)
	a := base.Update(IncreasedForRounding, 7)
	b := base.Update(DecreasedForRounding, 5)

	assert.Len(t, base.History(), 1)
	assert.Equal(t, IncreasedForRounding, a.Cause())
	assert.Equal(t, DecreasedForRounding, b.Cause())
}

func TestUpdateOutOfRangePanics(t *testing.T) {
	s := New(1, 2, 0)
	assert.PanicsWithError(t, "sample size -1 outside [0, 2] after DECREASED_FOR_ROUNDING", func() {
		s.Update(DecreasedForRounding, -1)
	})
	assert.Panics(t, func() { s.Update(IncreasedForRounding, 3) })
	assert.Panics(t, func() { New(3, 2, 0) })
}

func TestMarshalJSON(t *testing.T) {
	s := New(55, 454, 37.30484).Update(WithBuffer, 66)
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":66,"total":454,"percentage":"37.30","adjustments":[{"type":"WITH_BUFFER","previous":55}]}`, string(raw))
}

func TestCalculateEvenSplit(t *testing.T) {
	results := Calculate(10, 0, pops(50, 50))
	assert.Equal(t, []int{5, 5}, counts(results))
	assert.Equal(t, "50.00", FormatPercentage(results[0].Size.Percentage()))
	assert.Empty(t, results[0].Size.History())
}

func TestCalculateRoundingAddsToSmallestFirst(t *testing.T) {
	results := Calculate(10, 0, pops(50, 50, 50))
	assert.Equal(t, []int{4, 3, 3}, counts(results))
	assert.Equal(t, IncreasedForRounding, results[0].Size.Cause())
	assert.Equal(t, "33.33", FormatPercentage(results[1].Size.Percentage()))
}

func TestCalculateDocExample(t *testing.T) {
	results := Calculate(148, 0, pops(454, 138, 327, 129, 169))
	// 55/17/40/16/21 rounds to 149 so the largest gives one back.
	assert.Equal(t, []int{54, 17, 40, 16, 21}, counts(results))
	assert.Equal(t, DecreasedForRounding, results[0].Size.Cause())

	want := []string{"37.30", "11.34", "26.87", "10.60", "13.89"}
	for i, r := range results {
		assert.Equal(t, want[i], FormatPercentage(r.Size.Percentage()))
	}
}

func TestCalculateDocExampleWithBuffer(t *testing.T) {
	results := Calculate(148, 20, pops(454, 138, 327, 129, 169))
	assert.Equal(t, []int{66, 20, 48, 19, 25}, counts(results))
	assert.Equal(t, Target(148, 20), Total(results))
	for _, r := range results {
		assert.Equal(t, WithBuffer, r.Size.Cause())
	}
}

func TestCalculateSumsExactly(t *testing.T) {
	for n := 0; n <= 120; n++ {
		results := Calculate(n, 0, pops(60, 30, 30))
		assert.Equal(t, n, Total(results), "n=%d", n)
		for _, r := range results {
			assert.LessOrEqual(t, r.Size.Count(), r.Size.Ceiling())
		}
	}
}

func TestCalculateCappedByPopulation(t *testing.T) {
	results := Calculate(20, 0, pops(3, 2))
	assert.Equal(t, []int{3, 2}, counts(results))
	assert.Equal(t, 5, Total(results))
}

func TestCalculateEmpty(t *testing.T) {
	assert.Empty(t, Calculate[string](10, 20, nil))
}

func TestTarget(t *testing.T) {
	assert.Equal(t, 178, Target(148, 20))
	assert.Equal(t, 10, Target(10, 0))
	assert.Equal(t, 13, Target(10, 25))
}

func TestAdjustForRounding(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, AdjustForRounding[string](1, nil))
	})

	t.Run("no adjustment needed", func(t *testing.T) {
		in := []Result[string]{fixed("k1", 10)}
		assert.Equal(t, in, AdjustForRounding(10, in))
	})

	t.Run("one under with headroom", func(t *testing.T) {
		in := []Result[string]{{Key: "k1", Size: New(9, 10, 0)}, {Key: "k2", Size: New(9, 10, 0)}}
		out := AdjustForRounding(19, in)
		assert.Equal(t, []int{10, 9}, counts(out))
		assert.Equal(t, 9, in[0].Size.Count(), "input is not modified")
	})

	t.Run("two under across three", func(t *testing.T) {
		in := []Result[string]{{Key: "k1", Size: New(9, 10, 0)}, {Key: "k2", Size: New(9, 10, 0)}, {Key: "k3", Size: New(9, 10, 0)}}
		assert.Equal(t, []int{10, 10, 9}, counts(AdjustForRounding(29, in)))
	})

	t.Run("under with no headroom stops short", func(t *testing.T) {
		in := []Result[string]{fixed("k1", 9), fixed("k2", 9)}
		assert.Equal(t, []int{9, 9}, counts(AdjustForRounding(20, in)))
	})

	t.Run("skips full keys", func(t *testing.T) {
		in := []Result[string]{fixed("k1", 1), {Key: "k2", Size: New(5, 9, 0)}}
		assert.Equal(t, []int{1, 8}, counts(AdjustForRounding(9, in)))
	})

	t.Run("over removes from largest", func(t *testing.T) {
		in := []Result[string]{fixed("k1", 6), fixed("k2", 10), fixed("k3", 4)}
		out := AdjustForRounding(18, in)
		assert.Equal(t, []int{5, 9, 4}, counts(out))
		assert.Equal(t, []Adjustment{{Cause: DecreasedForRounding, Previous: 10}}, out[1].Size.History())
		assert.Empty(t, out[2].Size.History())
	})

	t.Run("zero requested", func(t *testing.T) {
		in := []Result[string]{fixed("k1", 6), fixed("k2", 10), fixed("k3", 4)}
		out := AdjustForRounding(0, in)
		assert.Equal(t, []int{0, 0, 0}, counts(out))
		for _, r := range out {
			assert.Len(t, r.Size.History(), 1)
		}
	})
}
