// Package stats implements the scalar aggregators of aggregate widgets.
package stats

import (
	"math"

	"tessera/internal/domain"
	"tessera/internal/ports"
)

// Aggregator reduces numeric sequences, skipping nil and NaN entries
type Aggregator struct{}

// Ensure Aggregator implements ports.Aggregator
var _ ports.Aggregator = Aggregator{}

// Aggregate applies kind to values.
// The sum and count of nothing are 0; avg, min, max and stddev of nothing are undefined.
func (Aggregator) Aggregate(kind domain.AggregatorKind, values []*float64) (float64, bool) {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil && !math.IsNaN(*v) {
			nums = append(nums, *v)
		}
	}

	switch kind {
	case domain.AggregatorCount:
		return float64(len(nums)), true
	case domain.AggregatorSum:
		return sum(nums), true
	}

	if len(nums) == 0 {
		return 0, false
	}

	switch kind {
	case domain.AggregatorAvg:
		return sum(nums) / float64(len(nums)), true
	case domain.AggregatorMin:
		m := nums[0]
		for _, n := range nums[1:] {
			m = math.Min(m, n)
		}
		return m, true
	case domain.AggregatorMax:
		m := nums[0]
		for _, n := range nums[1:] {
			m = math.Max(m, n)
		}
		return m, true
	case domain.AggregatorStddev:
		// population standard deviation
		mean := sum(nums) / float64(len(nums))
		variance := 0.0
		for _, n := range nums {
			variance += (n - mean) * (n - mean)
		}
		return math.Sqrt(variance / float64(len(nums))), true
	default:
		return 0, false
	}
}

func sum(nums []float64) float64 {
	s := 0.0
	for _, n := range nums {
		s += n
	}
	return s
}
