package analysis

import "fmt"

// NoData is rendered in place of a percentage whose denominator is zero.
const NoData = "No data available"

// Ratio is a count over a total, rendered as a percentage.
type Ratio struct {
	Count int
	Total int
}

// Percent returns Count/Total*100, or false when Total is zero.
func (r Ratio) Percent() (float64, bool) {
	if r.Total == 0 {
		return 0, false
	}
	return float64(r.Count) / float64(r.Total) * 100, true
}

func (r Ratio) String() string {
	p, ok := r.Percent()
	if !ok {
		return NoData
	}
	return fmt.Sprintf("%.4f%%", p)
}
