package report

// welford keeps a running mean without storing the observations.
type welford struct {
	n    int
	mean float64
}

func (w *welford) add(v float64) {
	w.n++
	w.mean += (v - w.mean) / float64(w.n)
}
