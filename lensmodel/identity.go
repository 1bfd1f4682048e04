package lensmodel

// Identity is a no-op lens model: ApplyDistort returns its input
// unchanged. It is the default model for markers/attributes with no
// lens wired, and a convenient chain root in tests.
type Identity struct{}

// ApplyDistort implements Model.
func (Identity) ApplyDistort(x, y float64) (float64, float64) { return x, y }
