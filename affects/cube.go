/*
DESCRIPTION
  cube.go implements the 3-D boolean sparsity cube
  (MarkerToAttrToFrame) and the two 2-D matrices derived from it:
  ErrorToParam and ParameterToFrame.

AUTHORS
  The mmsolver Authors.
*/

// Package affects determines marker/attribute/frame reachability and
// produces the sparsity structures the residual evaluator and LM
// kernel adapter use to skip work that cannot change a given
// residual.
package affects

// Cube is the 3-D boolean sparsity matrix cube[m, a, f]: true iff
// marker m's residual at frame f could be changed by attribute a at
// some frame. It is derived, not primary; any wiring change requires a
// rebuild via Strategy.Compute.
type Cube struct {
	numMarkers, numAttrs, numFrames int
	data                            []bool
}

// NewCube allocates a cube of the given dimensions, all false.
func NewCube(numMarkers, numAttrs, numFrames int) *Cube {
	return &Cube{
		numMarkers: numMarkers,
		numAttrs:   numAttrs,
		numFrames:  numFrames,
		data:       make([]bool, numMarkers*numAttrs*numFrames),
	}
}

func (c *Cube) index(m, a, f int) int {
	return (m*c.numAttrs+a)*c.numFrames + f
}

// Get reports cube[m, a, f].
func (c *Cube) Get(m, a, f int) bool { return c.data[c.index(m, a, f)] }

// Set assigns cube[m, a, f].
func (c *Cube) Set(m, a, f int, v bool) { c.data[c.index(m, a, f)] = v }

// NumMarkers, NumAttrs and NumFrames return the cube's dimensions.
func (c *Cube) NumMarkers() int { return c.numMarkers }
func (c *Cube) NumAttrs() int   { return c.numAttrs }
func (c *Cube) NumFrames() int  { return c.numFrames }

// AffectsMarkerAtFrame reports whether any enabled attribute affects
// marker m at frame f, unconditional on which attribute.
func (c *Cube) AffectsMarkerAtFrame(m, f int) bool {
	for a := 0; a < c.numAttrs; a++ {
		if c.Get(m, a, f) {
			return true
		}
	}
	return false
}

// Contains reports whether c is a superset of other: every true entry
// in other is also true in c. Used to check that simple ⊇ object ⊇
// normal across the three GraphMode strategies.
func (c *Cube) Contains(other *Cube) bool {
	if c.numMarkers != other.numMarkers || c.numAttrs != other.numAttrs || c.numFrames != other.numFrames {
		return false
	}
	for i, v := range other.data {
		if v && !c.data[i] {
			return false
		}
	}
	return true
}

// UsedMarkers, UsedAttrs and UsedFrames report which indices have at
// least one true entry anywhere in the cube; used to build the
// filtered marker/attribute/frame lists an unused-object removal pass
// solves over.
func (c *Cube) UsedMarkers() []bool {
	out := make([]bool, c.numMarkers)
	for m := 0; m < c.numMarkers; m++ {
		for a := 0; a < c.numAttrs && !out[m]; a++ {
			for f := 0; f < c.numFrames; f++ {
				if c.Get(m, a, f) {
					out[m] = true
					break
				}
			}
		}
	}
	return out
}

func (c *Cube) UsedAttrs() []bool {
	out := make([]bool, c.numAttrs)
	for a := 0; a < c.numAttrs; a++ {
		for m := 0; m < c.numMarkers && !out[a]; m++ {
			for f := 0; f < c.numFrames; f++ {
				if c.Get(m, a, f) {
					out[a] = true
					break
				}
			}
		}
	}
	return out
}

func (c *Cube) UsedFrames() []bool {
	out := make([]bool, c.numFrames)
	for f := 0; f < c.numFrames; f++ {
		for m := 0; m < c.numMarkers && !out[f]; m++ {
			for a := 0; a < c.numAttrs; a++ {
				if c.Get(m, a, f) {
					out[f] = true
					break
				}
			}
		}
	}
	return out
}
