/*
DESCRIPTION
  matrices.go implements the 2-D sparsity matrices derived from the
  Cube: ParameterToFrame and ErrorToParam.

AUTHORS
  The mmsolver Authors.
*/

package affects

import "github.com/mmsolver/mmsolver/attr"

// Matrix2D is a dense boolean matrix addressed as (row, col).
type Matrix2D struct {
	rows, cols int
	data       []bool
}

// NewMatrix2D allocates a matrix of the given shape, all false.
func NewMatrix2D(rows, cols int) *Matrix2D {
	return &Matrix2D{rows: rows, cols: cols, data: make([]bool, rows*cols)}
}

func (m *Matrix2D) Rows() int { return m.rows }
func (m *Matrix2D) Cols() int { return m.cols }

func (m *Matrix2D) Get(r, c int) bool { return m.data[r*m.cols+c] }
func (m *Matrix2D) Set(r, c int, v bool) { m.data[r*m.cols+c] = v }

// BuildParameterToFrameMatrix builds the rows=paramCount,
// cols=frameCount matrix: true iff parameter j's value determines
// the residual at frame index f. Static parameters (FrameIndex == -1)
// are true for every frame; keyframed parameters are true only at
// their own frame.
func BuildParameterToFrameMatrix(packer *attr.Packer, numFrames int) *Matrix2D {
	m := NewMatrix2D(packer.NumParameters(), numFrames)
	for j := 0; j < packer.NumParameters(); j++ {
		pair := packer.ParamToAttr(j)
		if pair.FrameIndex < 0 {
			for f := 0; f < numFrames; f++ {
				m.Set(j, f, true)
			}
			continue
		}
		if pair.FrameIndex < numFrames {
			m.Set(j, pair.FrameIndex, true)
		}
	}
	return m
}

// BuildErrorToParamMatrix builds the width=numPairs, height=paramCount
// matrix: true iff parameter j affects marker-residual-pair i. pairMarker
// and pairFrame give, for each marker-residual pair, the cube marker
// index and cube/parameterToFrame frame index it corresponds to.
func BuildErrorToParamMatrix(cube *Cube, packer *attr.Packer, paramToFrame *Matrix2D, pairMarker, pairFrame []int) *Matrix2D {
	numPairs := len(pairMarker)
	m := NewMatrix2D(packer.NumParameters(), numPairs)
	for j := 0; j < packer.NumParameters(); j++ {
		pair := packer.ParamToAttr(j)
		for i := 0; i < numPairs; i++ {
			mk, f := pairMarker[i], pairFrame[i]
			if cube.Get(mk, pair.AttrIndex, f) && paramToFrame.Get(j, f) {
				m.Set(j, i, true)
			}
		}
	}
	return m
}
