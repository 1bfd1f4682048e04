/*
DESCRIPTION
  options.go defines the Options record passed to Solve(): the
  iteration/convergence parameters the driver fixes for the lifetime
  of one solve, the print-stats bitmask, and the solver-capability
  flags a host advertises.

AUTHORS
  The mmsolver Authors.
*/

package solve

import (
	"github.com/pkg/errors"

	"github.com/mmsolver/mmsolver/affects"
	"github.com/mmsolver/mmsolver/residual"
)

// AutoDiffType selects forward or central differencing for the
// analytic-Jacobian kernels (lmder, ceres).
type AutoDiffType int

// Recognised auto-diff types.
const (
	AutoDiffForward AutoDiffType = iota
	AutoDiffCentral
)

// FrameSolveMode selects whether the driver solves every animated
// frame in one parameter vector, or loops frame-by-frame.
type FrameSolveMode int

// Recognised frame-solve modes.
const (
	FrameSolveAllAtOnce FrameSolveMode = iota
	FrameSolvePerFrame
)

// SolverType selects among the five LM kernel variants. Values match
// the kernel package's Kernel constructors.
type SolverType int

// Recognised solver types; SolverTypeLMDif is the built-in default a
// solve falls back to on an unrecognised solver_type or
// MMSOLVER_DEFAULT_SOLVER value.
const (
	SolverTypeLMDif SolverType = iota
	SolverTypeLMDifBC
	SolverTypeLMDer
	SolverTypeCeres1
	SolverTypeCeres2
)

// solverTypeNames maps the MMSOLVER_DEFAULT_SOLVER environment
// variable's accepted string values to SolverType.
var solverTypeNames = map[string]SolverType{
	"lmdif":   SolverTypeLMDif,
	"lmdifbc": SolverTypeLMDifBC,
	"lmder":   SolverTypeLMDer,
	"ceres1":  SolverTypeCeres1,
	"ceres2":  SolverTypeCeres2,
}

// ParseSolverType maps name to a SolverType, and ok=false if name is
// unrecognised: unrecognised values produce a warning and fall back to
// the built-in default.
func ParseSolverType(name string) (t SolverType, ok bool) {
	t, ok = solverTypeNames[name]
	return
}

// PrintStats is a bitmask of the print-stats modes a host may request.
// When non-zero, do_not_solve is implied: the driver runs preflight
// and affects analysis then returns without invoking the LM kernel.
type PrintStats uint8

// Recognised print-stats modes.
const (
	PrintInputs PrintStats = 1 << iota
	PrintAffects
	PrintUsedSolveObjects
	PrintDeviation
)

// DoNotSolve reports whether any print-stats mode is set.
func (p PrintStats) DoNotSolve() bool { return p != 0 }

// Has reports whether mode is set in p.
func (p PrintStats) Has(mode PrintStats) bool { return p&mode != 0 }

// Options carries every convergence/iteration parameter and solver
// capability flag a host may set. The driver never varies these
// mid-solve.
type Options struct {
	IterMax            int
	Tau                float64
	FunctionTolerance  float64
	ParameterTolerance float64
	GradientTolerance  float64
	Delta              float64

	AutoDiffType AutoDiffType

	// AutoParamScale, when set, has the packer derive each unbounded
	// parameter's Offset/Scale from its value at the start of the solve
	// instead of leaving the identity Offset=0/Scale=1 (attr.Packer's
	// ApplyAutoParamScale). Bounded parameters are unaffected.
	AutoParamScale bool

	RobustLossType  residual.RobustLossType
	RobustLossScale float64

	SceneGraphMode affects.GraphMode
	SolverType     SolverType

	AcceptOnlyBetter bool
	ImageWidth       float64
	FrameSolveMode   FrameSolveMode

	RemoveUnusedMarkers    bool
	RemoveUnusedAttributes bool
	RemoveUnusedFrames     bool

	SolverSupportsAutoDiffForward bool
	SolverSupportsAutoDiffCentral bool
	SolverSupportsParameterBounds bool
	SolverSupportsRobustLoss      bool
}

// Validate checks the invariants the driver relies on before
// preflight: positive iteration count and image width, and
// non-negative tolerances.
func (o Options) Validate() error {
	if o.IterMax <= 0 {
		return errors.New("solve: options.IterMax must be positive")
	}
	if o.ImageWidth <= 0 {
		return errors.New("solve: options.ImageWidth must be positive")
	}
	if o.FunctionTolerance < 0 || o.ParameterTolerance < 0 || o.GradientTolerance < 0 {
		return errors.New("solve: options tolerances must be non-negative")
	}
	if o.Delta <= 0 {
		return errors.New("solve: options.Delta must be positive")
	}
	return nil
}
