/*
DESCRIPTION
  kernel.go defines the narrow callback contract between the solve
  driver and an LM kernel: the driver itself exposes only
  evaluate(params, out_residuals, out_jacobian_opt, cancel) → Status,
  the Options every kernel variant honours identically, and the Result
  every kernel reports on return.

AUTHORS
  The mmsolver Authors.
*/

// Package kernel adapts the solve driver to the Levenberg–Marquardt
// minimiser: a shared damped Gauss–Newton step (gaussnewton.go), the
// affects-aware analytic-Jacobian column routine (jacobian.go), and
// five concrete kernel variants selected by solver_type. The LM
// minimisation itself is treated as an external collaborator; this
// package is the thin shim around it, not a general-purpose
// optimiser.
package kernel

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrCancelled is returned by a jacobianFn when the evaluator observes
// cancellation mid-column.
var ErrCancelled = errors.New("kernel: evaluation cancelled")

// Options carries the convergence parameters every kernel variant
// honours identically; the driver never varies them mid-solve.
type Options struct {
	MaxIterations      int
	Tau                float64
	FunctionTolerance  float64
	ParameterTolerance float64
	GradientTolerance  float64
	Delta              float64 // finite-difference attribute_delta step size.
}

// TerminationReason enumerates why a kernel stopped.
type TerminationReason int

// Recognised termination reasons.
const (
	ReasonUnknown TerminationReason = iota
	ReasonConverged
	ReasonMaxIterations
	ReasonNoReduction
	ReasonSingularMatrix
	ReasonCancelled
)

func (r TerminationReason) String() string {
	switch r {
	case ReasonConverged:
		return "converged"
	case ReasonMaxIterations:
		return "max iterations reached"
	case ReasonNoReduction:
		return "no reduction possible"
	case ReasonSingularMatrix:
		return "singular matrix"
	case ReasonCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is what every kernel reports on return: success flag,
// termination reason code + string, iteration count,
// function-evaluation count, Jacobian-evaluation count, and final
// residual norm.
type Result struct {
	Success           bool
	Reason            TerminationReason
	ReasonString      string
	Iterations        int
	FuncEvals         int
	JacEvals          int
	FinalResidualNorm float64
}

// EvalFunc is the driver's narrow callback surface: it unpacks params
// into the AttrBlock, evaluates residuals, and returns false if
// cancellation was observed. The driver's EvalFunc does not fill the
// jacobian argument, and every kernel in this package passes nil. A
// kernel must treat EvalFunc as non-reentrant.
type EvalFunc func(params []float64, residuals []float64, jacobian *mat.Dense) bool

// Kernel is the common interface every solver_type variant
// implements; all share the same Gauss–Newton step (gaussnewton.go)
// and always compute the same thing, differing only in how they
// obtain a Jacobian and how they damp the step.
type Kernel interface {
	Solve(x0 []float64, opts Options, numResiduals int, eval EvalFunc) ([]float64, Result)
}
