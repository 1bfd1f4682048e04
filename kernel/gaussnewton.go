/*
DESCRIPTION
  gaussnewton.go implements the damped Gauss–Newton step every kernel
  variant shares, and the outer LM loop that differs between variants
  only in how it obtains the Jacobian and how it schedules the damping
  factor lambda.

AUTHORS
  The mmsolver Authors.
*/

package kernel

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// dampingSchedule parameterises the lambda (trust-region damping)
// policy between kernel variants; classicDamping and the two
// ceresDampingVariant schedules correspond in spirit to
// ceres-solver-style trust-region implementations.
type dampingSchedule struct {
	initial func(tau float64) float64
	grow    func(lambda float64) float64
	shrink  func(lambda float64) float64
}

var classicDamping = dampingSchedule{
	initial: func(tau float64) float64 {
		if tau <= 0 {
			tau = 1e-3
		}
		return tau
	},
	grow:   func(lambda float64) float64 { return lambda * 10 },
	shrink: func(lambda float64) float64 { return math.Max(lambda/10, 1e-12) },
}

// ceresDampingVariant returns one of two trust-region schedules,
// selected by variant (1 or 2), standing in for two ceres-style
// damping alternatives.
func ceresDampingVariant(variant int) dampingSchedule {
	if variant == 2 {
		return dampingSchedule{
			initial: func(tau float64) float64 {
				if tau <= 0 {
					tau = 1e-5
				}
				return tau
			},
			grow:   func(lambda float64) float64 { return lambda * 2.5 },
			shrink: func(lambda float64) float64 { return lambda / 2.5 },
		}
	}
	return dampingSchedule{
		initial: func(tau float64) float64 {
			if tau <= 0 {
				tau = 1e-4
			}
			return tau
		},
		grow:   func(lambda float64) float64 { return lambda * 2 },
		shrink: func(lambda float64) float64 { return lambda / 3 },
	}
}

// gaussNewtonStep solves the Levenberg-damped normal equations
// (J^T J + lambda·diag(J^T J)) d = J^T r and returns delta = -d, the
// descent step every kernel variant shares. A zero diagonal entry (a
// parameter no residual depends on) is damped as if it were 1, so
// that parameter gets a zero step instead of a singular system.
func gaussNewtonStep(J *mat.Dense, r []float64, lambda float64) ([]float64, error) {
	_, nc := J.Dims()
	var jtj mat.Dense
	jtj.Mul(J.T(), J)
	for i := 0; i < nc; i++ {
		d := jtj.At(i, i)
		if d == 0 {
			jtj.Set(i, i, lambda)
			continue
		}
		jtj.Set(i, i, d*(1+lambda))
	}
	rv := mat.NewVecDense(len(r), append([]float64(nil), r...))
	var jtr mat.VecDense
	jtr.MulVec(J.T(), rv)
	var delta mat.VecDense
	if err := delta.SolveVec(&jtj, &jtr); err != nil {
		return nil, err
	}
	out := make([]float64, nc)
	for i := range out {
		out[i] = -delta.AtVec(i)
	}
	return out, nil
}

func sumSquares(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return s
}

func norm2(v []float64) float64 { return math.Sqrt(sumSquares(v)) }

func addVec(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out
}

// runLM runs the damped Gauss-Newton loop shared by every kernel
// variant. jacobianFn computes the current Jacobian (column by column
// through JacobianColumn for the analytic variants, by finite
// differences of eval for the naive variants); eval is always called
// with a nil jacobian argument. damping selects the lambda schedule.
func runLM(x0 []float64, opts Options, numResiduals int, eval EvalFunc, jacobianFn func(x, r []float64) (*mat.Dense, error), damping dampingSchedule) ([]float64, Result) {
	x := append([]float64(nil), x0...)
	r := make([]float64, numResiduals)
	if ok := eval(x, r, nil); !ok {
		return append([]float64(nil), x0...), Result{Reason: ReasonCancelled, ReasonString: ReasonCancelled.String()}
	}
	cost := sumSquares(r)
	lambda := damping.initial(opts.Tau)
	funcEvals, jacEvals := 1, 0

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 50
	}

	for it := 0; it < maxIter; it++ {
		J, err := jacobianFn(x, r)
		if err == ErrCancelled {
			return x, Result{Reason: ReasonCancelled, ReasonString: ReasonCancelled.String(), Iterations: it, FuncEvals: funcEvals, JacEvals: jacEvals, FinalResidualNorm: norm2(r)}
		}
		if err != nil {
			return x, Result{Success: false, Reason: ReasonSingularMatrix, ReasonString: err.Error(), Iterations: it, FuncEvals: funcEvals, JacEvals: jacEvals, FinalResidualNorm: norm2(r)}
		}
		jacEvals++

		var jtr mat.VecDense
		jtr.MulVec(J.T(), mat.NewVecDense(len(r), append([]float64(nil), r...)))
		if norm2(jtr.RawVector().Data) < opts.GradientTolerance {
			return x, Result{Success: true, Reason: ReasonConverged, ReasonString: "gradient tolerance reached", Iterations: it, FuncEvals: funcEvals, JacEvals: jacEvals, FinalResidualNorm: norm2(r)}
		}

		delta, err := gaussNewtonStep(J, r, lambda)
		if err != nil {
			lambda = damping.grow(lambda)
			continue
		}
		if norm2(delta) < opts.ParameterTolerance {
			return x, Result{Success: true, Reason: ReasonConverged, ReasonString: "parameter tolerance reached", Iterations: it, FuncEvals: funcEvals, JacEvals: jacEvals, FinalResidualNorm: norm2(r)}
		}

		xNew := addVec(x, delta)
		rNew := make([]float64, numResiduals)
		if ok := eval(xNew, rNew, nil); !ok {
			return x, Result{Reason: ReasonCancelled, ReasonString: ReasonCancelled.String(), Iterations: it, FuncEvals: funcEvals, JacEvals: jacEvals, FinalResidualNorm: norm2(r)}
		}
		funcEvals++
		newCost := sumSquares(rNew)

		if newCost < cost {
			reduction := cost - newCost
			x, r, cost = xNew, rNew, newCost
			lambda = damping.shrink(lambda)
			if reduction < opts.FunctionTolerance*math.Max(cost, 1) {
				return x, Result{Success: true, Reason: ReasonConverged, ReasonString: "function tolerance reached", Iterations: it + 1, FuncEvals: funcEvals, JacEvals: jacEvals, FinalResidualNorm: norm2(r)}
			}
		} else {
			lambda = damping.grow(lambda)
			if lambda > 1e15 {
				return x, Result{Success: false, Reason: ReasonNoReduction, ReasonString: ReasonNoReduction.String(), Iterations: it, FuncEvals: funcEvals, JacEvals: jacEvals, FinalResidualNorm: norm2(r)}
			}
		}
	}
	return x, Result{Success: true, Reason: ReasonMaxIterations, ReasonString: ReasonMaxIterations.String(), Iterations: maxIter, FuncEvals: funcEvals, JacEvals: jacEvals, FinalResidualNorm: norm2(r)}
}
