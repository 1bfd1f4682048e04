/*
DESCRIPTION
  loss.go implements the robust-loss post-pass applied to residuals
  before they reach the LM kernel.

AUTHORS
  The mmsolver Authors.
*/

package residual

import "math"

// machineEpsilon is the smallest representable increment above 1.0 for
// a float64, used to clamp the loss post-pass denominator.
const machineEpsilon = 2.220446049250313e-16

// RobustLossType selects the rho function applied to a squared,
// scaled residual.
type RobustLossType uint8

// Recognised robust loss types.
const (
	LossTrivial RobustLossType = iota
	LossSoftL1
	LossCauchy
)

// rho returns (rho0, rho1, rho2) for z, before the loss_scale
// correction RhoTerms applies afterwards.
func rho(lt RobustLossType, z float64) (rho0, rho1, rho2 float64) {
	switch lt {
	case LossSoftL1:
		t := math.Sqrt(1 + z)
		return 2 * (t - 1), 1 / t, -0.5 / (t * t * t)
	case LossCauchy:
		t := 1 + z
		return math.Log(t), 1 / t, -1 / (t * t)
	default: // LossTrivial
		return z, 1, 0
	}
}

// RhoTerms returns the loss_scale-corrected (rho0, rho1, rho2) for
// residual f: rho0 scales by loss_scale^2, rho2 scales by
// 1/loss_scale^2. rho0 is the cost-function value a kernel summing
// total cost would use; rho1/rho2 drive Apply's residual reweighting.
func RhoTerms(lt RobustLossType, lossScale, f float64) (rho0, rho1, rho2 float64) {
	if lossScale <= 0 {
		lossScale = 1
	}
	z := (f / lossScale) * (f / lossScale)
	rho0, rho1, rho2 = rho(lt, z)
	return rho0 * lossScale * lossScale, rho1, rho2 / (lossScale * lossScale)
}

// Apply transforms residual f into f * rho1/sqrt(rho1 + 2*z*rho2).
// A LossTrivial type is the identity.
func Apply(lt RobustLossType, lossScale float64, f float64) float64 {
	if lt == LossTrivial {
		return f
	}
	if lossScale <= 0 {
		lossScale = 1
	}
	z := (f / lossScale) * (f / lossScale)
	_, rho1, rho2 := RhoTerms(lt, lossScale, f)
	inner := rho1 + 2*z*rho2
	if inner < machineEpsilon {
		inner = machineEpsilon
	}
	return f * rho1 / math.Sqrt(inner)
}
