//go:build !legacy

/*
DESCRIPTION
  lmdifbc_stub.go provides NewLMDifBC's default-build fallback: the
  historical boxed finite-difference kernel (lmdifbc.go) is only
  compiled behind the "legacy" build tag, so a default build falls
  back to lmdif, the same policy applied to any other unrecognised
  solver selection.

AUTHORS
  The mmsolver Authors.
*/

package kernel

import "github.com/mmsolver/mmsolver/attr"

// NewLMDifBC without the "legacy" build tag returns the default
// finite-difference kernel instead of the historical boxed variant.
func NewLMDifBC(packer *attr.Packer, delta float64) Kernel {
	return NewLMDif()
}
