/*
DESCRIPTION
  attr.go defines Attribute, the typed, bounded, animatable scalar
  channel that the solver treats as a candidate unknown, and AttrId,
  the opaque handle other packages use to refer to one.

AUTHORS
  The mmsolver Authors.

LICENSE
  Copyright (c) 2025 The mmsolver Authors. All rights reserved.
  Use of this source code is governed by a BSD-style license that can
  be found in the LICENSE file.
*/

// Package attr provides the typed store of static and per-frame
// animated scalar attribute values (AttrBlock), the Attribute
// metadata that describes each channel, and the parameter packer that
// converts between AttrBlock values and the solver's unconstrained
// parameter vector.
package attr

import (
	"math"

	"github.com/pkg/errors"

	"github.com/mmsolver/mmsolver/frame"
)

// Id is an opaque, stable handle to an Attribute. It indexes directly
// into a Block's internal tables, so lookups are O(1) rather than the
// string-keyed lookups a host DAG would use.
type Id uint32

// NoId is the reserved sentinel meaning "no attribute wired here; use
// the static default value instead". Real attribute ids start at 1.
const NoId Id = 0

// ObjectType tags the kind of host node an attribute belongs to.
type ObjectType uint8

// Object types an Attribute may belong to.
const (
	ObjectCamera ObjectType = iota
	ObjectBundle
	ObjectLens
	ObjectTransform
	ObjectOther
)

// Role is the closed enumeration of semantic roles an Attribute can
// play. It is recorded on the Attribute; packing (attr/pack.go) and
// the scene graph wire attributes by Id and do not read Role.
type Role uint8

// Recognised attribute roles.
const (
	RoleTranslateX Role = iota
	RoleTranslateY
	RoleTranslateZ
	RoleRotateX
	RoleRotateY
	RoleRotateZ
	RoleScaleX
	RoleScaleY
	RoleScaleZ
	RoleFocalLength
	RoleLensCoeff0
	RoleLensCoeff1
	RoleLensCoeff2
	RoleLensCoeff3
	RoleLensCoeff4
	RoleOther
)

// Attribute is a named scalar channel on a host node.
type Attribute struct {
	Id         Id
	Name       string
	Object     ObjectType
	Role       Role
	Animated   bool
	Min        float64 // xmin; may be math.Inf(-1).
	Max        float64 // xmax; may be math.Inf(1).
	Offset     float64 // affine pre-conditioning offset.
	Scale      float64 // affine pre-conditioning scale; must be non-zero.
	start, end frame.Number
}

// New constructs an Attribute, validating the bounds invariant
// xmin <= initial <= xmax.
func New(id Id, name string, object ObjectType, role Role, animated bool, min, max, initial float64) (*Attribute, error) {
	if math.IsNaN(initial) || math.IsInf(initial, 0) {
		return nil, errors.Errorf("attr %s: initial value %v is not finite", name, initial)
	}
	if min > max {
		return nil, errors.Errorf("attr %s: xmin %v > xmax %v", name, min, max)
	}
	if initial < min || initial > max {
		return nil, errors.Errorf("attr %s: initial value %v outside bounds [%v, %v]", name, initial, min, max)
	}
	return &Attribute{
		Id:       id,
		Name:     name,
		Object:   object,
		Role:     role,
		Animated: animated,
		Min:      min,
		Max:      max,
		Offset:   0,
		Scale:    1,
	}, nil
}

// Unbounded reports whether the attribute has no finite bound on
// either side.
func (a *Attribute) Unbounded() bool {
	return math.IsInf(a.Min, -1) && math.IsInf(a.Max, 1)
}

// HasLower reports whether the attribute has a finite lower bound
// only (no finite upper bound).
func (a *Attribute) HasLower() bool {
	return !math.IsInf(a.Min, -1) && math.IsInf(a.Max, 1)
}

// HasUpper reports whether the attribute has a finite upper bound
// only (no finite lower bound).
func (a *Attribute) HasUpper() bool {
	return math.IsInf(a.Min, -1) && !math.IsInf(a.Max, 1)
}

// BothBounded reports whether both bounds are finite.
func (a *Attribute) BothBounded() bool {
	return !math.IsInf(a.Min, -1) && !math.IsInf(a.Max, 1)
}

// SetRange fixes the contiguous frame range [start, end] an animated
// attribute stores values for. Every integer frame in the range has a
// stored value regardless of whether it is solved.
func (a *Attribute) SetRange(start, end frame.Number) error {
	if !a.Animated {
		return errors.Errorf("attr %s: SetRange called on a static attribute", a.Name)
	}
	if end < start {
		return errors.Errorf("attr %s: end frame %d before start frame %d", a.Name, end, start)
	}
	a.start, a.end = start, end
	return nil
}

// Range returns the stored frame range for an animated attribute.
func (a *Attribute) Range() (start, end frame.Number) { return a.start, a.end }

// InRange reports whether f lies in the attribute's stored range.
func (a *Attribute) InRange(f frame.Number) bool {
	return a.Animated && f >= a.start && f <= a.end
}
