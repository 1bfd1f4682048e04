/*
DESCRIPTION
  frame.go defines the integer frame numbering and the ordered,
  enable-masked list of frames that every other package in mmsolver
  uses as its time axis.

AUTHORS
  The mmsolver Authors.

LICENSE
  Copyright (c) 2025 The mmsolver Authors. All rights reserved.
  Use of this source code is governed by a BSD-style license that can
  be found in the LICENSE file.
*/

// Package frame provides the frame numbering and frame-list types
// shared across the solver: a Frame is an integer frame number, and a
// FrameList is the ordered, per-frame enable mask used everywhere
// downstream to decide whether a frame participates in a solve.
package frame

import "sort"

// Number is an integer frame number.
type Number int

// List is an ordered sequence of unique frame numbers with a
// per-frame enabled flag. The enabled mask is the authoritative
// filter used by every other package; nothing downstream re-derives
// it.
type List struct {
	numbers []Number
	enabled []bool
	index   map[Number]int
}

// NewList builds a List from frame numbers, all enabled by default.
// Duplicate numbers are rejected.
func NewList(numbers []Number) (*List, error) {
	l := &List{
		numbers: make([]Number, len(numbers)),
		enabled: make([]bool, len(numbers)),
		index:   make(map[Number]int, len(numbers)),
	}
	copy(l.numbers, numbers)
	sort.Slice(l.numbers, func(i, j int) bool { return l.numbers[i] < l.numbers[j] })
	for i, n := range l.numbers {
		if _, dup := l.index[n]; dup {
			return nil, &DuplicateError{Frame: n}
		}
		l.index[n] = i
		l.enabled[i] = true
	}
	return l, nil
}

// DuplicateError reports a repeated frame number passed to NewList.
type DuplicateError struct{ Frame Number }

func (e *DuplicateError) Error() string {
	return "frame: duplicate frame number in list"
}

// Len returns the number of frames in the list, enabled or not.
func (l *List) Len() int { return len(l.numbers) }

// At returns the frame number at position i.
func (l *List) At(i int) Number { return l.numbers[i] }

// Enabled reports whether frame n is enabled. Unknown frames are
// reported as disabled.
func (l *List) Enabled(n Number) bool {
	i, ok := l.index[n]
	if !ok {
		return false
	}
	return l.enabled[i]
}

// EnabledAt reports whether the frame at position i is enabled.
func (l *List) EnabledAt(i int) bool { return l.enabled[i] }

// SetEnabled changes the enable flag for frame n. It is a no-op for
// frames not present in the list.
func (l *List) SetEnabled(n Number, v bool) {
	if i, ok := l.index[n]; ok {
		l.enabled[i] = v
	}
}

// Index returns the position of frame n in the list, and whether it
// was found.
func (l *List) Index(n Number) (int, bool) {
	i, ok := l.index[n]
	return i, ok
}

// EnabledFrames returns the enabled frame numbers, in ascending
// order.
func (l *List) EnabledFrames() []Number {
	out := make([]Number, 0, len(l.numbers))
	for i, n := range l.numbers {
		if l.enabled[i] {
			out = append(out, n)
		}
	}
	return out
}

// NumEnabled returns the count of enabled frames.
func (l *List) NumEnabled() int {
	n := 0
	for _, e := range l.enabled {
		if e {
			n++
		}
	}
	return n
}

// Range reports the minimum and maximum frame numbers in the list.
// ok is false for an empty list.
func (l *List) Range() (min, max Number, ok bool) {
	if len(l.numbers) == 0 {
		return 0, 0, false
	}
	return l.numbers[0], l.numbers[len(l.numbers)-1], true
}

// Clone returns a deep copy of the list.
func (l *List) Clone() *List {
	c := &List{
		numbers: make([]Number, len(l.numbers)),
		enabled: make([]bool, len(l.enabled)),
		index:   make(map[Number]int, len(l.index)),
	}
	copy(c.numbers, l.numbers)
	copy(c.enabled, l.enabled)
	for k, v := range l.index {
		c.index[k] = v
	}
	return c
}

// Single returns a single-frame List containing only n, enabled.
// Used by the per-frame solve strategy to build an isolated
// sub-problem for one frame.
func Single(n Number) *List {
	l, _ := NewList([]Number{n})
	return l
}
