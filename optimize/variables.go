//----------------------------------------------------------------------
// This file is part of antsim.
// Copyright (C) 2024-present Bernd Fix >Y<,  DO3YQ
//
// antsim is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// antsim is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

// Package optimize drives a Nelder-Mead search over antenna geometry
// parameters, evaluating each trial with a full deck-build/sandbox/
// parse cycle, and streams progress over a bounded channel with
// cooperative cancellation.
package optimize

import (
	"math"

	"github.com/bfix/antsim/model"
)

// clamp restricts v to [lo,hi].
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// setField mutates the named field of w to v.
func setField(w *model.Wire, field model.VariableField, v float64) {
	switch field {
	case model.FieldX1:
		w.Start[0] = v
	case model.FieldY1:
		w.Start[1] = v
	case model.FieldZ1:
		w.Start[2] = v
	case model.FieldX2:
		w.End[0] = v
	case model.FieldY2:
		w.End[1] = v
	case model.FieldZ2:
		w.End[2] = v
	case model.FieldRadius:
		w.Radius = v
	}
}

// applyVariables produces a fresh wire list from base with x applied
// per variable (clamped to its [min,max]), plus any declared
// value-level symmetry links. base is never mutated.
func applyVariables(base []model.Wire, vars []model.OptimizationVariable, x []float64) []model.Wire {
	wires := make([]model.Wire, len(base))
	copy(wires, base)

	index := make(map[int]int, len(wires))
	for i, w := range wires {
		index[w.Tag] = i
	}

	for i, v := range vars {
		val := clamp(x[i], v.Min, v.Max)
		if idx, ok := index[v.WireTag]; ok {
			setField(&wires[idx], v.Field, val)
		}
		if v.LinkedWireTag != nil && v.LinkedField != nil {
			if idx, ok := index[*v.LinkedWireTag]; ok {
				setField(&wires[idx], *v.LinkedField, v.LinkFactor*val)
			}
		}
	}
	return wires
}

// initialPoint returns the starting vector for the search: each
// variable's Initial if given, else the midpoint of [min,max].
func initialPoint(vars []model.OptimizationVariable) []float64 {
	x := make([]float64, len(vars))
	for i, v := range vars {
		if v.Initial != nil {
			x[i] = *v.Initial
		} else {
			x[i] = (v.Min + v.Max) / 2
		}
	}
	return x
}
