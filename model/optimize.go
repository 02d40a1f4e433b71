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

package model

import (
	"encoding/json"
	"fmt"
)

// OptimizationObjective selects the cost function the driver minimizes.
type OptimizationObjective int

const (
	ObjMinSWR OptimizationObjective = iota
	ObjMinSWRBand
	ObjMaxGain
	ObjMaxFB
	ObjCombined
)

var objectiveNames = map[OptimizationObjective]string{
	ObjMinSWR:     "MIN_SWR",
	ObjMinSWRBand: "MIN_SWR_BAND",
	ObjMaxGain:    "MAX_GAIN",
	ObjMaxFB:      "MAX_FB",
	ObjCombined:   "COMBINED",
}

func (o OptimizationObjective) String() string {
	if s, ok := objectiveNames[o]; ok {
		return s
	}
	return "MIN_SWR"
}

// MarshalJSON renders the objective as its wire name.
func (o OptimizationObjective) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON parses the objective from its wire name.
func (o *OptimizationObjective) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for k, v := range objectiveNames {
		if v == s {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("unknown optimization objective %q", s)
}

// VariableField names a tunable wire field.
type VariableField string

const (
	FieldX1     VariableField = "x1"
	FieldY1     VariableField = "y1"
	FieldZ1     VariableField = "z1"
	FieldX2     VariableField = "x2"
	FieldY2     VariableField = "y2"
	FieldZ2     VariableField = "z2"
	FieldRadius VariableField = "radius"
)

// OptimizationVariable names one dimension of the search space, with
// an optional value-level symmetry link to another wire/field.
type OptimizationVariable struct {
	WireTag  int           `json:"wire_tag"`
	Field    VariableField `json:"field"`
	Min      float64       `json:"min"`
	Max      float64       `json:"max"`
	Initial  *float64      `json:"initial,omitempty"`

	LinkedWireTag *int           `json:"linked_wire_tag,omitempty"`
	LinkedField   *VariableField `json:"linked_field,omitempty"`
	LinkFactor    float64        `json:"link_factor,omitempty"`
}

// OptimizationWeights are used by the COMBINED objective; a zero weight
// excludes that term from the cost.
type OptimizationWeights struct {
	SWR  float64 `json:"w_swr,omitempty"`
	Gain float64 `json:"w_gain,omitempty"`
	FB   float64 `json:"w_fb,omitempty"`
}

// OptimizationRequest is the input to the Nelder-Mead driver.
type OptimizationRequest struct {
	Base              SimulationRequest      `json:"base"`
	Variables         []OptimizationVariable `json:"variables"`
	Objective         OptimizationObjective  `json:"objective"`
	TargetFrequencyMHz *float64              `json:"target_frequency_mhz,omitempty"`
	Weights           OptimizationWeights    `json:"weights,omitempty"`
	MaxIterations     int                    `json:"max_iterations"`
}

// Validate checks the variable-count bound and per-variable ranges.
func (r *OptimizationRequest) Validate() error {
	if len(r.Variables) < 1 || len(r.Variables) > 10 {
		return fmt.Errorf("optimization: variable count %d out of range [1,10]", len(r.Variables))
	}
	if r.MaxIterations < 1 || r.MaxIterations > 500 {
		return fmt.Errorf("optimization: max_iterations %d out of range [1,500]", r.MaxIterations)
	}
	for _, v := range r.Variables {
		if v.Max < v.Min {
			return fmt.Errorf("optimization: variable on wire %d field %s has max<min", v.WireTag, v.Field)
		}
		if _, ok := r.Base.wireByTag(v.WireTag); !ok {
			return fmt.Errorf("optimization: variable references unknown wire tag %d", v.WireTag)
		}
	}
	return r.Base.Validate()
}

// OptimizationStep is one row of the optimization history.
type OptimizationStep struct {
	Iteration int       `json:"iteration"`
	Cost      float64   `json:"cost"`
	Values    []float64 `json:"values"`
}

// OptimizationStatus is the terminal status of a search.
type OptimizationStatus string

const (
	StatusSuccess      OptimizationStatus = "success"
	StatusMaxIterations OptimizationStatus = "max_iterations"
	StatusError        OptimizationStatus = "error"
	StatusCancelled    OptimizationStatus = "cancelled"
)

// OptimizationProgress is one event emitted on the progress mailbox.
type OptimizationProgress struct {
	Iteration int     `json:"iteration"`
	Cost      float64 `json:"cost"`
	BestCost  float64 `json:"best_cost"`
}

// OptimizationResult is the terminal outcome of a search.
type OptimizationResult struct {
	Status         OptimizationStatus `json:"status"`
	IterationsUsed int                `json:"iterations_used"`
	BestCost       float64            `json:"best_cost"`
	FinalValues    []float64          `json:"final_values"`
	OptimizedWires []Wire             `json:"optimized_wires"`
	History        []OptimizationStep `json:"history"`
	Error          string             `json:"error,omitempty"`
}
