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

// Package model defines the request/result entities exchanged between
// the HTTP boundary and the simulation core: wires, excitations, loads,
// transmission lines, ground configuration, frequency/pattern sweeps,
// and the structured results the solver output is parsed into.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/bfix/antsim/lib"
)

// Wire is a single straight NEC-2 segment-chain between two endpoints.
type Wire struct {
	Tag      int        `json:"tag"`
	Segments int        `json:"segments"`
	X1, Y1, Z1 float64  `json:"-"`
	X2, Y2, Z2 float64  `json:"-"`
	Start    lib.Vec3    `json:"-"`
	End      lib.Vec3    `json:"-"`
	Radius   float64     `json:"radius"`
}

// wireJSON mirrors the wire-coordinate wire format used on the API
// boundary: endpoints are transmitted as flat x1/y1/z1/x2/y2/z2 fields.
type wireJSON struct {
	Tag      int     `json:"tag"`
	Segments int     `json:"segments"`
	X1       float64 `json:"x1"`
	Y1       float64 `json:"y1"`
	Z1       float64 `json:"z1"`
	X2       float64 `json:"x2"`
	Y2       float64 `json:"y2"`
	Z2       float64 `json:"z2"`
	Radius   float64 `json:"radius"`
}

// MarshalJSON flattens the wire's endpoints.
func (w Wire) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireJSON{
		Tag: w.Tag, Segments: w.Segments,
		X1: w.Start[0], Y1: w.Start[1], Z1: w.Start[2],
		X2: w.End[0], Y2: w.End[1], Z2: w.End[2],
		Radius: w.Radius,
	})
}

// UnmarshalJSON populates the wire from the flat wire format.
func (w *Wire) UnmarshalJSON(data []byte) error {
	var raw wireJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	w.Tag = raw.Tag
	w.Segments = raw.Segments
	w.Start = lib.NewVec3(raw.X1, raw.Y1, raw.Z1)
	w.End = lib.NewVec3(raw.X2, raw.Y2, raw.Z2)
	w.Radius = raw.Radius
	return nil
}

// Validate checks the invariants spec'd for a single wire: tag range,
// segment count, radius range, non-coincident endpoints, finite
// coordinates.
func (w Wire) Validate() error {
	if w.Tag < 1 || w.Tag > 9999 {
		return fmt.Errorf("wire tag %d out of range [1,9999]", w.Tag)
	}
	if w.Segments < 1 || w.Segments > 200 {
		return fmt.Errorf("wire %d: segments %d out of range [1,200]", w.Tag, w.Segments)
	}
	if !lib.InRange(w.Radius, 0.0001, 0.1) {
		return fmt.Errorf("wire %d: radius %g out of range [0.0001,0.1]", w.Tag, w.Radius)
	}
	for _, c := range [...]float64{w.Start[0], w.Start[1], w.Start[2], w.End[0], w.End[1], w.End[2]} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("wire %d: non-finite coordinate", w.Tag)
		}
	}
	if w.Start.Equals(w.End) {
		return fmt.Errorf("wire %d: coincident endpoints", w.Tag)
	}
	return nil
}

// Excitation drives one wire segment with a complex voltage source.
type Excitation struct {
	WireTag int     `json:"wire_tag"`
	Segment int     `json:"segment"`
	VReal   float64 `json:"v_real"`
	VImag   float64 `json:"v_imag"`
}

// NewExcitation returns an excitation with the spec default of 1+0j.
func NewExcitation(wireTag, segment int) Excitation {
	return Excitation{WireTag: wireTag, Segment: segment, VReal: 1, VImag: 0}
}

// LoadType enumerates the NEC-2 LD card's load types.
type LoadType int

const (
	LoadSeriesRLC LoadType = iota
	LoadParallelRLC
	LoadFixedImpedance
	LoadWireConductivity
)

// necCode returns the LD card's numeric type code.
func (t LoadType) necCode() int {
	switch t {
	case LoadSeriesRLC:
		return 0
	case LoadParallelRLC:
		return 1
	case LoadFixedImpedance:
		return 4
	case LoadWireConductivity:
		return 5
	default:
		return 0
	}
}

// NECCode exposes necCode for the deck builder.
func (t LoadType) NECCode() int { return t.necCode() }

var loadTypeNames = map[LoadType]string{
	LoadSeriesRLC:         "series-rlc",
	LoadParallelRLC:       "parallel-rlc",
	LoadFixedImpedance:    "fixed-impedance",
	LoadWireConductivity:  "wire-conductivity",
}

func (t LoadType) String() string {
	if s, ok := loadTypeNames[t]; ok {
		return s
	}
	return "series-rlc"
}

// MarshalJSON renders the load type as its wire name.
func (t LoadType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON parses the load type from its wire name.
func (t *LoadType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for k, v := range loadTypeNames {
		if v == s {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("unknown load_type %q", s)
}

// LumpedLoad attaches a lumped impedance to a wire segment range. The
// meaning of P1/P2/P3 depends on Type (e.g. series-RLC: R,L,C).
type LumpedLoad struct {
	Type     LoadType `json:"load_type"`
	WireTag  int      `json:"wire_tag"`
	SegStart int      `json:"seg_start"`
	SegEnd   int      `json:"seg_end"`
	P1       float64  `json:"p1"`
	P2       float64  `json:"p2"`
	P3       float64  `json:"p3"`
}

// TransmissionLine connects two segment endpoints via a lossless line.
type TransmissionLine struct {
	Tag1   int     `json:"tag1"`
	Seg1   int     `json:"seg1"`
	Tag2   int     `json:"tag2"`
	Seg2   int     `json:"seg2"`
	Z0     float64 `json:"z0"`
	Length float64 `json:"length,omitempty"`
	Y1R    float64 `json:"y1r,omitempty"`
	Y1I    float64 `json:"y1i,omitempty"`
	Y2R    float64 `json:"y2r,omitempty"`
	Y2I    float64 `json:"y2i,omitempty"`
}

// Validate checks the TL's impedance range.
func (t TransmissionLine) Validate() error {
	if !lib.InRange(t.Z0, 1, 1000) {
		return fmt.Errorf("transmission line %d/%d-%d/%d: z0 %g out of range [1,1000]", t.Tag1, t.Seg1, t.Tag2, t.Seg2, t.Z0)
	}
	return nil
}

// GroundType enumerates ground-plane configurations.
type GroundType int

const (
	GroundFreeSpace GroundType = iota
	GroundPerfect
	GroundCustom
	GroundAverage
	GroundSaltWater
	GroundFreshWater
	GroundPastoral
	GroundRocky
	GroundCity
	GroundDrySandy
)

// groundPreset holds (dielectric, conductivity) for a named preset,
// carried over from the original implementation's GROUND_PARAMS table.
type groundPreset struct {
	EpsR  float64
	Sigma float64
}

var groundPresets = map[GroundType]groundPreset{
	GroundSaltWater:  {80.0, 5.0},
	GroundFreshWater: {80.0, 0.001},
	GroundPastoral:   {14.0, 0.01},
	GroundAverage:    {13.0, 0.005},
	GroundRocky:      {12.0, 0.002},
	GroundCity:       {5.0, 0.001},
	GroundDrySandy:   {3.0, 0.0001},
}

var groundTypeNames = map[GroundType]string{
	GroundFreeSpace:  "free-space",
	GroundPerfect:    "perfect",
	GroundCustom:     "custom",
	GroundAverage:    "average",
	GroundSaltWater:  "salt_water",
	GroundFreshWater: "fresh_water",
	GroundPastoral:   "pastoral",
	GroundRocky:      "rocky",
	GroundCity:       "city",
	GroundDrySandy:   "dry_sandy",
}

func (g GroundType) String() string {
	if s, ok := groundTypeNames[g]; ok {
		return s
	}
	return "free-space"
}

// MarshalJSON renders the ground type as its wire name.
func (g GroundType) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// UnmarshalJSON parses the ground type from its wire name.
func (g *GroundType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for k, v := range groundTypeNames {
		if v == s {
			*g = k
			return nil
		}
	}
	return fmt.Errorf("unknown ground type %q", s)
}

// GroundConfig describes the ground plane the antenna is modeled over.
type GroundConfig struct {
	Type  GroundType `json:"type"`
	EpsR  float64    `json:"eps_r,omitempty"`
	Sigma float64    `json:"sigma,omitempty"`
}

// NECParams returns the (epsR, sigma) pair the GN card needs. For
// presets it looks up the fixed table; for GroundCustom it returns the
// caller-supplied values.
func (g GroundConfig) NECParams() (epsR, sigma float64) {
	if g.Type == GroundCustom {
		return g.EpsR, g.Sigma
	}
	if p, ok := groundPresets[g.Type]; ok {
		return p.EpsR, p.Sigma
	}
	return 0, 0
}

// FrequencyConfig is a linear frequency sweep in MHz.
type FrequencyConfig struct {
	StartMHz float64 `json:"start_mhz"`
	StopMHz  float64 `json:"stop_mhz"`
	Steps    int     `json:"steps"`
}

// StepMHz returns the per-step increment, 0 when Steps==1.
func (f FrequencyConfig) StepMHz() float64 {
	if f.Steps <= 1 {
		return 0
	}
	return (f.StopMHz - f.StartMHz) / float64(f.Steps-1)
}

// Validate checks stop >= start and a positive step count.
func (f FrequencyConfig) Validate() error {
	if f.Steps < 1 {
		return errors.New("frequency: steps must be >= 1")
	}
	if f.StopMHz < f.StartMHz {
		return errors.New("frequency: stop must be >= start")
	}
	return nil
}

// PatternConfig is the far-field sampling grid over theta and phi.
type PatternConfig struct {
	ThetaStart float64 `json:"theta_start"`
	ThetaStop  float64 `json:"theta_stop"`
	ThetaStep  float64 `json:"theta_step"`
	PhiStart   float64 `json:"phi_start"`
	PhiStop    float64 `json:"phi_stop"`
	PhiStep    float64 `json:"phi_step"`
}

// DefaultPatternConfig mirrors the optimizer's fixed sampling grid
// (n_theta=37, n_phi=73) used for every trial evaluation.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		ThetaStart: -90, ThetaStop: 90, ThetaStep: 5,
		PhiStart: 0, PhiStop: 360, PhiStep: 5,
	}
}

// NTheta returns the number of theta samples.
func (p PatternConfig) NTheta() int {
	if p.ThetaStep <= 0 {
		return 1
	}
	return int(math.Round((p.ThetaStop-p.ThetaStart)/p.ThetaStep)) + 1
}

// NPhi returns the number of phi samples.
func (p PatternConfig) NPhi() int {
	if p.PhiStep <= 0 {
		return 1
	}
	return int(math.Round((p.PhiStop-p.PhiStart)/p.PhiStep)) + 1
}

// WireArc models an NEC-2 GA card: an arc of segments in the Y-Z plane.
type WireArc struct {
	Tag        int     `json:"tag"`
	Segments   int     `json:"segments"`
	ArcRadius  float64 `json:"arc_radius"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
	WireRadius float64 `json:"wire_radius"`
}

// GeometryTransform models an NEC-2 GM card: rotation/translation
// applied to generate new structures from existing ones.
type GeometryTransform struct {
	TagIncrement   int     `json:"tag_increment"`
	NewStructures  int     `json:"new_structures"`
	RotX, RotY, RotZ float64 `json:"-"`
	TransX, TransY, TransZ float64 `json:"-"`
	StartTag       int     `json:"start_tag"`
}

// CylindricalSymmetry models an NEC-2 GR card.
type CylindricalSymmetry struct {
	TagIncrement int `json:"tag_increment"`
	NCopies      int `json:"n_copies"`
}

// NearFieldConfig is accepted and kept on the request (so it takes part
// in the cache key) but never evaluated and not returned in any
// result: no near-field solver call is made (see SPEC_FULL.md open
// question).
type NearFieldConfig struct {
	Kind   string    `json:"kind"`
	Near   []float64 `json:"near,omitempty"`
}
