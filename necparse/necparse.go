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

// Package necparse scans raw NEC-2 solver text output into structured
// per-frequency results, deriving SWR, gain grids, front-to-back
// ratio, E/H beamwidth and efficiency along the way. A malformed block
// is a non-event: it is dropped, and the caller sees whatever valid
// blocks remain.
package necparse

import (
	"bufio"
	"errors"
	"math"
	"math/cmplx"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/bfix/antsim/lib"
	"github.com/bfix/antsim/model"
)

// ErrNoResults is returned by Parse when no complete frequency block
// was found in the solver output.
var ErrNoResults = errors.New("necparse: no results")

// PatternGeometry is the theta/phi sampling grid the deck was built
// with; the parser needs it to place pattern samples into a grid.
type PatternGeometry struct {
	ThetaStart float64
	ThetaStep  float64
	NTheta     int
	PhiStart   float64
	PhiStep    float64
	NPhi       int
}

type state int

const (
	stateIdle state = iota
	stateInputParams
	stateInPattern
	stateInCurrents
)

var (
	freqRe = regexp.MustCompile(`(?i)FREQUENCY\s*[:=]\s*([-+0-9.Ee]+)\s*MHZ`)
	radPowerRe = regexp.MustCompile(`(?i)RADIATED POWER\s*=\s*([-+0-9.Ee]+)\s*WATTS`)
	inPowerRe  = regexp.MustCompile(`(?i)INPUT POWER\s*=\s*([-+0-9.Ee]+)\s*WATTS`)
)

type patternSample struct {
	theta, phi, totalDB float64
}

// block accumulates everything parsed for one FREQUENCY section before
// it is finalized into a model.FrequencyResult.
type block struct {
	freqMHz       float64
	hasImpedance  bool
	zReal, zImag  float64
	pattern       []patternSample
	currents      []model.SegmentCurrent
	radiatedW     float64
	hasRadiated   bool
	inputW        float64
	hasInput      bool
	skipLines     int
}

// Parse scans output for FREQUENCY-delimited blocks and returns the
// FrequencyResult for each one that parsed a feedpoint impedance.
func Parse(output string, pat PatternGeometry, wantCurrents bool) ([]model.FrequencyResult, error) {
	sc := bufio.NewScanner(strings.NewReader(output))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var results []model.FrequencyResult
	var cur *block
	st := stateIdle

	flush := func() {
		if cur == nil {
			return
		}
		if fr, ok := finalize(cur, pat); ok {
			results = append(results, fr)
		}
		cur = nil
	}

	for sc.Scan() {
		line := sc.Text()

		if cur != nil && cur.skipLines > 0 {
			cur.skipLines--
			continue
		}

		if m := freqRe.FindStringSubmatch(line); m != nil {
			flush()
			f, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			cur = &block{freqMHz: f}
			st = stateIdle
			continue
		}
		if cur == nil {
			// No FREQUENCY header seen yet: nothing to attach this
			// line to.
			continue
		}

		if strings.Contains(line, "ANTENNA INPUT PARAMETERS") {
			st = stateInputParams
			cur.skipLines = 2
			continue
		}
		if strings.Contains(line, "RADIATION PATTERNS") {
			st = stateInPattern
			cur.skipLines = 3
			continue
		}
		if wantCurrents && strings.Contains(line, "CURRENTS AND LOCATION") {
			st = stateInCurrents
			cur.skipLines = 3
			continue
		}

		if m := radPowerRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				cur.radiatedW = v
				cur.hasRadiated = true
			}
		}
		if m := inPowerRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				cur.inputW = v
				cur.hasInput = true
			}
		}

		switch st {
		case stateInputParams:
			if !cur.hasImpedance {
				if zr, zi, ok := parseImpedanceRow(line); ok {
					cur.zReal, cur.zImag = zr, zi
					cur.hasImpedance = true
				}
			}
			st = stateIdle
		case stateInPattern:
			if strings.TrimSpace(line) == "" {
				st = stateIdle
				continue
			}
			if s, ok := parsePatternRow(line); ok {
				cur.pattern = append(cur.pattern, s)
			}
		case stateInCurrents:
			if strings.TrimSpace(line) == "" {
				st = stateIdle
				continue
			}
			if c, ok := parseCurrentRow(line); ok {
				cur.currents = append(cur.currents, c)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()

	if len(results) == 0 {
		return nil, ErrNoResults
	}
	return results, nil
}

func fields(line string) []float64 {
	toks := strings.Fields(line)
	out := make([]float64, 0, len(toks))
	for _, t := range toks {
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil
		}
		out = append(out, v)
	}
	return out
}

// parseImpedanceRow expects 11 scientific-notation fields; impedance
// is columns 7,8 (1-indexed).
func parseImpedanceRow(line string) (real, imag float64, ok bool) {
	f := fields(line)
	if len(f) < 8 {
		return 0, 0, false
	}
	return f[6], f[7], true
}

// parsePatternRow expects (theta, phi, v_db, h_db, total_db, axial, tilt)
// followed by a non-numeric polarization-sense token.
func parsePatternRow(line string) (patternSample, bool) {
	toks := strings.Fields(line)
	if len(toks) < 7 {
		return patternSample{}, false
	}
	vals := make([]float64, 7)
	for i := 0; i < 7; i++ {
		v, err := strconv.ParseFloat(toks[i], 64)
		if err != nil {
			return patternSample{}, false
		}
		vals[i] = v
	}
	return patternSample{theta: vals[0], phi: vals[1], totalDB: vals[4]}, true
}

// parseCurrentRow expects (seg, tag, x, y, z, length, re, im, mag, phase).
func parseCurrentRow(line string) (model.SegmentCurrent, bool) {
	f := fields(line)
	if len(f) < 10 {
		return model.SegmentCurrent{}, false
	}
	return model.SegmentCurrent{
		Segment:   int(f[0]),
		Tag:       int(f[1]),
		X:         f[2],
		Y:         f[3],
		Z:         f[4],
		Real:      f[6],
		Imag:      f[7],
		Magnitude: f[8],
		PhaseDeg:  f[9],
	}, true
}

// finalize builds a model.FrequencyResult from a completed block. A
// block with no parsed impedance is incomplete and is dropped.
func finalize(b *block, pat PatternGeometry) (model.FrequencyResult, bool) {
	if !b.hasImpedance {
		return model.FrequencyResult{}, false
	}
	fr := model.FrequencyResult{
		FrequencyMHz: b.freqMHz,
		Impedance:    model.Impedance{Real: b.zReal, Imag: b.zImag},
		SWR50:        computeSWR(b.zReal, b.zImag, 50),
		Currents:     b.currents,
	}

	if len(b.pattern) > 0 && pat.NTheta > 0 && pat.NPhi > 0 {
		grid := model.NewPatternData(pat.NTheta, pat.NPhi, pat.ThetaStart, pat.ThetaStep, pat.PhiStart, pat.PhiStep)
		maxDB := math.Inf(-1)
		maxTi, maxPi := -1, -1
		for _, s := range b.pattern {
			ti := int(math.Round((s.theta - pat.ThetaStart) / stepOrOne(pat.ThetaStep)))
			pi := int(math.Round((s.phi - pat.PhiStart) / stepOrOne(pat.PhiStep)))
			if ti < 0 || ti >= pat.NTheta || pi < 0 || pi >= pat.NPhi {
				continue
			}
			grid.GainDBi[ti][pi] = s.totalDB
			if s.totalDB > maxDB {
				maxDB = s.totalDB
				maxTi, maxPi = ti, pi
			}
		}
		if maxTi >= 0 {
			fr.Pattern = grid
			fr.GainMaxDBi = maxDB
			fr.GainMaxTheta = pat.ThetaStart + float64(maxTi)*pat.ThetaStep
			fr.GainMaxPhi = pat.PhiStart + float64(maxPi)*pat.PhiStep
			fr.FrontToBackDB = frontToBack(grid, maxTi, maxPi, maxDB)
			fr.BeamwidthEDeg = beamwidth(grid, maxTi, maxPi, maxDB, true)
			fr.BeamwidthHDeg = beamwidth(grid, maxTi, maxPi, maxDB, false)
		} else {
			fr.GainMaxDBi = model.GainSentinel
		}
	} else {
		fr.GainMaxDBi = model.GainSentinel
	}

	if b.hasRadiated && b.hasInput && b.inputW > 1e-30 {
		eff := 100 * b.radiatedW / b.inputW
		if eff > 100 {
			eff = 100
		}
		fr.EfficiencyPct = &eff
	}
	return fr, true
}

func stepOrOne(step float64) float64 {
	if step == 0 {
		return 1
	}
	return step
}

// computeSWR returns the standing-wave ratio of impedance (r,x)
// against reference z0. |Γ|>=1 or a degenerate denominator yields the
// 999.0 sentinel.
func computeSWR(r, x, z0 float64) float64 {
	z, zRef := complex(r, x), complex(z0, 0)
	if cmplx.Abs(z+zRef) < 1e-15 {
		return model.SWRSentinel
	}
	gMag := cmplx.Abs(lib.ToReflection(z, zRef))
	if gMag >= 1.0 {
		return model.SWRSentinel
	}
	swr := (1 + gMag) / (1 - gMag)
	return math.Round(swr*1e4) / 1e4
}

// frontToBack finds the grid cell closest to (theta_max, phi_max+180)
// within half a phi step and returns max-back in dB.
func frontToBack(grid *model.PatternData, maxTi, maxPi int, maxDB float64) *float64 {
	backPhi := math.Mod(grid.PhiStart+float64(maxPi)*grid.PhiStep+180, 360)
	if backPhi < 0 {
		backPhi += 360
	}
	tol := 0.5 * stepOrOne(grid.PhiStep)
	bestPi := -1
	bestDist := math.Inf(1)
	for pi := 0; pi < grid.NPhi; pi++ {
		phi := grid.PhiStart + float64(pi)*grid.PhiStep
		d := math.Abs(math.Mod(phi-backPhi+540, 360) - 180)
		if d <= tol && d < bestDist {
			bestDist = d
			bestPi = pi
		}
	}
	if bestPi < 0 {
		return nil
	}
	back := grid.GainDBi[maxTi][bestPi]
	if back <= model.GainSentinel {
		return nil
	}
	fb := maxDB - back
	return &fb
}

// beamwidth computes the E-plane (eplane=true, varies theta at fixed
// phi=phiMax) or H-plane (varies phi at fixed theta=thetaMax)
// beamwidth by locating the -3dB crossings either side of the peak and
// linearly interpolating the exact crossing angle.
type bwSample struct {
	angle, db float64
}

// beamwidth selects the column or row of the grid nearest the pattern
// peak (the discrete analogue of "samples within 0.6*step of the peak
// cut"), sorts by angle, then walks outward from the peak looking for
// the -3dB crossing on each side.
func beamwidth(grid *model.PatternData, maxTi, maxPi int, maxDB float64, eplane bool) *float64 {
	var samples []bwSample

	if eplane {
		for ti := 0; ti < grid.NTheta; ti++ {
			db := grid.GainDBi[ti][maxPi]
			if db <= model.GainSentinel {
				continue
			}
			angle := grid.ThetaStart + float64(ti)*grid.ThetaStep
			samples = append(samples, bwSample{angle, db})
		}
	} else {
		for pi := 0; pi < grid.NPhi; pi++ {
			db := grid.GainDBi[maxTi][pi]
			if db <= model.GainSentinel {
				continue
			}
			angle := grid.PhiStart + float64(pi)*grid.PhiStep
			samples = append(samples, bwSample{angle, db})
		}
	}
	if len(samples) < 2 {
		return nil
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].angle < samples[j].angle })

	peakIdx := -1
	for i, s := range samples {
		if s.db == maxDB {
			peakIdx = i
			break
		}
	}
	if peakIdx < 0 {
		return nil
	}
	target := maxDB - 3

	left, okL := crossing(samples, peakIdx, -1, target)
	right, okR := crossing(samples, peakIdx, 1, target)
	if !okL || !okR {
		return nil
	}
	bw := right - left
	return &bw
}

func crossing(samples []bwSample, start, dir int, target float64) (float64, bool) {
	for i := start; i+dir >= 0 && i+dir < len(samples); i += dir {
		a, b := samples[i], samples[i+dir]
		if (a.db >= target) != (b.db >= target) {
			frac := (target - a.db) / (b.db - a.db)
			return a.angle + frac*(b.angle-a.angle), true
		}
	}
	return 0, false
}
