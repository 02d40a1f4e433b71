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

// Package convert translates between antsim's native SimulationRequest
// and two interchange formats: MMANA-GAL's .maa and raw NEC-2 .nec card
// decks. Both directions are best-effort, tolerant of the field-count
// and formatting variance seen across MMANA-GAL versions in the wild;
// neither is hardened against arbitrary or malformed input beyond what
// is needed to fail with a clear error instead of a panic.
package convert

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bfix/antsim/lib"
	"github.com/bfix/antsim/model"
)

// clampSeg, clampRadius mirror the defensive clamps the original MMANA
// importer applies, since .maa files in the wild carry out-of-range
// values MMANA itself tolerates.
func clampSeg(n int) int {
	if n < 1 {
		return 1
	}
	if n > 200 {
		return 200
	}
	return n
}

func clampRadius(r float64) float64 {
	return math.Max(0.0001, math.Min(0.1, r))
}

// ImportMAA parses a MMANA-GAL .maa file into a SimulationRequest. The
// wire/load/source counts line is located by scanning for the first
// line with at least three integer fields, since the header's free-text
// lines before it vary by MMANA-GAL version.
func ImportMAA(content string) (*model.SimulationRequest, error) {
	lines := splitLines(content)
	if len(lines) < 3 {
		return nil, fmt.Errorf("convert: .maa file too short")
	}

	idx := 1
	nWires, nLoads, nSources := 0, 0, 0
	for idx < len(lines) {
		parts := strings.Fields(lines[idx])
		if len(parts) >= 3 {
			a := strings.Trim(parts[0], ",*")
			b := strings.Trim(parts[1], ",*")
			c := strings.Trim(parts[2], ",*")
			w, errW := strconv.Atoi(a)
			l, errL := strconv.Atoi(b)
			s, errS := strconv.Atoi(c)
			if errW == nil && errL == nil && errS == nil {
				nWires, nLoads, nSources = w, l, s
				idx++
				break
			}
		}
		idx++
	}
	if nWires == 0 {
		return nil, fmt.Errorf("convert: could not find wire count line in .maa file")
	}

	req := &model.SimulationRequest{
		Ground:  model.GroundConfig{Type: model.GroundFreeSpace},
		Pattern: model.DefaultPatternConfig(),
	}

	for i := 0; i < nWires; i++ {
		if idx >= len(lines) {
			return nil, fmt.Errorf("convert: unexpected end of file at wire %d", i+1)
		}
		fields := splitMAAFields(lines[idx])
		idx++
		if len(fields) < 8 {
			return nil, fmt.Errorf("convert: wire %d: expected 8 values, got %d", i+1, len(fields))
		}
		vals, err := parseFloats(fields[:7])
		if err != nil {
			return nil, fmt.Errorf("convert: wire %d: %w", i+1, err)
		}
		segF, err := strconv.ParseFloat(fields[7], 64)
		if err != nil {
			return nil, fmt.Errorf("convert: wire %d: invalid segment count: %w", i+1, err)
		}
		req.Wires = append(req.Wires, model.Wire{
			Tag:      i + 1,
			Segments: clampSeg(int(segF)),
			Start:    lib.NewVec3(vals[0], vals[1], vals[2]),
			End:      lib.NewVec3(vals[3], vals[4], vals[5]),
			Radius:   clampRadius(vals[6]),
		})
	}

	for i := 0; i < nLoads && idx < len(lines); i++ {
		fields := splitMAAFields(lines[idx])
		idx++
		if len(fields) < 4 {
			continue
		}
		wireNum, seg, ok := parseWireSeg(fields)
		if !ok {
			continue
		}
		r := parseFieldOr(fields, 2, 0)
		x := parseFieldOr(fields, 3, 0)
		induct := parseFieldOr(fields, 4, 0)
		capac := parseFieldOr(fields, 5, 0)
		if induct != 0 || capac != 0 {
			req.Loads = append(req.Loads, model.LumpedLoad{
				Type: model.LoadSeriesRLC, WireTag: wireNum, SegStart: seg, SegEnd: seg,
				P1: r, P2: induct, P3: capac,
			})
		} else {
			req.Loads = append(req.Loads, model.LumpedLoad{
				Type: model.LoadFixedImpedance, WireTag: wireNum, SegStart: seg, SegEnd: seg,
				P1: r, P2: x, P3: 0,
			})
		}
	}

	for i := 0; i < nSources && idx < len(lines); i++ {
		fields := splitMAAFields(lines[idx])
		idx++
		if len(fields) < 2 {
			continue
		}
		wireNum, seg, ok := parseWireSeg(fields)
		if !ok {
			continue
		}
		vMag := parseFieldOr(fields, 2, 1.0)
		vPhaseDeg := parseFieldOr(fields, 3, 0.0)
		phase := vPhaseDeg * math.Pi / 180
		req.Excitations = append(req.Excitations, model.Excitation{
			WireTag: wireNum, Segment: seg,
			VReal: vMag * math.Cos(phase), VImag: vMag * math.Sin(phase),
		})
	}

	if len(req.Excitations) == 0 && len(req.Wires) > 0 {
		centerSeg := (req.Wires[0].Segments + 1) / 2
		req.Excitations = append(req.Excitations, model.NewExcitation(req.Wires[0].Tag, centerSeg))
	}

	freqMHz := 14.0
	for idx < len(lines) {
		line := strings.ToLower(strings.TrimSpace(lines[idx]))
		idx++
		if line == "" {
			continue
		}
		if strings.Contains(line, "free") && strings.Contains(line, "space") {
			req.Ground = model.GroundConfig{Type: model.GroundFreeSpace}
		} else if strings.Contains(line, "perfect") {
			req.Ground = model.GroundConfig{Type: model.GroundPerfect}
		} else if strings.Contains(line, "real") || strings.Contains(line, "average") {
			req.Ground = model.GroundConfig{Type: model.GroundAverage}
		}
		stripped := strings.NewReplacer(".", "", "-", "").Replace(line)
		if strings.Contains(line, "mhz") || isDigits(stripped) {
			if f, err := strconv.ParseFloat(strings.Fields(line)[0], 64); err == nil && f >= 0.1 && f <= 500 {
				freqMHz = f
			}
		}
	}
	req.Frequency = model.FrequencyConfig{StartMHz: freqMHz, StopMHz: freqMHz, Steps: 1}

	return req, nil
}

// ExportMAA renders a SimulationRequest as a MMANA-GAL .maa file. Loads
// and sources use the .maa comma-separated style; geometry keeps six
// decimal places to match what MMANA-GAL itself writes.
func ExportMAA(title string, req *model.SimulationRequest) string {
	var b strings.Builder
	if title == "" {
		title = "antsim export"
	}
	fmt.Fprintln(&b, title)
	fmt.Fprintf(&b, "%.6f\n", req.Frequency.StartMHz)
	fmt.Fprintf(&b, "%d %d %d\n", len(req.Wires), len(req.Loads), len(req.Excitations))

	for _, w := range req.Wires {
		fmt.Fprintf(&b, "%.6f, %.6f, %.6f, %.6f, %.6f, %.6f, %.6f, %d\n",
			w.Start[0], w.Start[1], w.Start[2], w.End[0], w.End[1], w.End[2], w.Radius, w.Segments)
	}

	for _, ld := range req.Loads {
		switch ld.Type {
		case model.LoadSeriesRLC:
			fmt.Fprintf(&b, "%d, %d, %.6g, 0, %.6g, %.6g\n", ld.WireTag, ld.SegStart, ld.P1, ld.P2, ld.P3)
		case model.LoadFixedImpedance:
			fmt.Fprintf(&b, "%d, %d, %.6g, %.6g, 0, 0\n", ld.WireTag, ld.SegStart, ld.P1, ld.P2)
		default:
			fmt.Fprintf(&b, "%d, %d, %.6g, %.6g, %.6g, 0\n", ld.WireTag, ld.SegStart, ld.P1, ld.P2, ld.P3)
		}
	}

	for _, ex := range req.Excitations {
		mag := math.Hypot(ex.VReal, ex.VImag)
		phase := math.Atan2(ex.VImag, ex.VReal) * 180 / math.Pi
		fmt.Fprintf(&b, "%d, %d, %.6f, %.2f\n", ex.WireTag, ex.Segment, mag, phase)
	}

	b.WriteString("1\n")
	b.WriteString("13.0, 0.005\n")
	b.WriteString("\n")
	return b.String()
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(strings.TrimSpace(s), "\n")
}

func splitMAAFields(line string) []string {
	return strings.Fields(strings.ReplaceAll(line, ",", " "))
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", f)
		}
		out[i] = v
	}
	return out, nil
}

func parseFieldOr(fields []string, i int, fallback float64) float64 {
	if i >= len(fields) {
		return fallback
	}
	v, err := strconv.ParseFloat(fields[i], 64)
	if err != nil {
		return fallback
	}
	return v
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func parseWireSeg(fields []string) (wire, seg int, ok bool) {
	wf, err1 := strconv.ParseFloat(fields[0], 64)
	sf, err2 := strconv.ParseFloat(fields[1], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return int(wf), int(sf), true
}
