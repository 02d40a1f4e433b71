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

package convert

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bfix/antsim/deck"
	"github.com/bfix/antsim/lib"
	"github.com/bfix/antsim/model"
)

// ImportNEC parses a raw NEC-2 card deck. It recognizes GW, GN, EX, LD,
// TL, FR, and EN; every other card (RP, PT, XQ, NE, NH, GA, GH, GM, GR,
// GC, NT, CM/CE) is accepted and ignored, matching what a hand-edited
// deck commonly carries beyond the cards antsim itself emits.
func ImportNEC(content string) (*model.SimulationRequest, error) {
	req := &model.SimulationRequest{
		Ground:  model.GroundConfig{Type: model.GroundFreeSpace},
		Pattern: model.DefaultPatternConfig(),
	}
	freqStart, freqStop, freqSteps := 14.0, 14.5, 11
	haveFreq := false

	for _, raw := range splitLines(content) {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		card := strings.ToUpper(parts[0])

		switch card {
		case "GW":
			if len(parts) < 10 {
				continue
			}
			tag, err1 := strconv.Atoi(parts[1])
			segs, err2 := strconv.Atoi(parts[2])
			vals, err3 := parseFloats(parts[3:10])
			if err1 != nil || err2 != nil || err3 != nil {
				continue
			}
			req.Wires = append(req.Wires, model.Wire{
				Tag:      tag,
				Segments: clampSeg(segs),
				Start:    lib.NewVec3(vals[0], vals[1], vals[2]),
				End:      lib.NewVec3(vals[3], vals[4], vals[5]),
				Radius:   clampRadius(vals[6]),
			})

		case "GN":
			if len(parts) < 2 {
				continue
			}
			gnType, err := strconv.Atoi(parts[1])
			if err != nil {
				continue
			}
			switch gnType {
			case -1:
				req.Ground = model.GroundConfig{Type: model.GroundFreeSpace}
			case 1:
				req.Ground = model.GroundConfig{Type: model.GroundPerfect}
			case 2:
				epsR := parseFieldOr(parts, 5, 13.0)
				sigma := parseFieldOr(parts, 6, 0.005)
				req.Ground = model.GroundConfig{Type: model.GroundCustom, EpsR: epsR, Sigma: sigma}
			}

		case "EX":
			if len(parts) < 4 {
				continue
			}
			exType, err := strconv.Atoi(parts[1])
			if err != nil || exType != 0 {
				continue
			}
			tag, err1 := strconv.Atoi(parts[2])
			seg, err2 := strconv.Atoi(parts[3])
			if err1 != nil || err2 != nil {
				continue
			}
			vReal := parseFieldOr(parts, 5, 1.0)
			vImag := parseFieldOr(parts, 6, 0.0)
			req.Excitations = append(req.Excitations, model.Excitation{WireTag: tag, Segment: seg, VReal: vReal, VImag: vImag})

		case "LD":
			if len(parts) < 5 {
				continue
			}
			ldType, err1 := strconv.Atoi(parts[1])
			tag, err2 := strconv.Atoi(parts[2])
			segS, err3 := strconv.Atoi(parts[3])
			segE, err4 := strconv.Atoi(parts[4])
			if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
				continue
			}
			if t, ok := necLoadType(ldType); ok {
				req.Loads = append(req.Loads, model.LumpedLoad{
					Type: t, WireTag: tag, SegStart: segS, SegEnd: segE,
					P1: parseFieldOr(parts, 5, 0), P2: parseFieldOr(parts, 6, 0), P3: parseFieldOr(parts, 7, 0),
				})
			}

		case "TL":
			if len(parts) < 7 {
				continue
			}
			tag1, e1 := strconv.Atoi(parts[1])
			seg1, e2 := strconv.Atoi(parts[2])
			tag2, e3 := strconv.Atoi(parts[3])
			seg2, e4 := strconv.Atoi(parts[4])
			z0, e5 := strconv.ParseFloat(parts[5], 64)
			length, e6 := strconv.ParseFloat(parts[6], 64)
			if e1 != nil || e2 != nil || e3 != nil || e4 != nil || e5 != nil || e6 != nil {
				continue
			}
			req.TransmissionLines = append(req.TransmissionLines, model.TransmissionLine{
				Tag1: tag1, Seg1: seg1, Tag2: tag2, Seg2: seg2,
				Z0:     math.Max(1, math.Min(1000, z0)),
				Length: math.Max(0, math.Min(1000, length)),
				Y1R:    parseFieldOr(parts, 7, 0), Y1I: parseFieldOr(parts, 8, 0),
				Y2R: parseFieldOr(parts, 9, 0), Y2I: parseFieldOr(parts, 10, 0),
			})

		case "FR":
			if len(parts) < 6 {
				continue
			}
			n, e1 := strconv.Atoi(parts[2])
			start, e2 := strconv.ParseFloat(parts[5], 64)
			if e1 != nil || e2 != nil {
				continue
			}
			step := parseFieldOr(parts, 6, 0)
			freqStart = math.Max(0.1, math.Min(2000, start))
			freqSteps = clampInt(n, 1, 201)
			if freqSteps > 1 && step > 0 {
				freqStop = math.Max(freqStart, math.Min(2000, start+step*float64(freqSteps-1)))
			} else {
				freqStop = freqStart
			}
			haveFreq = true

		case "EN":
			goto done
		}
	}
done:

	if len(req.Wires) == 0 {
		return nil, fmt.Errorf("convert: no GW (wire) cards found in .nec file")
	}
	if len(req.Excitations) == 0 {
		centerSeg := (req.Wires[0].Segments + 1) / 2
		req.Excitations = append(req.Excitations, model.NewExcitation(req.Wires[0].Tag, centerSeg))
	}
	if !haveFreq {
		freqStart, freqStop, freqSteps = 14.0, 14.5, 11
	}
	req.Frequency = model.FrequencyConfig{StartMHz: freqStart, StopMHz: freqStop, Steps: freqSteps}

	return req, nil
}

func necLoadType(code int) (model.LoadType, bool) {
	switch code {
	case 0:
		return model.LoadSeriesRLC, true
	case 1:
		return model.LoadParallelRLC, true
	case 4:
		return model.LoadFixedImpedance, true
	case 5:
		return model.LoadWireConductivity, true
	default:
		return 0, false
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ExportNEC renders req as a raw NEC-2 card deck, reusing the same
// builder the solver pipeline uses so round-tripped decks are byte
// identical to what a simulation run would submit.
func ExportNEC(req *model.SimulationRequest) string {
	return deck.Build(req)
}
