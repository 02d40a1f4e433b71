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

package optimize

import (
	"context"
	"math"

	"github.com/bfix/antsim/deck"
	"github.com/bfix/antsim/model"
	"github.com/bfix/antsim/necparse"
	"github.com/bfix/antsim/sandbox"
)

// penaltyCost is returned for any trial that fails to produce a usable
// result: invalid geometry, solver failure, or an empty parse.
const penaltyCost = 1e6

// trialPattern is the fixed sampling grid every optimizer trial uses,
// independent of whatever pattern the base request specified.
func trialPattern() model.PatternConfig {
	return model.PatternConfig{ThetaStart: -90, ThetaStop: 90, ThetaStep: 5, PhiStart: 0, PhiStop: 360, PhiStep: 5}
}

// evaluate runs one full deck-build/sandbox/parse cycle for the wire
// set produced from x, and returns the scalar cost for req's objective.
func evaluate(ctx context.Context, runner sandbox.Runner, sbCfg sandbox.Config, req *model.OptimizationRequest, x []float64) float64 {
	wires := applyVariables(req.Base.Wires, req.Variables, x)

	trial := req.Base.Clone()
	trial.Wires = wires
	trial.Pattern = trialPattern()

	if err := trial.Validate(); err != nil {
		return penaltyCost
	}

	text, err := runner.Run(ctx, sbCfg, deck.Build(trial))
	if err != nil {
		return penaltyCost
	}

	pat := necparse.PatternGeometry{
		ThetaStart: trial.Pattern.ThetaStart, ThetaStep: trial.Pattern.ThetaStep, NTheta: trial.Pattern.NTheta(),
		PhiStart: trial.Pattern.PhiStart, PhiStep: trial.Pattern.PhiStep, NPhi: trial.Pattern.NPhi(),
	}
	results, err := necparse.Parse(text, pat, false)
	if err != nil || len(results) == 0 {
		return penaltyCost
	}

	switch req.Objective {
	case model.ObjMinSWRBand:
		sum := 0.0
		for _, fr := range results {
			sum += fr.SWR50
		}
		return sum / float64(len(results))
	default:
		target := closestFrequency(results, targetFrequency(req))
		return costAtTarget(req, target)
	}
}

// targetFrequency resolves the objective's evaluation frequency:
// request-specified, or the midpoint of the sweep.
func targetFrequency(req *model.OptimizationRequest) float64 {
	if req.TargetFrequencyMHz != nil {
		return *req.TargetFrequencyMHz
	}
	return (req.Base.Frequency.StartMHz + req.Base.Frequency.StopMHz) / 2
}

// closestFrequency returns the FrequencyResult whose frequency is
// nearest to target.
func closestFrequency(results []model.FrequencyResult, target float64) model.FrequencyResult {
	best := results[0]
	bestDiff := math.Abs(best.FrequencyMHz - target)
	for _, fr := range results[1:] {
		if d := math.Abs(fr.FrequencyMHz - target); d < bestDiff {
			best, bestDiff = fr, d
		}
	}
	return best
}

func costAtTarget(req *model.OptimizationRequest, fr model.FrequencyResult) float64 {
	switch req.Objective {
	case model.ObjMinSWR:
		return fr.SWR50
	case model.ObjMaxGain:
		return -fr.GainMaxDBi
	case model.ObjMaxFB:
		if fr.FrontToBackDB == nil {
			return 0
		}
		return -*fr.FrontToBackDB
	case model.ObjCombined:
		cost := 0.0
		w := req.Weights
		if w.SWR > 0 {
			cost += w.SWR * fr.SWR50
		}
		if w.Gain > 0 {
			cost += -w.Gain * fr.GainMaxDBi
		}
		if w.FB > 0 && fr.FrontToBackDB != nil {
			cost += -w.FB * *fr.FrontToBackDB
		}
		return cost
	default:
		return fr.SWR50
	}
}
