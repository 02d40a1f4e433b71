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

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/optimize"

	"github.com/bfix/antsim/model"
	"github.com/bfix/antsim/sandbox"
)

// cancelledSignal is panicked from the objective closure when the
// caller's context is cancelled mid-search; Run recovers it to stop
// the simplex walk and report status=cancelled.
type cancelledSignal struct{}

// Driver runs a Nelder-Mead search where every trial is a full
// deck-build/sandbox/parse cycle.
type Driver struct {
	Runner     sandbox.Runner
	SandboxCfg sandbox.Config
	Log        zerolog.Logger
}

// progressCapacity bounds the progress mailbox; sends beyond capacity
// are dropped rather than blocking the search.
const progressCapacity = 16

// Run launches the search for req in its own goroutine and returns
// immediately with two channels: progress emits one event per trial
// (non-blocking send, dropped if the consumer falls behind) and is
// closed when the search ends; result then carries the single
// terminal outcome. A writer task drains progress as it arrives and
// reads result once progress closes.
func (d *Driver) Run(ctx context.Context, req *model.OptimizationRequest) (result <-chan *model.OptimizationResult, progress <-chan model.OptimizationProgress) {
	ch := make(chan model.OptimizationProgress, progressCapacity)
	resultCh := make(chan *model.OptimizationResult, 1)

	go func() {
		defer close(ch)
		resultCh <- d.run(ctx, req, ch)
	}()

	return resultCh, ch
}

// run performs the actual search synchronously; factored out so Run
// can bridge it to the channel-returning signature tests and the
// WebSocket handler expect.
func (d *Driver) run(ctx context.Context, req *model.OptimizationRequest, progress chan<- model.OptimizationProgress) (result *model.OptimizationResult) {
	iteration := 0
	bestCost := 0.0
	haveBest := false
	var history []model.OptimizationStep
	var lastX []float64

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(cancelledSignal); ok {
				result = &model.OptimizationResult{
					Status:         model.StatusCancelled,
					IterationsUsed: iteration,
					BestCost:       bestCost,
					FinalValues:    lastX,
					OptimizedWires: applyVariables(req.Base.Wires, req.Variables, lastX),
					History:        history,
				}
				return
			}
			result = &model.OptimizationResult{
				Status:         model.StatusError,
				IterationsUsed: iteration,
				BestCost:       bestCost,
				History:        history,
				Error:          "optimizer: internal error",
			}
		}
	}()

	objective := func(x []float64) float64 {
		if ctx.Err() != nil {
			panic(cancelledSignal{})
		}
		cost := evaluate(ctx, d.Runner, d.SandboxCfg, req, x)
		iteration++
		lastX = append([]float64(nil), x...)
		if !haveBest || cost < bestCost {
			bestCost = cost
			haveBest = true
		}
		history = append(history, model.OptimizationStep{Iteration: iteration, Cost: cost, Values: lastX})
		if iteration%10 == 0 {
			d.Log.Info().Int("iteration", iteration).Float64("cost", cost).Float64("best_cost", bestCost).Msg("optimizer progress")
		}
		select {
		case progress <- model.OptimizationProgress{Iteration: iteration, Cost: cost, BestCost: bestCost}:
		default:
		}
		return cost
	}

	p := optimize.Problem{Func: objective}
	x0 := initialPoint(req.Variables)

	settings := &optimize.Settings{
		MajorIterations: req.MaxIterations,
		FuncEvaluations: req.MaxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   0.001,
			Relative:   0.001,
			Iterations: 10,
		},
	}
	method := &optimize.NelderMead{}

	res, err := optimize.Minimize(p, x0, settings, method)
	status := model.StatusSuccess
	if err != nil {
		status = model.StatusError
	} else if res != nil && res.Status == optimize.IterationLimit {
		status = model.StatusMaxIterations
	}

	finalX := lastX
	if res != nil && res.X != nil {
		finalX = res.X
	}

	return &model.OptimizationResult{
		Status:         status,
		IterationsUsed: iteration,
		BestCost:       bestCost,
		FinalValues:    finalX,
		OptimizedWires: applyVariables(req.Base.Wires, req.Variables, finalX),
		History:        history,
	}
}
