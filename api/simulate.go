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

package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bfix/antsim/apierr"
	"github.com/bfix/antsim/deck"
	"github.com/bfix/antsim/lib"
	"github.com/bfix/antsim/model"
	"github.com/bfix/antsim/necparse"
	"github.com/bfix/antsim/sandbox"
	"github.com/bfix/antsim/store"
)

func formatMHz(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func newID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf)
}

func (s *Server) admissionParams() store.AdmissionParams {
	return store.AdmissionParams{
		HourlyLimit:     s.Settings.RateLimitPerHour,
		WindowSeconds:   s.Settings.RateLimitWindowSeconds,
		ConcurrentLimit: s.Settings.MaxConcurrentPerIP,
	}
}

// admit runs the rate-limit/concurrency check for addr, the way
// original_source/backend/src/api/v1/*.py wraps every solver-invoking
// endpoint with check_rate_limit/release_concurrent, not just simulate.
// release is always safe to defer, even when admission is disabled or
// the check rejected the request (a no-op in both cases).
func (s *Server) admit(ctx context.Context, addr string) (release func(), apiErr *apierr.Error) {
	if !s.Settings.RateLimitEnabled {
		return func() {}, nil
	}
	decision := s.Admission.Check(ctx, addr, s.admissionParams(), time.Now())
	if !decision.Allowed {
		tag := apierr.RateLimitExceeded
		if decision.Tag == "concurrent_limit" {
			tag = apierr.ConcurrentLimitExceeded
		}
		return func() {}, &apierr.Error{Tag: tag, Message: "request rejected by admission control", RetryAfter: decision.RetryAfter}
	}
	return func() { s.Admission.Release(ctx, addr) }, nil
}

// handleSimulate implements the full pipeline of spec.md §4.4/§8:
// admit -> cache lookup -> build/run/parse -> cache store -> release,
// with guaranteed admission release on every exit path.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	release, apiErr := s.admit(r.Context(), clientAddr(r))
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	defer release()

	var req model.SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	key, err := store.CanonicalKey(req)
	if err != nil {
		s.Log.Warn().Err(err).Msg("simulate: canonical key failed")
	}

	if key != "" {
		var cached model.SimulationResult
		if s.Cache.Get(r.Context(), key, &cached) {
			cached.Cached = true
			cached.ComputedInMs = 0
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	simID := newID()
	start := time.Now()

	result, apiErr := s.runSimulation(r.Context(), simID, &req)
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	result.ComputedInMs = time.Since(start).Milliseconds()

	if key != "" {
		s.Cache.Set(r.Context(), key, result)
	}
	writeJSON(w, http.StatusOK, result)
}

// runSimulation drives one deck-build/sandbox/parse cycle and maps its
// failure modes onto the disposition table of spec.md §7.
func (s *Server) runSimulation(ctx context.Context, simID string, req *model.SimulationRequest) (*model.SimulationResult, *apierr.Error) {
	sbCfg := sandbox.Config{
		WorkRoot:     s.Settings.NECWorkdir,
		SolverBinary: s.Settings.SolverBinary,
		Timeout:      s.Settings.SimTimeout,
	}

	text, err := s.Runner.Run(ctx, sbCfg, deck.Build(req))
	if err != nil {
		var sbErr *sandbox.Error
		if errors.As(err, &sbErr) {
			return nil, &apierr.Error{Tag: apierr.SimulationFailed, Message: sbErr.Error(), SimulationID: simID, Err: err}
		}
		return nil, &apierr.Error{Tag: apierr.SimulationFailed, Message: "solver invocation failed", SimulationID: simID, Err: err}
	}

	pat := necparse.PatternGeometry{
		ThetaStart: req.Pattern.ThetaStart, ThetaStep: req.Pattern.ThetaStep, NTheta: req.Pattern.NTheta(),
		PhiStart: req.Pattern.PhiStart, PhiStep: req.Pattern.PhiStep, NPhi: req.Pattern.NPhi(),
	}
	freqResults, err := necparse.Parse(text, pat, req.ComputeCurrents)
	if errors.Is(err, necparse.ErrNoResults) {
		return nil, &apierr.Error{Tag: apierr.NoResults, Message: "solver output produced no usable frequency results", SimulationID: simID, Err: err}
	}
	if err != nil {
		return nil, &apierr.Error{Tag: apierr.ParseFailed, Message: "failed to parse solver output", SimulationID: simID, Err: err}
	}
	if len(freqResults) == 0 {
		return nil, &apierr.Error{Tag: apierr.NoResults, Message: "solver output produced no usable frequency results", SimulationID: simID}
	}

	return &model.SimulationResult{
		SimulationID:  simID,
		Solver:        s.Settings.SolverBinary,
		TotalSegments: req.TotalSegments(),
		Cached:        false,
		FrequencyData: freqResults,
		Warnings:      warningsFor(freqResults),
	}, nil
}

// warningsFor flags frequency points a designer would want called out:
// a very high SWR or a feedpoint resistance too low to drive safely.
func warningsFor(results []model.FrequencyResult) []string {
	var warnings []string
	for _, fr := range results {
		z := complex(fr.Impedance.Real, fr.Impedance.Imag)
		if fr.SWR50 > 10.0 {
			warnings = append(warnings, "high SWR at "+formatMHz(fr.FrequencyMHz)+" MHz, Z="+lib.FormatImpedance(z, 4))
		}
		if fr.Impedance.Real > 0 && fr.Impedance.Real < 5.0 {
			warnings = append(warnings, "low feedpoint resistance at "+formatMHz(fr.FrequencyMHz)+" MHz, Z="+lib.FormatImpedance(z, 4))
		}
	}
	return warnings
}
