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
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/bfix/antsim/apierr"
	"github.com/bfix/antsim/model"
	"github.com/bfix/antsim/optimize"
	"github.com/bfix/antsim/sandbox"
)

// handleOptimize runs a full search to completion within the request
// and returns the terminal OptimizationResult. /v1/ws/optimize is the
// streaming counterpart for callers that want live progress.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	release, apiErr := s.admit(r.Context(), clientAddr(r))
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	defer release()

	var req model.OptimizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	driver := &optimize.Driver{
		Runner: s.Runner,
		SandboxCfg: sandbox.Config{
			WorkRoot:     s.Settings.NECWorkdir,
			SolverBinary: s.Settings.SolverBinary,
			Timeout:      s.Settings.SimTimeout,
		},
		Log: s.Log,
	}

	resultCh, progressCh := driver.Run(r.Context(), &req)
	drainProgress(progressCh, s.Log)
	result := <-resultCh

	if result.Status == model.StatusError {
		writeAPIError(w, apierr.New(apierr.OptimizationFailed, result.Error))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// drainProgress consumes a Driver's progress channel without acting on
// it; handleOptimize only needs the terminal result, but the channel
// must be drained so the search goroutine is never blocked on a full
// buffer with no reader.
func drainProgress(ch <-chan model.OptimizationProgress, log zerolog.Logger) {
	for p := range ch {
		log.Debug().Int("iteration", p.Iteration).Float64("cost", p.Cost).Msg("optimize: progress")
	}
}
