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
	"net/http"
	"os/exec"
)

// healthResponse mirrors spec.md §6's health body exactly.
type healthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	SolverAvailable bool   `json:"solver_available"`
	CacheConnected  bool   `json:"cache_connected"`
	Environment     string `json:"environment"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	cacheOK := s.KV != nil && s.KV.Ping(r.Context()) == nil
	_, solverErr := exec.LookPath(s.Settings.SolverBinary)

	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		Version:         s.Version,
		SolverAvailable: solverErr == nil,
		CacheConnected:  cacheOK,
		Environment:     s.Settings.Environment,
	})
}
