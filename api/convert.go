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

	"github.com/bfix/antsim/convert"
	"github.com/bfix/antsim/model"
)

type convertImportRequest struct {
	Content string `json:"content"`
	Format  string `json:"format"`
}

type convertExportRequest struct {
	Title   string                   `json:"title"`
	Format  string                   `json:"format"`
	Request model.SimulationRequest `json:"request"`
}

type convertExportResponse struct {
	Content            string `json:"content"`
	Format             string `json:"format"`
	FilenameSuggestion string `json:"filename_suggestion"`
}

// handleConvertImport parses an uploaded .maa or .nec file into a
// SimulationRequest, best-effort per convert.ImportMAA/ImportNEC.
func (s *Server) handleConvertImport(w http.ResponseWriter, r *http.Request) {
	var req convertImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body: "+err.Error())
		return
	}

	var (
		parsed *model.SimulationRequest
		err    error
	)
	switch req.Format {
	case "maa":
		parsed, err = convert.ImportMAA(req.Content)
	case "nec":
		parsed, err = convert.ImportNEC(req.Content)
	default:
		writeValidationError(w, "unsupported format: "+req.Format)
		return
	}
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}

// handleConvertExport renders a SimulationRequest into a .maa or .nec
// file body, per spec.md §6.
func (s *Server) handleConvertExport(w http.ResponseWriter, r *http.Request) {
	var req convertExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationError(w, "invalid request body: "+err.Error())
		return
	}
	if err := req.Request.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	var (
		content  string
		filename string
	)
	switch req.Format {
	case "maa":
		content = convert.ExportMAA(req.Title, &req.Request)
		filename = "antsim-export.maa"
	case "nec":
		content = convert.ExportNEC(&req.Request)
		filename = "antsim-export.nec"
	default:
		writeValidationError(w, "unsupported format: "+req.Format)
		return
	}

	writeJSON(w, http.StatusOK, convertExportResponse{
		Content:            content,
		Format:             req.Format,
		FilenameSuggestion: filename,
	})
}
