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

// Package api exposes antsim's HTTP/WebSocket surface: health, simulate,
// optimize, convert, and a streaming optimize socket, all under /api.
// Handlers translate between the JSON wire format and the model/store/
// sandbox/optimize core, and own the admission-check/cache/release
// pipeline around every simulate call.
package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/bfix/antsim/config"
	"github.com/bfix/antsim/sandbox"
	"github.com/bfix/antsim/store"
)

// Server holds every dependency a handler needs; it carries no mutable
// state of its own beyond what its fields reference.
type Server struct {
	Settings  *config.Settings
	Runner    sandbox.Runner
	Cache     *store.Cache
	Admission *store.Admission
	KV        store.KV
	Log       zerolog.Logger
	Version   string
}

// NewMux builds the full route table, matching spec.md §6's external
// interface table exactly (paths relative to /api).
func (s *Server) NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/simulate", s.handleSimulate)
	mux.HandleFunc("POST /api/v1/optimize", s.handleOptimize)
	mux.HandleFunc("POST /api/v1/convert/import", s.handleConvertImport)
	mux.HandleFunc("POST /api/v1/convert/export", s.handleConvertExport)
	mux.HandleFunc("GET /api/v1/ws/optimize", s.handleWSOptimize)
	return s.withMiddleware(mux)
}

// withMiddleware wraps mux with CORS and structured access logging, the
// way the teacher's single-handler plotsrv needed neither — this
// service fronts a JSON API consumed cross-origin by a browser client.
func (s *Server) withMiddleware(mux *http.ServeMux) *http.ServeMux {
	wrapped := http.NewServeMux()
	wrapped.Handle("/", s.logRequests(s.withCORS(mux)))
	return wrapped
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := corsOrigin(s.Settings, r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func corsOrigin(settings *config.Settings, reqOrigin string) string {
	for _, o := range settings.AllowedOrigins {
		if o == "*" || o == reqOrigin {
			if o == "*" {
				return "*"
			}
			return reqOrigin
		}
	}
	return ""
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.Log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", clientAddr(r)).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
