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
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/bfix/antsim/model"
	"github.com/bfix/antsim/optimize"
	"github.com/bfix/antsim/sandbox"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsMessage is one frame of the /v1/ws/optimize protocol.
type wsMessage struct {
	Type string `json:"type"` // "progress" | "result" | "error"
	Data any    `json:"data"`
}

// handleWSOptimize implements spec.md §6's WebSocket protocol: the
// first client message is an OptimizationRequest; the server then
// streams progress/result/error frames until the search ends or the
// socket closes, whichever comes first. A closed socket cancels the
// search's context so the optimizer goroutine stops promptly. Admission
// is checked before the upgrade, while a plain HTTP 429 with a
// Retry-After header is still possible, and held for the lifetime of
// the socket.
func (s *Server) handleWSOptimize(w http.ResponseWriter, r *http.Request) {
	release, apiErr := s.admit(r.Context(), clientAddr(r))
	if apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	defer release()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn().Err(err).Msg("ws: upgrade failed")
		return
	}
	defer conn.Close()

	var req model.OptimizationRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(wsMessage{Type: "error", Data: map[string]string{"message": "invalid request: " + err.Error()}})
		return
	}
	if err := req.Validate(); err != nil {
		_ = conn.WriteJSON(wsMessage{Type: "error", Data: map[string]string{"message": err.Error()}})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// A reader goroutine watches for the client closing the socket
	// (gorilla surfaces that as a read error) and cancels ctx, which
	// the optimizer checks at each trial boundary.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	driver := &optimize.Driver{
		Runner: s.Runner,
		SandboxCfg: sandbox.Config{
			WorkRoot:     s.Settings.NECWorkdir,
			SolverBinary: s.Settings.SolverBinary,
			Timeout:      s.Settings.SimTimeout,
		},
		Log: s.Log,
	}

	resultCh, progressCh := driver.Run(ctx, &req)
	for p := range progressCh {
		if err := conn.WriteJSON(wsMessage{Type: "progress", Data: p}); err != nil {
			cancel()
		}
	}

	result := <-resultCh
	if result.Status == model.StatusError {
		_ = conn.WriteJSON(wsMessage{Type: "error", Data: map[string]string{"message": result.Error}})
		return
	}
	if result.Status == model.StatusCancelled {
		s.Log.Info().Msg("ws: optimization cancelled by client disconnect")
		return
	}
	_ = conn.WriteJSON(wsMessage{Type: "result", Data: result})
}
