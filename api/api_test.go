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
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bfix/antsim/apierr"
	"github.com/bfix/antsim/config"
	"github.com/bfix/antsim/model"
	"github.com/bfix/antsim/sandbox"
	"github.com/bfix/antsim/store"
)

// memKV is a minimal in-memory store.KV for HTTP-handler tests.
type memKV struct {
	mu      sync.Mutex
	strings map[string]string
	zsets   map[string]map[string]float64
}

func newMemKV() *memKV {
	return &memKV{strings: map[string]string{}, zsets: map[string]map[string]float64{}}
}

func (m *memKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strings[key], nil
}
func (m *memKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strings[key] = string(value)
	return nil
}
func (m *memKV) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.strings, key)
	return nil
}
func (m *memKV) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var v int64
	fmt.Sscanf(m.strings[key], "%d", &v)
	v++
	m.strings[key] = fmt.Sprintf("%d", v)
	return v, nil
}
func (m *memKV) Decr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var v int64
	fmt.Sscanf(m.strings[key], "%d", &v)
	v--
	m.strings[key] = fmt.Sprintf("%d", v)
	return v, nil
}
func (m *memKV) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }
func (m *memKV) ZAdd(ctx context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.zsets[key] == nil {
		m.zsets[key] = map[string]float64{}
	}
	m.zsets[key][member] = score
	return nil
}
func (m *memKV) ZCard(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.zsets[key])), nil
}
func (m *memKV) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for mem, sc := range m.zsets[key] {
		if sc >= min && sc <= max {
			delete(m.zsets[key], mem)
		}
	}
	return nil
}
func (m *memKV) ZRangeWithMinScore(ctx context.Context, key string, limit int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var scores []float64
	for _, sc := range m.zsets[key] {
		scores = append(scores, sc)
	}
	if int64(len(scores)) > limit {
		scores = scores[:limit]
	}
	out := make([]string, len(scores))
	for i, sc := range scores {
		out[i] = fmt.Sprintf("%v", sc)
	}
	return out, nil
}
func (m *memKV) Ping(ctx context.Context) error { return nil }

// canned is a fixed fake sandbox.Runner returning the same transcript
// for every call, with an optional per-call error override.
type canned struct {
	transcript string
	err        error
	calls      int
}

func (c *canned) Run(ctx context.Context, cfg sandbox.Config, deckText string) (string, error) {
	c.calls++
	return c.transcript, c.err
}

const dipoleTranscript = `FREQUENCY : 1.410000E+01 MHZ
ANTENNA INPUT PARAMETERS
h1
h2
1 1 1 1 1 1 7.3500E+01 4.2000E+01 1 1 1
`

func dipoleSimRequest() model.SimulationRequest {
	return model.SimulationRequest{
		Wires: []model.Wire{
			{Tag: 1, Segments: 21, Start: vec3(-5, 0, 10), End: vec3(5, 0, 10), Radius: 0.001},
		},
		Excitations: []model.Excitation{model.NewExcitation(1, 11)},
		Ground:      model.GroundConfig{Type: model.GroundFreeSpace},
		Frequency:   model.FrequencyConfig{StartMHz: 14.0, StopMHz: 14.2, Steps: 3},
		Pattern:     model.DefaultPatternConfig(),
	}
}

func testServer(runner *canned, kv store.KV) *Server {
	settings := config.Load()
	settings.RateLimitEnabled = true
	settings.RateLimitPerHour = 30
	settings.RateLimitWindowSeconds = 3600
	settings.MaxConcurrentPerIP = 5

	return &Server{
		Settings:  settings,
		Runner:    runner,
		Cache:     &store.Cache{KV: kv, Log: zerolog.Nop()},
		Admission: &store.Admission{KV: kv, Log: zerolog.Nop()},
		KV:        kv,
		Log:       zerolog.Nop(),
		Version:   "test",
	}
}

func postJSON(t *testing.T, mux http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(data)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealthReportsOK(t *testing.T) {
	s := testServer(&canned{transcript: dipoleTranscript}, newMemKV())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	s.NewMux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.CacheConnected {
		t.Fatal("expected cache_connected true with a working KV")
	}
}

func TestHandleSimulateDipole(t *testing.T) {
	s := testServer(&canned{transcript: dipoleTranscript}, newMemKV())
	rec := postJSON(t, s.NewMux(), "/api/v1/simulate", dipoleSimRequest())

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result model.SimulationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.FrequencyData) != 1 {
		t.Fatalf("expected 1 frequency point from the canned transcript, got %d", len(result.FrequencyData))
	}
	if result.FrequencyData[0].Impedance.Real != 73.5 {
		t.Fatalf("expected impedance real 73.5, got %v", result.FrequencyData[0].Impedance.Real)
	}
	if result.Cached {
		t.Fatal("first response should not be cached")
	}
}

func TestHandleSimulateCacheHit(t *testing.T) {
	runner := &canned{transcript: dipoleTranscript}
	s := testServer(runner, newMemKV())
	mux := s.NewMux()

	first := postJSON(t, mux, "/api/v1/simulate", dipoleSimRequest())
	if first.Code != http.StatusOK {
		t.Fatalf("first request failed: %d %s", first.Code, first.Body.String())
	}
	second := postJSON(t, mux, "/api/v1/simulate", dipoleSimRequest())
	if second.Code != http.StatusOK {
		t.Fatalf("second request failed: %d %s", second.Code, second.Body.String())
	}

	var result model.SimulationResult
	if err := json.Unmarshal(second.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Cached {
		t.Fatal("expected second identical request to be a cache hit")
	}
	if result.ComputedInMs != 0 {
		t.Fatalf("expected computed_in_ms 0 on cache hit, got %d", result.ComputedInMs)
	}
	if runner.calls != 1 {
		t.Fatalf("expected solver invoked exactly once, got %d calls", runner.calls)
	}
}

func TestHandleSimulateRateLimit(t *testing.T) {
	s := testServer(&canned{transcript: dipoleTranscript}, newMemKV())
	s.Settings.RateLimitPerHour = 2
	mux := s.NewMux()

	var codes []int
	for i := 0; i < 3; i++ {
		req := dipoleSimRequest()
		req.Frequency.StartMHz = 14.0 + float64(i)*0.001 // vary cache key so each call reaches the solver
		rec := postJSON(t, mux, "/api/v1/simulate", req)
		codes = append(codes, rec.Code)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected third request rate-limited, got status codes %v", codes)
	}
}

func TestHandleSimulateRejectsInvalidRequest(t *testing.T) {
	s := testServer(&canned{transcript: dipoleTranscript}, newMemKV())
	bad := dipoleSimRequest()
	bad.Wires[0].End = bad.Wires[0].Start // coincident endpoints
	rec := postJSON(t, s.NewMux(), "/api/v1/simulate", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid geometry, got %d", rec.Code)
	}
}

func TestHandleSimulateSolverFailure(t *testing.T) {
	runner := &canned{err: &sandbox.Error{Kind: sandbox.NonZeroExit, ExitCode: 1}}
	s := testServer(runner, newMemKV())
	rec := postJSON(t, s.NewMux(), "/api/v1/simulate", dipoleSimRequest())
	if rec.Code != apierr.SimulationFailed.Status() {
		t.Fatalf("expected %d for solver failure, got %d", apierr.SimulationFailed.Status(), rec.Code)
	}
}

func TestHandleOptimizeMinSWR(t *testing.T) {
	s := testServer(&canned{transcript: dipoleTranscript}, newMemKV())
	target := 14.1
	req := model.OptimizationRequest{
		Base: dipoleSimRequest(),
		Variables: []model.OptimizationVariable{
			{WireTag: 1, Field: model.FieldX2, Min: 4.5, Max: 5.5},
		},
		Objective:          model.ObjMinSWR,
		TargetFrequencyMHz: &target,
		MaxIterations:      10,
	}
	rec := postJSON(t, s.NewMux(), "/api/v1/optimize", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result model.OptimizationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.IterationsUsed == 0 {
		t.Fatal("expected at least one iteration")
	}
}

func TestHandleOptimizeRateLimit(t *testing.T) {
	s := testServer(&canned{transcript: dipoleTranscript}, newMemKV())
	s.Settings.RateLimitPerHour = 2
	mux := s.NewMux()

	req := model.OptimizationRequest{
		Base: dipoleSimRequest(),
		Variables: []model.OptimizationVariable{
			{WireTag: 1, Field: model.FieldX2, Min: 4.5, Max: 5.5},
		},
		Objective:     model.ObjMinSWR,
		MaxIterations: 2,
	}

	var codes []int
	for i := 0; i < 3; i++ {
		rec := postJSON(t, mux, "/api/v1/optimize", req)
		codes = append(codes, rec.Code)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected third optimize request rate-limited, got status codes %v", codes)
	}
}

func TestHandleConvertImportAndExportRoundTrip(t *testing.T) {
	s := testServer(&canned{transcript: dipoleTranscript}, newMemKV())
	mux := s.NewMux()

	exportReq := convertExportRequest{Title: "dipole", Format: "maa", Request: dipoleSimRequest()}
	exportRec := postJSON(t, mux, "/api/v1/convert/export", exportReq)
	if exportRec.Code != http.StatusOK {
		t.Fatalf("export failed: %d %s", exportRec.Code, exportRec.Body.String())
	}
	var exportResp convertExportResponse
	if err := json.Unmarshal(exportRec.Body.Bytes(), &exportResp); err != nil {
		t.Fatalf("decode export: %v", err)
	}

	importReq := convertImportRequest{Content: exportResp.Content, Format: "maa"}
	importRec := postJSON(t, mux, "/api/v1/convert/import", importReq)
	if importRec.Code != http.StatusOK {
		t.Fatalf("import failed: %d %s", importRec.Code, importRec.Body.String())
	}
	var imported model.SimulationRequest
	if err := json.Unmarshal(importRec.Body.Bytes(), &imported); err != nil {
		t.Fatalf("decode import: %v", err)
	}
	if len(imported.Wires) != 1 {
		t.Fatalf("expected 1 wire, got %d", len(imported.Wires))
	}
}

func vec3(x, y, z float64) [3]float64 {
	return [3]float64{x, y, z}
}
