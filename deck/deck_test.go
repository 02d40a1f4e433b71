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

package deck

import (
	"strings"
	"testing"

	"github.com/bfix/antsim/lib"
	"github.com/bfix/antsim/model"
)

func dipole() *model.SimulationRequest {
	return &model.SimulationRequest{
		Wires: []model.Wire{
			{Tag: 1, Segments: 21, Start: lib.NewVec3(-5, 0, 10), End: lib.NewVec3(5, 0, 10), Radius: 0.001},
		},
		Excitations: []model.Excitation{model.NewExcitation(1, 11)},
		Ground:      model.GroundConfig{Type: model.GroundFreeSpace},
		Frequency:   model.FrequencyConfig{StartMHz: 14.0, StopMHz: 14.2, Steps: 3},
		Pattern:     model.DefaultPatternConfig(),
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	req := dipole()
	a := Build(req)
	b := Build(req)
	if a != b {
		t.Fatal("Build is not byte-deterministic across calls")
	}
}

func TestBuildEndsInNewline(t *testing.T) {
	out := Build(dipole())
	if !strings.HasSuffix(out, "\n") {
		t.Fatal("deck must end with a newline")
	}
	if strings.HasSuffix(out, "\n\n") {
		t.Fatal("deck must end in a single trailing newline")
	}
}

func TestBuildCardOrderAndContent(t *testing.T) {
	out := Build(dipole())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	want := []string{"CM", "CE", "GW", "GE", "GN", "PT", "EX", "FR", "RP", "EN"}
	var got []string
	for _, l := range lines {
		got = append(got, strings.Fields(l)[0])
	}
	if len(got) != len(want) {
		t.Fatalf("card count mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("card %d: got %s want %s", i, got[i], want[i])
		}
	}
}

func TestBuildGWFormatting(t *testing.T) {
	out := Build(dipole())
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, "GW") {
			if !strings.Contains(l, "-5.000000") || !strings.Contains(l, "0.001000") {
				t.Fatalf("unexpected GW formatting: %q", l)
			}
			return
		}
	}
	t.Fatal("no GW card found")
}

func TestBuildFreeSpaceGround(t *testing.T) {
	out := Build(dipole())
	if !strings.Contains(out, "GE -1\n") || !strings.Contains(out, "GN -1\n") {
		t.Fatalf("expected free-space GE/GN cards, got %q", out)
	}
}

func TestBuildPerfectGround(t *testing.T) {
	req := dipole()
	req.Ground = model.GroundConfig{Type: model.GroundPerfect}
	out := Build(req)
	if !strings.Contains(out, "GE 0\n") || !strings.Contains(out, "GN 1 0 0 0 0 0\n") {
		t.Fatalf("expected perfect-ground GE/GN cards, got %q", out)
	}
}

func TestBuildNamedGroundPreset(t *testing.T) {
	req := dipole()
	req.Ground = model.GroundConfig{Type: model.GroundAverage}
	out := Build(req)
	if !strings.Contains(out, "GN 2 0 0 0 13 0.005\n") {
		t.Fatalf("expected average-ground GN card, got %q", out)
	}
}

func TestBuildCurrentsFlag(t *testing.T) {
	req := dipole()
	req.ComputeCurrents = true
	out := Build(req)
	if !strings.Contains(out, "PT 0 0 0 0\n") {
		t.Fatalf("expected PT 0 0 0 0 when currents requested, got %q", out)
	}
}
