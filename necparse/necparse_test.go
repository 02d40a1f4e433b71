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

package necparse

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bfix/antsim/model"
)

func TestComputeSWRMatchedLine(t *testing.T) {
	if got := computeSWR(50, 0, 50); got != 1.0 {
		t.Fatalf("expected SWR 1.0 for matched line, got %v", got)
	}
}

func TestComputeSWRDegenerateZero(t *testing.T) {
	if got := computeSWR(0, 0, 0); got != model.SWRSentinel {
		t.Fatalf("expected sentinel for degenerate 0-ohm reference, got %v", got)
	}
}

func TestComputeSWRMonotonic(t *testing.T) {
	swrSmall := computeSWR(60, 10, 50)
	swrLarge := computeSWR(200, 10, 50)
	if !(swrLarge > swrSmall) {
		t.Fatalf("expected SWR to grow with mismatch: small=%v large=%v", swrSmall, swrLarge)
	}
}

func TestComputeSWRNeverBelowOne(t *testing.T) {
	for _, r := range []float64{1, 10, 50, 100, 500} {
		if got := computeSWR(r, 0, 50); got < 1.0 {
			t.Fatalf("swr(%v,0) = %v, expected >= 1.0", r, got)
		}
	}
}

// impedanceRow renders 11 scientific-notation fields with the
// feedpoint impedance at columns 7,8, matching ANTENNA INPUT PARAMETERS.
func impedanceRow(re, im float64) string {
	f := "1.000000E+00"
	return fmt.Sprintf("%s %s %s %s %s %s %.6E %.6E %s %s %s", f, f, f, f, f, f, re, im, f, f, f)
}

func sampleOutput(freqMHz, zReal, zImag float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FREQUENCY : %.6E MHZ\n", freqMHz)
	b.WriteString("ANTENNA INPUT PARAMETERS\n")
	b.WriteString("header1\n")
	b.WriteString("header2\n")
	b.WriteString(impedanceRow(zReal, zImag) + "\n")
	b.WriteString("RADIATION PATTERNS\n")
	b.WriteString("h1\nh2\nh3\n")
	for ti := 0; ti <= 4; ti++ {
		theta := -10.0 + float64(ti)*5
		for pi := 0; pi < 3; pi++ {
			phi := float64(pi) * 180
			gain := 7.5 - 0.3*float64(ti*ti) - 0.1*float64(pi)
			fmt.Fprintf(&b, "%.1f %.1f 0.0 0.0 %.2f 0.0 0.0 LINEAR\n", theta, phi, gain)
		}
	}
	b.WriteString("\n")
	b.WriteString("RADIATED POWER = 1.0 WATTS\n")
	b.WriteString("INPUT POWER = 1.2 WATTS\n")
	return b.String()
}

func testPattern() PatternGeometry {
	return PatternGeometry{ThetaStart: -10, ThetaStep: 5, NTheta: 5, PhiStart: 0, PhiStep: 180, NPhi: 3}
}

func TestParseSingleFrequencyBlock(t *testing.T) {
	out := sampleOutput(14.1, 72.5, 3.2)
	results, err := Parse(out, testPattern(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	fr := results[0]
	if fr.Impedance.Real != 72.5 || fr.Impedance.Imag != 3.2 {
		t.Fatalf("unexpected impedance: %+v", fr.Impedance)
	}
	if fr.SWR50 < 1.0 {
		t.Fatalf("swr_50 must be >= 1.0, got %v", fr.SWR50)
	}
	if fr.EfficiencyPct == nil {
		t.Fatal("expected efficiency to be computed")
	}
}

func TestParseMultipleFrequencyBlocks(t *testing.T) {
	out := sampleOutput(14.0, 70, 0) + sampleOutput(14.1, 72, 2) + sampleOutput(14.2, 75, 5)
	results, err := Parse(out, testPattern(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}

func TestParseDropsIncompleteBlock(t *testing.T) {
	out := "FREQUENCY : 1.410000E+01 MHZ\nnothing useful here\n"
	_, err := Parse(out, testPattern(), false)
	if err == nil {
		t.Fatal("expected 'no results' error for a block with no impedance")
	}
}

func TestParseEmptyOutputIsNoResults(t *testing.T) {
	_, err := Parse("", testPattern(), false)
	if err == nil {
		t.Fatal("expected error for empty output")
	}
}

func TestParseGainGridSentinelForUnpopulatedCells(t *testing.T) {
	out := sampleOutput(14.1, 72, 3)
	results, err := Parse(out, testPattern(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	grid := results[0].Pattern
	if grid == nil {
		t.Fatal("expected a pattern grid")
	}
	if len(grid.GainDBi) != grid.NTheta {
		t.Fatalf("expected %d rows, got %d", grid.NTheta, len(grid.GainDBi))
	}
	for _, row := range grid.GainDBi {
		if len(row) != grid.NPhi {
			t.Fatalf("expected %d columns, got %d", grid.NPhi, len(row))
		}
	}
}

func TestParseCurrentsOptIn(t *testing.T) {
	var b strings.Builder
	b.WriteString("FREQUENCY : 1.410000E+01 MHZ\n")
	b.WriteString("ANTENNA INPUT PARAMETERS\nh1\nh2\n")
	b.WriteString(impedanceRow(72, 3) + "\n")
	b.WriteString("CURRENTS AND LOCATION\nh1\nh2\nh3\n")
	b.WriteString("1 1 0.0 0.0 0.0 0.5 0.01 0.02 0.0224 63.4\n")
	b.WriteString("\n")

	without, err := Parse(b.String(), testPattern(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(without[0].Currents) != 0 {
		t.Fatal("currents should not be collected when wantCurrents=false")
	}

	with, err := Parse(b.String(), testPattern(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(with[0].Currents) != 1 {
		t.Fatalf("expected 1 current row, got %d", len(with[0].Currents))
	}
	c := with[0].Currents[0]
	if c.Magnitude != 0.0224 {
		t.Fatalf("unexpected current magnitude: %v", c.Magnitude)
	}
}
