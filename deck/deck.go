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

// Package deck serializes a validated model.SimulationRequest into the
// NEC-2 card-deck text format. Build is pure: the same request always
// produces the byte-identical deck.
package deck

import (
	"fmt"
	"strings"

	"github.com/bfix/antsim/model"
)

// Build renders req as a complete NEC-2 deck, ending in a single
// trailing newline. req is assumed already validated; Build never
// fails.
func Build(req *model.SimulationRequest) string {
	var b strings.Builder

	comment := req.Comment
	if comment == "" {
		comment = "antsim generated deck"
	}
	fmt.Fprintf(&b, "CM %s\n", comment)
	b.WriteString("CE\n")

	for _, w := range req.Wires {
		fmt.Fprintf(&b, "GW %d %d %.6f %.6f %.6f %.6f %.6f %.6f %.6f\n",
			w.Tag, w.Segments,
			w.Start[0], w.Start[1], w.Start[2],
			w.End[0], w.End[1], w.End[2],
			w.Radius,
		)
	}

	for _, a := range req.Arcs {
		fmt.Fprintf(&b, "GA %d %d %.6f %.1f %.1f %.6f\n",
			a.Tag, a.Segments, a.ArcRadius, a.StartAngle, a.EndAngle, a.WireRadius,
		)
	}

	for _, g := range req.Transforms {
		fmt.Fprintf(&b, "GM %d %d %.4f %.4f %.4f %.6f %.6f %.6f %d\n",
			g.TagIncrement, g.NewStructures,
			g.RotX, g.RotY, g.RotZ,
			g.TransX, g.TransY, g.TransZ,
			g.StartTag,
		)
	}

	if req.Symmetry != nil {
		fmt.Fprintf(&b, "GR %d %d\n", req.Symmetry.TagIncrement, req.Symmetry.NCopies)
	}

	if req.Ground.Type == model.GroundFreeSpace {
		b.WriteString("GE -1\n")
	} else {
		b.WriteString("GE 0\n")
	}

	switch req.Ground.Type {
	case model.GroundFreeSpace:
		b.WriteString("GN -1\n")
	case model.GroundPerfect:
		b.WriteString("GN 1 0 0 0 0 0\n")
	default:
		epsR, sigma := req.Ground.NECParams()
		fmt.Fprintf(&b, "GN 2 0 0 0 %.6g %.6g\n", epsR, sigma)
	}

	for _, ld := range req.Loads {
		fmt.Fprintf(&b, "LD %d %d %d %d %.6g %.6g %.6g\n",
			ld.Type.NECCode(), ld.WireTag, ld.SegStart, ld.SegEnd, ld.P1, ld.P2, ld.P3,
		)
	}

	for _, tl := range req.TransmissionLines {
		fmt.Fprintf(&b, "TL %d %d %d %d %.4f %.4f %.6g %.6g %.6g %.6g\n",
			tl.Tag1, tl.Seg1, tl.Tag2, tl.Seg2, tl.Z0, tl.Length,
			tl.Y1R, tl.Y1I, tl.Y2R, tl.Y2I,
		)
	}

	if req.ComputeCurrents {
		b.WriteString("PT 0 0 0 0\n")
	} else {
		b.WriteString("PT -1 0 0 0\n")
	}

	for _, ex := range req.Excitations {
		fmt.Fprintf(&b, "EX 0 %d %d 0 %.4f %.4f\n", ex.WireTag, ex.Segment, ex.VReal, ex.VImag)
	}

	fmt.Fprintf(&b, "FR 0 %d 0 0 %.6f %.6f\n", req.Frequency.Steps, req.Frequency.StartMHz, req.Frequency.StepMHz())

	p := req.Pattern
	fmt.Fprintf(&b, "RP 0 %d %d 1000 %.1f %.1f %.1f %.1f\n",
		p.NTheta(), p.NPhi(), p.ThetaStart, p.PhiStart, p.ThetaStep, p.PhiStep,
	)

	b.WriteString("EN\n")
	return b.String()
}
