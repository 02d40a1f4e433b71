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

package lib

import (
	"fmt"
	"math"
	"strings"
)

// FormatImpedance with scaled numbers (magnitude)
func FormatImpedance(z complex128, n int) string {
	if ic := imag(z); math.Abs(ic) > 1e-12 {
		s := '+'
		if ic < 0 {
			s = '-'
			ic = math.Abs(ic)
		}
		return fmt.Sprintf("%s %c j·%s",
			FormatNumber(real(z), n), s, FormatNumber(ic, n),
		)
	} else {
		return FormatNumber(real(z), n)
	}
}

const (
	mags = "fpnum kMGTP" // magnitudes from -15 to 15
)

// FormatNumber with magnitude
func FormatNumber(v float64, n int) string {
	sign := ' '
	if v < 0 {
		sign = '-'
	}
	v = math.Abs(v)
	for i, mag := range mags {
		f := v / math.Pow10(-15+3*i)
		if f < 1000 || i == len(mags)-1 {
			k := (n - 1) - int(math.Log10(f))
			return strings.TrimSpace(fmt.Sprintf("%c%*.*f %c", sign, n, k, f, mag))
		}
	}
	return ""
}
