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

package store

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// AdmissionParams parameterizes the sliding-window rate limit and the
// concurrency counter. Zero values are replaced by the spec defaults.
type AdmissionParams struct {
	HourlyLimit     int
	WindowSeconds   int
	ConcurrentLimit int
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Tag        string // "rate_limit" | "concurrent_limit" | ""
	RetryAfter int    // seconds
}

// Admission implements the per-client sliding-window request counter
// and concurrency counter described in spec.md §4.4. When the
// underlying store is unreachable, every check degrades to "allowed":
// availability is preferred to enforcement.
type Admission struct {
	KV  KV
	Log zerolog.Logger
}

const concurrentExpiry = 120 * time.Second

// Check runs the admission sequence for addr and, if allowed, reserves
// a rate-window slot and increments the concurrency counter. The
// caller must call Release exactly once per successful Check,
// regardless of how the request pipeline subsequently exits.
func (a *Admission) Check(ctx context.Context, addr string, p AdmissionParams, now time.Time) Decision {
	if p.HourlyLimit == 0 {
		p.HourlyLimit = 30
	}
	if p.WindowSeconds == 0 {
		p.WindowSeconds = 3600
	}
	if p.ConcurrentLimit == 0 {
		p.ConcurrentLimit = 5
	}
	rateKey := "rate:" + addr
	concKey := "concurrent:" + addr
	nowSec := float64(now.Unix())
	windowStart := nowSec - float64(p.WindowSeconds)

	if err := a.KV.ZRemRangeByScore(ctx, rateKey, 0, windowStart); err != nil {
		return degraded(a, err)
	}
	count, err := a.KV.ZCard(ctx, rateKey)
	if err != nil {
		return degraded(a, err)
	}
	concRaw, err := a.KV.Get(ctx, concKey)
	if err != nil {
		return degraded(a, err)
	}
	conc := int64(0)
	if concRaw != "" {
		if v, perr := strconv.ParseInt(concRaw, 10, 64); perr == nil {
			conc = v
		}
	}

	if int(count) >= p.HourlyLimit {
		retryAfter := a.retryAfterFromOldest(ctx, rateKey, p.WindowSeconds, now)
		return Decision{Allowed: false, Tag: "rate_limit", RetryAfter: retryAfter}
	}
	if int(conc) >= p.ConcurrentLimit {
		return Decision{Allowed: false, Tag: "concurrent_limit", RetryAfter: 5}
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	if err := a.KV.ZAdd(ctx, rateKey, nowSec, member); err != nil {
		return degraded(a, err)
	}
	_ = a.KV.Expire(ctx, rateKey, time.Duration(p.WindowSeconds+60)*time.Second)
	if _, err := a.KV.Incr(ctx, concKey); err != nil {
		return degraded(a, err)
	}
	_ = a.KV.Expire(ctx, concKey, concurrentExpiry)

	return Decision{Allowed: true}
}

// retryAfterFromOldest computes seconds until the oldest entry in the
// rate window expires, floored at 1.
func (a *Admission) retryAfterFromOldest(ctx context.Context, rateKey string, windowSeconds int, now time.Time) int {
	oldest, err := a.KV.ZRangeWithMinScore(ctx, rateKey, 1)
	if err != nil || len(oldest) == 0 {
		return 1
	}
	ts, err := strconv.ParseFloat(oldest[0], 64)
	if err != nil {
		return 1
	}
	remaining := int(ts + float64(windowSeconds) - float64(now.Unix()))
	if remaining < 1 {
		remaining = 1
	}
	return remaining
}

// Release decrements the concurrency counter, clamping at zero. It
// must be called on every exit path of the request pipeline.
func (a *Admission) Release(ctx context.Context, addr string) {
	concKey := "concurrent:" + addr
	n, err := a.KV.Decr(ctx, concKey)
	if err != nil {
		a.Log.Debug().Err(err).Str("addr", addr).Msg("admission: release failed")
		return
	}
	if n < 0 {
		if err := a.KV.Set(ctx, concKey, []byte("0"), concurrentExpiry); err != nil {
			a.Log.Debug().Err(err).Str("addr", addr).Msg("admission: zero-floor reset failed")
		}
	}
}

func degraded(a *Admission, err error) Decision {
	a.Log.Warn().Err(err).Msg("admission: store error, degrading to allow")
	return Decision{Allowed: true}
}
