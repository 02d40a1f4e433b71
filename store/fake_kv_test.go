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
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"
)

// fakeKV is an in-memory KV used by cache and admission tests. It can
// be made to simulate an unreachable store via failAlways.
type fakeKV struct {
	mu      sync.Mutex
	strings map[string]string
	zsets   map[string]map[string]float64

	failAlways bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{
		strings: make(map[string]string),
		zsets:   make(map[string]map[string]float64),
	}
}

var errFake = errors.New("fake kv: unreachable")

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	if f.failAlways {
		return "", errFake
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.strings[key], nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.failAlways {
		return errFake
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strings[key] = string(value)
	return nil
}

func (f *fakeKV) Del(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.strings, key)
	return nil
}

func (f *fakeKV) Incr(ctx context.Context, key string) (int64, error) {
	if f.failAlways {
		return 0, errFake
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, _ := strconv.ParseInt(f.strings[key], 10, 64)
	v++
	f.strings[key] = strconv.FormatInt(v, 10)
	return v, nil
}

func (f *fakeKV) Decr(ctx context.Context, key string) (int64, error) {
	if f.failAlways {
		return 0, errFake
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, _ := strconv.ParseInt(f.strings[key], 10, 64)
	v--
	f.strings[key] = strconv.FormatInt(v, 10)
	return v, nil
}

func (f *fakeKV) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return nil
}

func (f *fakeKV) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if f.failAlways {
		return errFake
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.zsets[key] == nil {
		f.zsets[key] = make(map[string]float64)
	}
	f.zsets[key][member] = score
	return nil
}

func (f *fakeKV) ZCard(ctx context.Context, key string) (int64, error) {
	if f.failAlways {
		return 0, errFake
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.zsets[key])), nil
}

func (f *fakeKV) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	if f.failAlways {
		return errFake
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	z := f.zsets[key]
	for m, s := range z {
		if s >= min && s <= max {
			delete(z, m)
		}
	}
	return nil
}

func (f *fakeKV) ZRangeWithMinScore(ctx context.Context, key string, limit int64) ([]string, error) {
	if f.failAlways {
		return nil, errFake
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	z := f.zsets[key]
	type ms struct {
		member string
		score  float64
	}
	all := make([]ms, 0, len(z))
	for m, s := range z {
		all = append(all, ms{m, s})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].score < all[j].score })
	if int64(len(all)) > limit {
		all = all[:limit]
	}
	out := make([]string, len(all))
	for i, e := range all {
		out[i] = strconv.FormatFloat(e.score, 'f', -1, 64)
	}
	return out, nil
}

func (f *fakeKV) Ping(ctx context.Context) error {
	if f.failAlways {
		return errFake
	}
	return nil
}
