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

// Package store implements content-addressed result caching and
// request admission (sliding-window rate limiting plus a concurrency
// counter) against a narrow KV interface satisfied by the RedisKV
// adapter in production and an in-memory fake in tests.
package store

import (
	"context"
	"time"
)

// KV is the narrow subset of Redis commands the cache and admission
// layers need. RedisKV adapts go-redis's *redis.Client to it.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZCard(ctx context.Context, key string) (int64, error)
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error
	ZRangeWithMinScore(ctx context.Context, key string, limit int64) ([]string, error)
	Ping(ctx context.Context) error
}

// ErrUnreachable is an error value a KV implementation may return when
// the underlying store cannot be reached. Cache and Admission do not
// test for it: they enter degraded mode on any KV error.
var ErrUnreachable = errUnreachable{}

type errUnreachable struct{}

func (errUnreachable) Error() string { return "store: unreachable" }
