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

	"github.com/redis/go-redis/v9"
)

// RedisKV adapts a *redis.Client to the KV interface, the production
// backend for store.Cache and store.Admission.
type RedisKV struct {
	Client *redis.Client
}

// NewRedisKV dials a Redis instance described by url (a
// redis://host:port/db style connection string), lazily: no network
// round-trip happens until the first command.
func NewRedisKV(url string) (*RedisKV, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisKV{Client: redis.NewClient(opt)}, nil
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, key string) error {
	return r.Client.Del(ctx, key).Err()
}

func (r *RedisKV) Incr(ctx context.Context, key string) (int64, error) {
	return r.Client.Incr(ctx, key).Result()
}

func (r *RedisKV) Decr(ctx context.Context, key string) (int64, error) {
	return r.Client.Decr(ctx, key).Result()
}

func (r *RedisKV) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.Client.Expire(ctx, key, ttl).Err()
}

func (r *RedisKV) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return r.Client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (r *RedisKV) ZCard(ctx context.Context, key string) (int64, error) {
	return r.Client.ZCard(ctx, key).Result()
}

func (r *RedisKV) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	return r.Client.ZRemRangeByScore(ctx, key, formatScore(min), formatScore(max)).Err()
}

// ZRangeWithMinScore returns the lowest-scoring members' scores (the
// oldest timestamps in the rate window), ascending, capped at limit.
func (r *RedisKV) ZRangeWithMinScore(ctx context.Context, key string, limit int64) ([]string, error) {
	zs, err := r.Client.ZRangeWithScores(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(zs))
	for i, z := range zs {
		out[i] = strconv.FormatFloat(z.Score, 'f', -1, 64)
	}
	return out, nil
}

func (r *RedisKV) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
