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
	"bytes"
	"compress/zlib"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"time"

	"github.com/rs/zerolog"
)

const cacheTTL = 3600 * time.Second

// Cache memoizes simulation results by content hash of the request.
// Every operation is best-effort: any error is logged and treated as
// a miss (Get) or silently dropped (Set) — availability beats
// correctness of the memoization.
type Cache struct {
	KV  KV
	Log zerolog.Logger
}

// CanonicalKey computes "sim:" + hex(sha256(canonical-JSON(v))), where
// canonical-JSON has sorted keys and no whitespace. v is first
// marshaled normally, then round-tripped through a generic value so
// that nested map keys come out sorted by encoding/json's native
// behavior for map[string]interface{}.
func CanonicalKey(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	canon, err := json.Marshal(generic)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return "sim:" + hex.EncodeToString(sum[:]), nil
}

// Get retrieves and decompresses a cached result. A miss, a
// KV error, or a corrupt payload all return false — the cache
// never fails the caller's request.
func (c *Cache) Get(ctx context.Context, key string, out any) bool {
	raw, err := c.KV.Get(ctx, key)
	if err != nil {
		c.Log.Debug().Err(err).Str("key", key).Msg("cache: get failed, treating as miss")
		return false
	}
	if raw == "" {
		return false
	}
	zr, err := zlib.NewReader(bytes.NewReader([]byte(raw)))
	if err != nil {
		c.Log.Warn().Err(err).Str("key", key).Msg("cache: corrupt payload")
		return false
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		c.Log.Warn().Err(err).Str("key", key).Msg("cache: decompress failed")
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.Log.Warn().Err(err).Str("key", key).Msg("cache: decode failed")
		return false
	}
	return true
}

// Set compresses and stores a result with a fixed TTL. Errors are
// logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.Log.Warn().Err(err).Msg("cache: encode failed")
		return
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, 6)
	if err != nil {
		c.Log.Warn().Err(err).Msg("cache: compressor init failed")
		return
	}
	if _, err := zw.Write(data); err != nil {
		c.Log.Warn().Err(err).Msg("cache: compress failed")
		return
	}
	if err := zw.Close(); err != nil {
		c.Log.Warn().Err(err).Msg("cache: compress flush failed")
		return
	}
	if err := c.KV.Set(ctx, key, buf.Bytes(), cacheTTL); err != nil {
		c.Log.Debug().Err(err).Str("key", key).Msg("cache: set failed")
	}
}
