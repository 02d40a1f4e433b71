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

// Package config reads process settings from the environment once at
// startup. There is no third-party env-binding library anywhere in the
// corpus this service was grown from, so this follows the teacher's
// lib.Config/Cfg shape (a single struct read at process start, held
// immutable thereafter) but sources its fields from os.Getenv instead
// of a JSON file, per the external-interface contract.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings is the immutable process-wide configuration snapshot,
// held on api.Server and read by the handlers rather than a global.
type Settings struct {
	Environment   string
	AllowedOrigins []string
	RedisURL      string
	LogLevel      string

	MaxConcurrentSims int
	SimTimeout        time.Duration
	NECWorkdir        string
	SolverBinary      string

	RateLimitEnabled        bool
	RateLimitPerHour        int
	RateLimitWindowSeconds  int
	MaxConcurrentPerIP      int
}

// Load reads Settings from the environment, applying the defaults
// spec'd in §6/§9. Every field is optional.
func Load() *Settings {
	s := &Settings{
		Environment:       getEnv("ENVIRONMENT", "production"),
		AllowedOrigins:    splitCSV(getEnv("ALLOWED_ORIGINS", "*")),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		MaxConcurrentSims: getEnvInt("MAX_CONCURRENT_SIMS", 10),
		SimTimeout:        time.Duration(getEnvInt("SIM_TIMEOUT_SECONDS", 180)) * time.Second,
		NECWorkdir:        getEnv("NEC_WORKDIR", "/tmp/antsim"),
		SolverBinary:      getEnv("SOLVER_BINARY", "nec2c"),

		RateLimitEnabled:       getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitPerHour:       getEnvInt("RATE_LIMIT_PER_HOUR", 30),
		RateLimitWindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 3600),
		MaxConcurrentPerIP:     getEnvInt("MAX_CONCURRENT_PER_IP", 5),
	}
	return s
}

// IsDev reports whether the service is running in a development
// environment. This widens CORS/docs exposure only — it never bypasses
// rate limiting (spec.md §4.4 makes no such exception).
func (s *Settings) IsDev() bool {
	return s.Environment == "development" || s.Environment == "dev"
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
