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

// antsimd is the NEC-2 simulation/optimization broker's server entry
// point: it wires config, Redis-backed cache/admission and the API
// router together, then serves HTTP until terminated.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/bfix/antsim/api"
	"github.com/bfix/antsim/config"
	"github.com/bfix/antsim/sandbox"
	"github.com/bfix/antsim/store"
)

// buildVersion is overridden at link time via -ldflags.
var buildVersion = "dev"

func newLogger(level string) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log := zerolog.New(w).With().Timestamp().Logger()
	switch level {
	case "debug":
		log = log.Level(zerolog.DebugLevel)
	case "warn":
		log = log.Level(zerolog.WarnLevel)
	case "error":
		log = log.Level(zerolog.ErrorLevel)
	default:
		log = log.Level(zerolog.InfoLevel)
	}
	return log
}

func main() {
	var listen string
	fs := flag.NewFlagSet("antsimd", flag.ContinueOnError)
	fs.StringVar(&listen, "l", "0.0.0.0:8080", "HTTP listen address")
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	settings := config.Load()
	log := newLogger(settings.LogLevel)

	kv, err := store.NewRedisKV(settings.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct redis client")
	}

	srv := &api.Server{
		Settings:  settings,
		Runner:    sandbox.Live{Log: log},
		Cache:     &store.Cache{KV: kv, Log: log},
		Admission: &store.Admission{KV: kv, Log: log},
		KV:        kv,
		Log:       log,
		Version:   buildVersion,
	}

	httpSrv := &http.Server{
		Addr:              listen,
		Handler:           srv.NewMux(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      settings.SimTimeout + 30*time.Second,
		IdleTimeout:       300 * time.Second,
		ReadHeaderTimeout: 20 * time.Second,
	}

	go func() {
		log.Info().Str("addr", listen).Str("environment", settings.Environment).Msg("starting antsimd")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http listener stopped")
		}
	}()

	sigCh := make(chan os.Signal, 5)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range sigCh {
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			log.Info().Str("signal", sig.String()).Msg("terminating antsimd")
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("graceful shutdown failed")
			}
			return
		case syscall.SIGHUP:
			log.Info().Msg("SIGHUP received, ignoring")
		}
	}
}
