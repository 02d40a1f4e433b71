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

// Package sandbox runs one NEC-2 solver invocation per call, isolated
// in its own working directory and bounded by a hard wall-clock
// deadline. Every exit path — success, timeout, non-zero exit, or a
// panic recovered from the caller — cleans up the working directory.
package sandbox

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Kind classifies why a solver invocation failed.
type Kind int

const (
	Timeout Kind = iota
	NonZeroExit
	NoOutputFile
	GeometryError
	SegmentError
	Panic
)

func (k Kind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case NonZeroExit:
		return "non_zero_exit"
	case NoOutputFile:
		return "no_output_file"
	case GeometryError:
		return "geometry_error"
	case SegmentError:
		return "segment_error"
	case Panic:
		return "panic"
	default:
		return "unknown"
	}
}

// Error is a typed sandbox failure.
type Error struct {
	Kind       Kind
	ExitCode   int
	StderrTail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case NonZeroExit:
		return fmt.Sprintf("sandbox: solver exited %d: %s", e.ExitCode, e.StderrTail)
	default:
		return fmt.Sprintf("sandbox: %s", e.Kind)
	}
}

// Config carries the sandbox's operating parameters; immutable after
// startup (config.Settings feeds these fields).
type Config struct {
	WorkRoot     string
	SolverBinary string
	Timeout      time.Duration
}

// Runner executes one solver invocation against a deck and returns its
// raw stdout/output-file text. Production code uses Run; tests
// substitute a fake that returns a canned transcript.
type Runner interface {
	Run(ctx context.Context, cfg Config, deck string) (string, error)
}

// Live is the production Runner, invoking the real solver binary.
type Live struct {
	Log zerolog.Logger
}

const stderrTailBytes = 500

// newRunID generates a short random run id with at least 48 bits of
// entropy, used to name the isolated working directory.
func newRunID() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Run spawns one isolated solver invocation. No environment variable,
// command argument, or filename is derived from user-controlled text:
// the deck is written verbatim to a fixed filename inside a workdir
// named after a locally generated random id.
func (l Live) Run(ctx context.Context, cfg Config, deck string) (out string, err error) {
	runID, err := newRunID()
	if err != nil {
		return "", fmt.Errorf("sandbox: generating run id: %w", err)
	}
	workdir := filepath.Join(cfg.WorkRoot, runID)
	if err := os.MkdirAll(workdir, 0o700); err != nil {
		return "", fmt.Errorf("sandbox: creating workdir: %w", err)
	}
	defer l.cleanup(workdir)
	defer func() {
		if r := recover(); r != nil {
			l.Log.Error().Interface("panic", r).Str("run_id", runID).Msg("sandbox: recovered panic")
			err = &Error{Kind: Panic}
		}
	}()

	inPath := filepath.Join(workdir, "input.nec")
	outPath := filepath.Join(workdir, "input.out")
	if err := os.WriteFile(inPath, []byte(deck), 0o600); err != nil {
		return "", fmt.Errorf("sandbox: writing deck: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, cfg.SolverBinary, "-i", inPath, "-o", outPath)
	cmd.Dir = workdir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return "", &Error{Kind: Timeout}
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		code := -1
		if errors.As(runErr, &exitErr) {
			code = exitErr.ExitCode()
		}
		return "", &Error{Kind: NonZeroExit, ExitCode: code, StderrTail: tail(stderr.Bytes(), stderrTailBytes)}
	}

	raw, readErr := os.ReadFile(outPath)
	if readErr != nil {
		return "", &Error{Kind: NoOutputFile}
	}
	text := sanitizeASCII(raw)

	if strings.Contains(text, "GEOMETRY DATA ERROR") {
		return "", &Error{Kind: GeometryError}
	}
	if strings.Contains(text, "SEGMENT DATA ERROR") {
		return "", &Error{Kind: SegmentError}
	}
	return text, nil
}

// cleanup removes the output file, input file, then the workdir
// itself, logging but never raising on failure.
func (l Live) cleanup(workdir string) {
	_ = os.Remove(filepath.Join(workdir, "input.out"))
	_ = os.Remove(filepath.Join(workdir, "input.nec"))
	if err := os.Remove(workdir); err != nil {
		l.Log.Warn().Err(err).Str("workdir", workdir).Msg("sandbox: workdir cleanup failed")
	}
}

// tail returns the last n bytes of b, decoded with replacement on
// invalid UTF-8, matching the "last 500 bytes of stderr" contract.
func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return sanitizeASCII(b)
}

// sanitizeASCII decodes raw solver output tolerant of invalid bytes.
func sanitizeASCII(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}
