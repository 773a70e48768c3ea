// Package diag carries structured diagnostic logging (window/chunk timing,
// fast-path hit/miss counters, mmap lifecycle) separate from the
// user-facing per-line error stream mandated by spec §4.4/§4.9, which must
// stay plain, unstructured stderr text since its exact format is part of
// jq's observable contract. Built on github.com/rs/zerolog, as used by the
// bgpfix-bgpfix example for the same "structured, low-overhead, opt-in"
// shape of logging.
package diag

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Logger is the process-wide diagnostic logger. It is silent (Nop) unless
// Enable is called, so the common case pays nothing beyond a level check.
var Logger zerolog.Logger = zerolog.Nop()

// Enable turns on debug-level diagnostic logging to w (normally os.Stderr),
// invoked by cmd/fastjq only behind an explicit debug flag/env var — never
// on by default, since every byte on stderr outside the documented per-line
// error format is, strictly, an observable-behavior risk. When w is a
// terminal, output goes through zerolog's ConsoleWriter for a human-readable,
// colorized line; redirected/piped output (the common case under FASTJQ_DEBUG
// in CI logs) stays structured JSON.
func Enable(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	out := w
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	Logger = zerolog.New(out).With().Timestamp().Logger().Level(zerolog.DebugLevel)
}

func WindowOpened(offset, size int) {
	Logger.Debug().Int("offset", offset).Int("size", size).Msg("window opened")
}

func WindowReleased(offset, size int) {
	Logger.Debug().Int("offset", offset).Int("size", size).Msg("window released")
}

func ChunkDone(chunk, lines int) {
	Logger.Debug().Int("chunk", chunk).Int("lines", lines).Msg("chunk done")
}

func FastPathHit(name string) {
	Logger.Debug().Str("fastpath", name).Msg("fast path hit")
}

func FastPathMiss(reason string) {
	Logger.Debug().Str("reason", reason).Msg("fast path declined")
}
