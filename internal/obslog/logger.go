// Package obslog builds the structured logger shared by both binaries and
// threaded down to every actor as an explicit dependency.
package obslog

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the concrete logger type every actor and the supervisor depend
// on. It is constructed in a cmd/ main, one per component, and passed
// down — never stored in a package-level variable.
type Logger = logiface.Logger[*stumpy.Event]

// DefaultLevel is the level both binaries' main functions pass to New
// absent an explicit override.
const DefaultLevel = logiface.LevelInformational

// New builds a Logger that writes newline-delimited JSON to w, tagged with
// component (e.g. "supervisor", "battery", "operator"). A nil w defaults to
// os.Stderr, matching where the original programs' fprintf diagnostics
// went.
func New(component string, w io.Writer, level logiface.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(),
		stumpy.L.WithWriter(w),
		stumpy.L.WithLevel(level),
	)
	return logger.Clone().Str("component", component).Logger()
}
