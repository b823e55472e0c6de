// Package session holds the per-user state machines behind the mock exam and
// mock interview flows. Each machine guards its state with a mutex that is
// released around completion calls; a generation counter detects results
// that arrive after the user has moved on.
package session

import (
	"time"

	"github.com/pavelanni/careerprep/internal/apperr"
)

var (
	// ErrStale is returned when an in-flight result was superseded by a
	// newer action; the machine state is left untouched.
	ErrStale = apperr.New(apperr.KindConflict, "result superseded by a newer action")
	// ErrUnavailable is returned for actions not allowed in the current stage.
	ErrUnavailable = apperr.New(apperr.KindConflict, "action not available in the current state")
)

type options struct {
	now func() time.Time
}

// Option configures a machine.
type Option func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
