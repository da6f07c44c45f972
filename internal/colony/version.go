package colony

import (
	"errors"
	"math"
)

// Version is a generation counter supporting a deterministic successor. The
// successor can fail when the counter is bounded and exhausted. Int exposes
// the counter's ordinal for organism tags and diagnostics.
type Version[V any] interface {
	Next() (V, error)
	Int() int
}

// ErrGenerationOverflow marks a generation counter with no successor.
var ErrGenerationOverflow = errors.New("generation counter exhausted")

// Generation is the default integer version. Its successor fails at the
// platform's integer bound.
type Generation int

func (g Generation) Next() (Generation, error) {
	if g == math.MaxInt {
		return g, ErrGenerationOverflow
	}
	return g + 1, nil
}

func (g Generation) Int() int {
	return int(g)
}
