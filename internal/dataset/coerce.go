package dataset

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Float coerces cell text to a float64. Whitespace is trimmed first so
// values like " 29.85" survive sloppy exports.
func Float(v string) (float64, error) {
	return cast.ToFloat64E(strings.TrimSpace(v))
}

// FloatOrZero coerces cell text to a float64, treating null-ish or
// unparseable values as 0.
func FloatOrZero(v string) float64 {
	f, err := Float(v)
	if err != nil {
		return 0
	}
	return f
}

// Int coerces cell text to an int, failing on fractional values.
// The check goes through the float form because cast truncates
// "12.5" to 12 without an error.
func Int(v string) (int, error) {
	f, err := Float(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("unable to cast %q to int: fractional value", v)
	}
	return int(f), nil
}
