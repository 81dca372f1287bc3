package dice

import "fmt"

// Comparison is the predicate kind used by target pools and by exploding and
// compounding dice.
type Comparison int

const (
	// EqualTo matches values equal to the target ("=").
	EqualTo Comparison = iota
	// AtLeast matches values greater than or equal to the target (">").
	AtLeast
	// AtMost matches values less than or equal to the target ("<").
	AtMost
)

// ParseComparison maps notation text to a Comparison.
//
// Postcondition: Returns a Comparison, or an error wrapping ErrInvalidComparison
// that names text verbatim.
func ParseComparison(text string) (Comparison, error) {
	switch text {
	case "=":
		return EqualTo, nil
	case ">":
		return AtLeast, nil
	case "<":
		return AtMost, nil
	default:
		return 0, fmt.Errorf("%w: could not parse comparison operator from '%s'", ErrInvalidComparison, text)
	}
}

// Matches reports whether value satisfies the comparison against target.
func (c Comparison) Matches(value, target int) bool {
	switch c {
	case AtLeast:
		return value >= target
	case AtMost:
		return value <= target
	default:
		return value == target
	}
}

// String returns the notation symbol for c.
func (c Comparison) String() string {
	switch c {
	case AtLeast:
		return ">"
	case AtMost:
		return "<"
	default:
		return "="
	}
}
