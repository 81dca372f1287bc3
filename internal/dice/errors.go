package dice

import "errors"

// Errors returned by parsing and evaluation. Callers compare with errors.Is;
// the wrapped message always names the offending input or token.
var (
	// ErrParse means no grammar rule matched the input.
	ErrParse = errors.New("dice: parse error")
	// ErrInvalidComparison means a comparison token was not one of <, >, =.
	ErrInvalidComparison = errors.New("dice: invalid comparison")
	// ErrInvalidDice means a dice term had a zero count, zero faces or zero keep.
	ErrInvalidDice = errors.New("dice: invalid dice")
	// ErrTooComplex means the input exceeded the parser's length or depth limit,
	// or its evaluation rolled more dice than the Evaluator allows.
	ErrTooComplex = errors.New("dice: expression too complex")
	// ErrOverflow means a value left the signed 32-bit range.
	ErrOverflow = errors.New("dice: arithmetic overflow")
	// ErrDivisionByZero means the right operand of a division evaluated to zero.
	ErrDivisionByZero = errors.New("dice: division by zero")
	// ErrExplosionLimit means a single die exploded more than MaxExplosions times.
	ErrExplosionLimit = errors.New("dice: explosion limit exceeded")
	// ErrCompoundLimit means a compounding roll re-rolled more than MaxCompounds batches.
	ErrCompoundLimit = errors.New("dice: compound limit exceeded")
	// ErrRollOutOfRange means a random source returned a value outside [1, faces].
	ErrRollOutOfRange = errors.New("dice: roll out of range")
	// ErrScriptExhausted means a scripted source ran out of values.
	ErrScriptExhausted = errors.New("dice: scripted rolls exhausted")
)
