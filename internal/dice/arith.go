package dice

import (
	"fmt"
	"math"
)

// Values are confined to the signed 32-bit range on every platform.
const (
	MaxValue = math.MaxInt32
	MinValue = math.MinInt32
)

func checkRange(v int64, op string, a, b int) (int, error) {
	if v > MaxValue || v < MinValue {
		return 0, fmt.Errorf("%w: %d %s %d", ErrOverflow, a, op, b)
	}
	return int(v), nil
}

func addExact(a, b int) (int, error) {
	return checkRange(int64(a)+int64(b), "+", a, b)
}

func subtractExact(a, b int) (int, error) {
	return checkRange(int64(a)-int64(b), "-", a, b)
}

func multiplyExact(a, b int) (int, error) {
	return checkRange(int64(a)*int64(b), "*", a, b)
}

func negateExact(a int) (int, error) {
	return checkRange(-int64(a), "*", a, -1)
}

// floorDiv rounds the quotient towards negative infinity.
func floorDiv(a, b int) (int, error) {
	if b == 0 {
		return 0, fmt.Errorf("%w: %d / %d", ErrDivisionByZero, a, b)
	}
	q := int64(a) / int64(b)
	if (int64(a)%int64(b) != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return checkRange(q, "/", a, b)
}

func sumExact(values []int) (int, error) {
	total := 0
	for _, v := range values {
		var err error
		if total, err = addExact(total, v); err != nil {
			return 0, err
		}
	}
	return total, nil
}
