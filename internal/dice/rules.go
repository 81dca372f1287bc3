package dice

import (
	"fmt"
	"strings"
)

// Pattern fragments shared by the dice rules.
const (
	countPattern   = `(?P<count>[0-9]+)?`
	diePattern     = countPattern + `[dD](?P<faces>[0-9]+)`
	triggerPattern = `(?:(?P<comp>[<>=])?(?P<target>[0-9]+))?`
)

// grammar is the ordered rule cascade. Order is part of the grammar: the
// first rule that matches the whole input wins, so structured dice rules sit
// before the wildcard rules and the wildcard rules are ordered by how loosely
// they bind (sort, min/max, target, parentheses, + and -, * and /, prefix -).
//
// Binary rules capture the left operand greedily, so a chain splits at the
// last occurrence of its operator.
var grammar = []rule{
	newRule("integer", `(?P<value>[0-9]+)`, buildInteger),
	newRule("dice", diePattern, buildDice),
	newRule("keep-high", diePattern+`[kK][hH]?(?P<keep>[0-9]+)`, buildKeepHigh),
	newRule("keep-low", diePattern+`[kK]?[lL](?P<keep>[0-9]+)`, buildKeepLow),
	newRule("dice-x", diePattern+`[xX]`, buildDiceX),
	newRule("fudge", countPattern+`[dD][fF](?:\.(?P<weight>[0-9]+))?`, buildFudge),
	newRule("custom", countPattern+`[dD]\[(?P<faces>-?[0-9]+(?:/-?[0-9]+)+)\]`, buildCustom),
	newRule("compound", diePattern+`!!`+triggerPattern, buildCompound),
	newRule("explode", diePattern+`!`+triggerPattern, buildExplode),
	newRule("explode-add", diePattern+`\^(?P<target>[0-9]+)?`, buildExplodeAdd),
	newRule("sort", `(?P<value>.+)(?P<order>asc|desc)`, buildSort),
	newRule("min", `(?P<left>.+)min(?P<right>.+)`, buildMin),
	newRule("max", `(?P<left>.+)max(?P<right>.+)`, buildMax),
	newRule("target-modifier", diePattern+`\s*(?P<op>[+-])\s*(?P<modifier>[0-9]+)\s*(?P<comp>[<>=])\s*(?P<target>[0-9]+)`, buildTargetModifier),
	newRule("target", `(?P<left>.+)(?P<comp>[<>=])\s*(?P<target>[0-9]+)`, buildTarget),
	newRule("nested", `(?P<left>.*)\((?P<nested>.*)\)(?P<right>.*)`, buildNested),
	newRule("add", `(?P<left>.+)\+(?P<right>.+)`, binary(Add)),
	// The left operand must not end in an operator so "2*-3" falls through to
	// multiply and the prefix rule.
	newRule("subtract", `(?P<left>.*[^-+*/\s])\s*-(?P<right>.+)`, binary(Subtract)),
	newRule("multiply", `(?P<left>.+)\*(?P<right>.+)`, binary(Multiply)),
	newRule("divide", `(?P<left>.+)/(?P<right>.+)`, binary(Divide)),
	newRule("negative", `-(?P<value>.+)`, buildNegative),
}

func buildInteger(c captures) (Expression, error) {
	v, err := c.int("value", 0)
	if err != nil {
		return nil, err
	}
	return Number{Value: v}, nil
}

// dieTerms reads the count and faces groups shared by every dice rule.
func dieTerms(c captures) (faces, n int, err error) {
	if n, err = c.int("count", 1); err != nil {
		return 0, 0, err
	}
	if faces, err = c.int("faces", 0); err != nil {
		return 0, 0, err
	}
	if n < 1 {
		return 0, 0, fmt.Errorf("%w: dice count must be at least 1, got %d", ErrInvalidDice, n)
	}
	if faces < 1 {
		return 0, 0, fmt.Errorf("%w: dice must have at least 1 face, got %d", ErrInvalidDice, faces)
	}
	return faces, n, nil
}

// triggerTerms reads an optional comparison and target, defaulting to "equal
// to the highest face".
func triggerTerms(c captures, faces int) (Comparison, int, error) {
	cmp := EqualTo
	if text := c.group("comp"); text != "" {
		var err error
		if cmp, err = ParseComparison(text); err != nil {
			return 0, 0, err
		}
	}
	target, err := c.int("target", faces)
	if err != nil {
		return 0, 0, err
	}
	return cmp, target, nil
}

func buildDice(c captures) (Expression, error) {
	faces, n, err := dieTerms(c)
	if err != nil {
		return nil, err
	}
	return NDice{Faces: faces, Count: n}, nil
}

func keepTerms(c captures) (faces, n, keep int, err error) {
	if faces, n, err = dieTerms(c); err != nil {
		return 0, 0, 0, err
	}
	if keep, err = c.int("keep", 0); err != nil {
		return 0, 0, 0, err
	}
	if keep < 1 {
		return 0, 0, 0, fmt.Errorf("%w: must keep at least 1 die, got %d", ErrInvalidDice, keep)
	}
	return faces, n, keep, nil
}

func buildKeepHigh(c captures) (Expression, error) {
	faces, n, keep, err := keepTerms(c)
	if err != nil {
		return nil, err
	}
	return KeepDice{Faces: faces, Count: n, Keep: keep}, nil
}

func buildKeepLow(c captures) (Expression, error) {
	faces, n, keep, err := keepTerms(c)
	if err != nil {
		return nil, err
	}
	return KeepLowDice{Faces: faces, Count: n, Keep: keep}, nil
}

func buildDiceX(c captures) (Expression, error) {
	faces, n, err := dieTerms(c)
	if err != nil {
		return nil, err
	}
	return DiceX{Faces: faces, Count: n}, nil
}

func buildFudge(c captures) (Expression, error) {
	n, err := c.int("count", 1)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: dice count must be at least 1, got %d", ErrInvalidDice, n)
	}
	f := NewFudge(n)
	if f.Weight, err = c.int("weight", f.Weight); err != nil {
		return nil, err
	}
	if 2*f.Weight > f.Faces {
		return nil, fmt.Errorf("%w: fudge weight %d is wider than half of %d faces", ErrInvalidDice, f.Weight, f.Faces)
	}
	return f, nil
}

func buildCustom(c captures) (Expression, error) {
	n, err := c.int("count", 1)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: dice count must be at least 1, got %d", ErrInvalidDice, n)
	}
	parts := strings.Split(c.group("faces"), "/")
	faces := make([]int, len(parts))
	for i, part := range parts {
		if faces[i], err = parseInt(part); err != nil {
			return nil, err
		}
	}
	return CustomDice{Count: n, Faces: faces}, nil
}

func buildCompound(c captures) (Expression, error) {
	faces, n, err := dieTerms(c)
	if err != nil {
		return nil, err
	}
	cmp, target, err := triggerTerms(c, faces)
	if err != nil {
		return nil, err
	}
	return CompoundingDice{Faces: faces, Count: n, Comparison: cmp, Target: target}, nil
}

func buildExplode(c captures) (Expression, error) {
	faces, n, err := dieTerms(c)
	if err != nil {
		return nil, err
	}
	cmp, target, err := triggerTerms(c, faces)
	if err != nil {
		return nil, err
	}
	return ExplodingDice{Faces: faces, Count: n, Comparison: cmp, Target: target}, nil
}

func buildExplodeAdd(c captures) (Expression, error) {
	faces, n, err := dieTerms(c)
	if err != nil {
		return nil, err
	}
	cmp, target, err := triggerTerms(c, faces)
	if err != nil {
		return nil, err
	}
	return ExplodingAddDice{Faces: faces, Count: n, Comparison: cmp, Target: target}, nil
}

func buildSort(c captures) (Expression, error) {
	value, err := c.expr("value")
	if err != nil {
		return nil, err
	}
	return Sorted{Value: value, Ascending: c.group("order") == "asc"}, nil
}

func sides(c captures) (left, right Expression, err error) {
	if left, err = c.expr("left"); err != nil {
		return nil, nil, err
	}
	if right, err = c.expr("right"); err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func buildMin(c captures) (Expression, error) {
	left, right, err := sides(c)
	if err != nil {
		return nil, err
	}
	return Min{Left: left, Right: right}, nil
}

func buildMax(c captures) (Expression, error) {
	left, right, err := sides(c)
	if err != nil {
		return nil, err
	}
	return Max{Left: left, Right: right}, nil
}

// buildTargetModifier folds a flat modifier into the target: 2d8+2<6 is 2d8<4.
func buildTargetModifier(c captures) (Expression, error) {
	faces, n, err := dieTerms(c)
	if err != nil {
		return nil, err
	}
	cmp, target, err := triggerTerms(c, faces)
	if err != nil {
		return nil, err
	}
	modifier, err := c.int("modifier", 0)
	if err != nil {
		return nil, err
	}
	if c.group("op") == "+" {
		target, err = subtractExact(target, modifier)
	} else {
		target, err = addExact(target, modifier)
	}
	if err != nil {
		return nil, err
	}
	return TargetPool{Left: NDice{Faces: faces, Count: n}, Comparison: cmp, Target: target}, nil
}

func buildTarget(c captures) (Expression, error) {
	left, err := c.expr("left")
	if err != nil {
		return nil, err
	}
	cmp, err := ParseComparison(c.group("comp"))
	if err != nil {
		return nil, err
	}
	target, err := c.int("target", 0)
	if err != nil {
		return nil, err
	}
	return TargetPool{Left: left, Comparison: cmp, Target: target}, nil
}

// buildNested multiplies the parenthesised expression by whatever sits
// directly to its left and right: 10(2) is 10 * 2 and (2)4 is 2 * 4.
func buildNested(c captures) (Expression, error) {
	inner, err := c.expr("nested")
	if err != nil {
		return nil, err
	}
	result := inner
	switch left := strings.TrimSpace(c.group("left")); left {
	case "":
	case "-":
		result = Negative{Value: inner}
	default:
		l, err := c.parse(left)
		if err != nil {
			return nil, err
		}
		result = Math{Left: l, Operator: Multiply, Right: inner}
	}
	if right := strings.TrimSpace(c.group("right")); right != "" {
		r, err := c.parse(right)
		if err != nil {
			return nil, err
		}
		result = Math{Left: result, Operator: Multiply, Right: r}
	}
	return result, nil
}

func binary(op Operator) func(c captures) (Expression, error) {
	return func(c captures) (Expression, error) {
		left, right, err := sides(c)
		if err != nil {
			return nil, err
		}
		return Math{Left: left, Operator: op, Right: right}, nil
	}
}

func buildNegative(c captures) (Expression, error) {
	value, err := c.expr("value")
	if err != nil {
		return nil, err
	}
	return Negative{Value: value}, nil
}
