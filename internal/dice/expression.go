package dice

import (
	"strconv"
	"strings"
)

// Expression is a node of a parsed dice expression tree.
//
// The set of implementations is closed; Evaluator switches over every one of
// them. Nodes are immutable once built and Description is derived purely from
// their fields.
type Expression interface {
	// Description renders the node for debug output. It is not guaranteed to
	// parse back to the same tree.
	Description() string

	expression()
}

// Operator is the arithmetic operation of a Math node.
type Operator int

const (
	Add Operator = iota
	Subtract
	Multiply
	Divide
)

// String returns the operator symbol.
func (o Operator) String() string {
	switch o {
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "/"
	default:
		return "+"
	}
}

// Number is an integer literal.
type Number struct {
	Value int
}

// NDice rolls Count dice of Faces sides and sums them.
type NDice struct {
	Faces int
	Count int
}

// DiceX rolls the same NDice twice and multiplies the two sums (the "d6x" idiom).
type DiceX struct {
	Faces int
	Count int
}

// FudgeDice rolls Count three-outcome dice. Weight is the width of both the
// +1 and the -1 bands on a die of Faces sides.
type FudgeDice struct {
	Count  int
	Faces  int
	Weight int
}

// CustomDice rolls Count dice whose faces carry the given values.
type CustomDice struct {
	Count int
	Faces []int
}

// KeepDice rolls Count dice and sums the Keep highest.
type KeepDice struct {
	Faces int
	Count int
	Keep  int
}

// KeepLowDice rolls Count dice and sums the Keep lowest.
type KeepLowDice struct {
	Faces int
	Count int
	Keep  int
}

// ExplodingDice rolls Count dice; every roll matching Comparison/Target adds
// another roll as a separate result.
type ExplodingDice struct {
	Faces      int
	Count      int
	Comparison Comparison
	Target     int
}

// ExplodingAddDice is ExplodingDice with each die's extra rolls folded into
// that die's value.
type ExplodingAddDice struct {
	Faces      int
	Count      int
	Comparison Comparison
	Target     int
}

// CompoundingDice rolls Count dice; every matching die causes the whole batch
// to be rolled again.
type CompoundingDice struct {
	Faces      int
	Count      int
	Comparison Comparison
	Target     int
}

// TargetPool evaluates Left and counts its immediate sub-results matching
// Comparison/Target.
type TargetPool struct {
	Left       Expression
	Comparison Comparison
	Target     int
}

// Math applies Operator to Left and Right.
type Math struct {
	Left     Expression
	Operator Operator
	Right    Expression
}

// Negative negates every value of the evaluated sub-tree.
type Negative struct {
	Value Expression
}

// Sorted orders the children of every level of the evaluated sub-tree.
type Sorted struct {
	Value     Expression
	Ascending bool
}

// Min keeps whichever side evaluates lower.
type Min struct {
	Left  Expression
	Right Expression
}

// Max keeps whichever side evaluates higher.
type Max struct {
	Left  Expression
	Right Expression
}

// NewExploding returns ExplodingDice that explode on the highest face.
func NewExploding(faces, count int) ExplodingDice {
	return ExplodingDice{Faces: faces, Count: count, Comparison: EqualTo, Target: faces}
}

// NewExplodingAdd returns ExplodingAddDice that explode on the highest face.
func NewExplodingAdd(faces, count int) ExplodingAddDice {
	return ExplodingAddDice{Faces: faces, Count: count, Comparison: EqualTo, Target: faces}
}

// NewCompounding returns CompoundingDice that compound on the highest face.
func NewCompounding(faces, count int) CompoundingDice {
	return CompoundingDice{Faces: faces, Count: count, Comparison: EqualTo, Target: faces}
}

// NewFudge returns FudgeDice on a six-sided die with the default weight.
func NewFudge(count int) FudgeDice {
	return FudgeDice{Count: count, Faces: 6, Weight: 6 / 3}
}

func (Number) expression()           {}
func (NDice) expression()            {}
func (DiceX) expression()            {}
func (FudgeDice) expression()        {}
func (CustomDice) expression()       {}
func (KeepDice) expression()         {}
func (KeepLowDice) expression()      {}
func (ExplodingDice) expression()    {}
func (ExplodingAddDice) expression() {}
func (CompoundingDice) expression()  {}
func (TargetPool) expression()       {}
func (Math) expression()             {}
func (Negative) expression()         {}
func (Sorted) expression()           {}
func (Min) expression()              {}
func (Max) expression()              {}

func countPrefix(count int) string {
	if count == 1 {
		return ""
	}
	return strconv.Itoa(count)
}

// triggerSuffix omits the default trigger (equal to the highest face).
func triggerSuffix(faces int, c Comparison, target int) string {
	if c == EqualTo && target == faces {
		return ""
	}
	return c.String() + strconv.Itoa(target)
}

func (n Number) Description() string { return strconv.Itoa(n.Value) }

func (n NDice) Description() string {
	return countPrefix(n.Count) + "d" + strconv.Itoa(n.Faces)
}

func (d DiceX) Description() string {
	return countPrefix(d.Count) + "d" + strconv.Itoa(d.Faces) + "X"
}

func (f FudgeDice) Description() string {
	extra := ""
	if f.Weight != f.Faces/3 {
		extra = "." + strconv.Itoa(f.Weight)
	}
	return strconv.Itoa(f.Count) + "dF" + extra
}

func (c CustomDice) Description() string {
	faces := make([]string, len(c.Faces))
	for i, f := range c.Faces {
		faces[i] = strconv.Itoa(f)
	}
	return countPrefix(c.Count) + "d[" + strings.Join(faces, "/") + "]"
}

func (k KeepDice) Description() string {
	return strconv.Itoa(k.Count) + "d" + strconv.Itoa(k.Faces) + "k" + strconv.Itoa(k.Keep)
}

func (k KeepLowDice) Description() string {
	return strconv.Itoa(k.Count) + "d" + strconv.Itoa(k.Faces) + "l" + strconv.Itoa(k.Keep)
}

func (e ExplodingDice) Description() string {
	return strconv.Itoa(e.Count) + "d" + strconv.Itoa(e.Faces) + "!" + triggerSuffix(e.Faces, e.Comparison, e.Target)
}

func (e ExplodingAddDice) Description() string {
	return strconv.Itoa(e.Count) + "d" + strconv.Itoa(e.Faces) + "^" + triggerSuffix(e.Faces, e.Comparison, e.Target)
}

func (c CompoundingDice) Description() string {
	return strconv.Itoa(c.Count) + "d" + strconv.Itoa(c.Faces) + "!!" + triggerSuffix(c.Faces, c.Comparison, c.Target)
}

func (t TargetPool) Description() string {
	return t.Left.Description() + t.Comparison.String() + strconv.Itoa(t.Target)
}

func (m Math) Description() string {
	return m.Left.Description() + " " + m.Operator.String() + " " + m.Right.Description()
}

func (n Negative) Description() string { return "-" + n.Value.Description() }

func (s Sorted) Description() string {
	if s.Ascending {
		return s.Value.Description() + " asc"
	}
	return s.Value.Description() + " desc"
}

func (m Min) Description() string {
	return "min(" + m.Left.Description() + "," + m.Right.Description() + ")"
}

func (m Max) Description() string {
	return "max(" + m.Left.Description() + "," + m.Right.Description() + ")"
}
