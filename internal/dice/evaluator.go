package dice

import (
	"fmt"
	"sort"
)

const (
	// MaxExplosions is the number of extra rolls a single exploding die may
	// trigger before evaluation fails with ErrExplosionLimit.
	MaxExplosions = 50
	// MaxCompounds is the number of batch re-rolls one compounding term may
	// trigger before evaluation fails with ErrCompoundLimit.
	MaxCompounds = 100
	// DefaultMaxRolls bounds the dice drawn by one evaluation.
	DefaultMaxRolls = 100_000
)

// Evaluator rolls an Expression tree with an injected RollFunc and returns
// its ResultTree.
//
// An Evaluator holds no per-roll state and is safe for concurrent use when
// its RollFunc is.
type Evaluator struct {
	roll     RollFunc
	maxRolls int
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithMaxRolls sets how many dice one evaluation may draw before failing with
// ErrTooComplex. n <= 0 restores DefaultMaxRolls.
func WithMaxRolls(n int) EvaluatorOption {
	return func(e *Evaluator) {
		if n <= 0 {
			n = DefaultMaxRolls
		}
		e.maxRolls = n
	}
}

// NewEvaluator returns an Evaluator that draws die outcomes from roll. A nil
// roll uses a crypto/rand backed source.
//
// Postcondition: Returns a non-nil Evaluator.
func NewEvaluator(roll RollFunc, opts ...EvaluatorOption) *Evaluator {
	if roll == nil {
		roll = FromSource(NewCryptoSource())
	}
	e := &Evaluator{roll: roll, maxRolls: DefaultMaxRolls}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// evaluation carries the roll budget of a single Evaluate call.
type evaluation struct {
	*Evaluator
	rolled int
}

// Evaluate walks expr and returns the result tree.
//
// Precondition: expr must be one of the Expression types of this package;
// anything else panics.
// Postcondition: Returns a tree whose root value is the total, or an error
// wrapping ErrOverflow, ErrDivisionByZero, ErrExplosionLimit,
// ErrCompoundLimit, ErrTooComplex, ErrRollOutOfRange or the RollFunc's own
// error.
func (e *Evaluator) Evaluate(expr Expression) (*ResultTree, error) {
	return (&evaluation{Evaluator: e}).eval(expr)
}

func (e *evaluation) eval(expr Expression) (*ResultTree, error) {
	switch x := expr.(type) {
	case Number:
		return leaf(x, x.Value), nil
	case NDice:
		return e.nDice(x)
	case DiceX:
		return e.diceX(x)
	case FudgeDice:
		return e.fudge(x)
	case CustomDice:
		return e.custom(x)
	case KeepDice:
		return e.keep(x, x.Faces, x.Count, x.Keep, true)
	case KeepLowDice:
		return e.keep(x, x.Faces, x.Count, x.Keep, false)
	case ExplodingDice:
		return e.explode(x)
	case ExplodingAddDice:
		return e.explodeAdd(x)
	case CompoundingDice:
		return e.compounding(x)
	case TargetPool:
		return e.targetPool(x)
	case Math:
		return e.math(x)
	case Negative:
		return e.negative(x)
	case Sorted:
		return e.sorted(x)
	case Min:
		return e.pick(x, x.Left, x.Right, false)
	case Max:
		return e.pick(x, x.Left, x.Right, true)
	default:
		panic(fmt.Sprintf("dice: Evaluate called with unknown expression type %T", expr))
	}
}

func (e *evaluation) rollDie(faces int) (int, error) {
	if e.rolled == e.maxRolls {
		return 0, fmt.Errorf("%w: more than %d dice rolled", ErrTooComplex, e.maxRolls)
	}
	e.rolled++
	v, err := e.roll(faces)
	if err != nil {
		return 0, fmt.Errorf("rolling d%d: %w", faces, err)
	}
	return v, nil
}

// preallocated bounds the up-front capacity reserved for a dice count.
const preallocated = 1024

func (e *evaluation) rollN(faces, n int) ([]int, error) {
	values := make([]int, 0, min(n, preallocated))
	for range n {
		v, err := e.rollDie(faces)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// sumLeaves turns rolled values into leaves and totals them.
func sumLeaves(expr, leafExpr Expression, values []int) (*ResultTree, error) {
	total, err := sumExact(values)
	if err != nil {
		return nil, err
	}
	results := make([]*ResultTree, len(values))
	for i, v := range values {
		results[i] = leaf(leafExpr, v)
	}
	return &ResultTree{Expression: expr, Value: total, Results: results}, nil
}

func (e *evaluation) nDice(x NDice) (*ResultTree, error) {
	results := make([]*ResultTree, 0, min(x.Count, preallocated))
	total := 0
	for range x.Count {
		v, err := e.rollDie(x.Faces)
		if err != nil {
			return nil, err
		}
		if total, err = addExact(total, v); err != nil {
			return nil, err
		}
		results = append(results, leaf(NDice{Faces: x.Faces, Count: 1}, v))
	}
	return &ResultTree{Expression: x, Value: total, Results: results}, nil
}

func (e *evaluation) diceX(x DiceX) (*ResultTree, error) {
	spec := NDice{Faces: x.Faces, Count: x.Count}
	left, err := e.nDice(spec)
	if err != nil {
		return nil, err
	}
	right, err := e.nDice(spec)
	if err != nil {
		return nil, err
	}
	product, err := multiplyExact(left.Value, right.Value)
	if err != nil {
		return nil, err
	}
	return &ResultTree{Expression: x, Value: product, Results: []*ResultTree{left, right}}, nil
}

// fudge maps the top Weight faces to +1, the Weight faces below them to -1
// and everything else to 0.
func (e *evaluation) fudge(x FudgeDice) (*ResultTree, error) {
	values := make([]int, 0, min(x.Count, preallocated))
	for range x.Count {
		r, err := e.rollDie(x.Faces)
		if err != nil {
			return nil, err
		}
		v := 0
		switch {
		case r > x.Faces-x.Weight:
			v = 1
		case r > x.Faces-2*x.Weight:
			v = -1
		}
		values = append(values, v)
	}
	return sumLeaves(x, FudgeDice{Count: 1, Faces: x.Faces, Weight: x.Weight}, values)
}

func (e *evaluation) custom(x CustomDice) (*ResultTree, error) {
	values := make([]int, 0, min(x.Count, preallocated))
	for range x.Count {
		r, err := e.rollDie(len(x.Faces))
		if err != nil {
			return nil, err
		}
		if r < 1 || r > len(x.Faces) {
			return nil, fmt.Errorf("%w: rolled %d on %s", ErrRollOutOfRange, r, x.Description())
		}
		values = append(values, x.Faces[r-1])
	}
	return sumLeaves(x, CustomDice{Count: 1, Faces: x.Faces}, values)
}

// keep rolls n dice, keeps every die as a child, and totals the keep
// highest (or lowest) of them.
func (e *evaluation) keep(expr Expression, faces, n, keep int, highest bool) (*ResultTree, error) {
	values, err := e.rollN(faces, n)
	if err != nil {
		return nil, err
	}
	ordered := append([]int(nil), values...)
	if highest {
		sort.Sort(sort.Reverse(sort.IntSlice(ordered)))
	} else {
		sort.Ints(ordered)
	}
	if keep < len(ordered) {
		ordered = ordered[:keep]
	}
	total, err := sumExact(ordered)
	if err != nil {
		return nil, err
	}
	results := make([]*ResultTree, len(values))
	for i, v := range values {
		results[i] = leaf(NDice{Faces: faces, Count: 1}, v)
	}
	return &ResultTree{Expression: expr, Value: total, Results: results}, nil
}

// explosion rolls one initial die and every re-roll it triggers, in roll order.
func (e *evaluation) explosion(faces int, c Comparison, target int, desc string) ([]int, error) {
	v, err := e.rollDie(faces)
	if err != nil {
		return nil, err
	}
	rolls := []int{v}
	for extra := 0; c.Matches(v, target); extra++ {
		if extra == MaxExplosions {
			return nil, fmt.Errorf("%w: %s exploded more than %d times on one die; "+
				"the random source may not be random, the trigger may match every face, or the streak is absurdly lucky",
				ErrExplosionLimit, desc, MaxExplosions)
		}
		if v, err = e.rollDie(faces); err != nil {
			return nil, err
		}
		rolls = append(rolls, v)
	}
	return rolls, nil
}

func (e *evaluation) explode(x ExplodingDice) (*ResultTree, error) {
	var values []int
	for i := 0; i < x.Count; i++ {
		rolls, err := e.explosion(x.Faces, x.Comparison, x.Target, x.Description())
		if err != nil {
			return nil, err
		}
		values = append(values, rolls...)
	}
	return sumLeaves(x, NDice{Faces: x.Faces, Count: 1}, values)
}

func (e *evaluation) explodeAdd(x ExplodingAddDice) (*ResultTree, error) {
	values := make([]int, 0, min(x.Count, preallocated))
	for range x.Count {
		rolls, err := e.explosion(x.Faces, x.Comparison, x.Target, x.Description())
		if err != nil {
			return nil, err
		}
		v, err := sumExact(rolls)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	single := ExplodingAddDice{Faces: x.Faces, Count: 1, Comparison: x.Comparison, Target: x.Target}
	return sumLeaves(x, single, values)
}

func (e *evaluation) compounding(x CompoundingDice) (*ResultTree, error) {
	batches := 0
	values, err := e.compoundBatch(x, &batches)
	if err != nil {
		return nil, err
	}
	return sumLeaves(x, NDice{Faces: x.Faces, Count: 1}, values)
}

// compoundBatch rolls Count dice, then a whole new batch for each die that
// matches, depth first. batches counts re-rolled batches across the term.
func (e *evaluation) compoundBatch(x CompoundingDice, batches *int) ([]int, error) {
	dice, err := e.rollN(x.Faces, x.Count)
	if err != nil {
		return nil, err
	}
	values := append([]int(nil), dice...)
	for _, v := range dice {
		if !x.Comparison.Matches(v, x.Target) {
			continue
		}
		if *batches == MaxCompounds {
			return nil, fmt.Errorf("%w: %s compounded more than %d times; "+
				"the random source may not be random, the trigger may match every face, or the streak is absurdly lucky",
				ErrCompoundLimit, x.Description(), MaxCompounds)
		}
		*batches++
		more, err := e.compoundBatch(x, batches)
		if err != nil {
			return nil, err
		}
		values = append(values, more...)
	}
	return values, nil
}

// targetPool counts the immediate sub-results of Left that match, not the
// deeper leaves.
func (e *evaluation) targetPool(x TargetPool) (*ResultTree, error) {
	left, err := e.eval(x.Left)
	if err != nil {
		return nil, err
	}
	hits := 0
	for _, r := range left.Results {
		if x.Comparison.Matches(r.Value, x.Target) {
			hits++
		}
	}
	return &ResultTree{Expression: x, Value: hits, Results: []*ResultTree{left}}, nil
}

func (e *evaluation) math(x Math) (*ResultTree, error) {
	left, err := e.eval(x.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(x.Right)
	if err != nil {
		return nil, err
	}
	var v int
	switch x.Operator {
	case Add:
		v, err = addExact(left.Value, right.Value)
	case Subtract:
		v, err = subtractExact(left.Value, right.Value)
	case Multiply:
		v, err = multiplyExact(left.Value, right.Value)
	case Divide:
		v, err = floorDiv(left.Value, right.Value)
	default:
		panic(fmt.Sprintf("dice: unknown operator %d", x.Operator))
	}
	if err != nil {
		return nil, err
	}
	return &ResultTree{Expression: x, Value: v, Results: []*ResultTree{left, right}}, nil
}

func (e *evaluation) negative(x Negative) (*ResultTree, error) {
	inner, err := e.eval(x.Value)
	if err != nil {
		return nil, err
	}
	neg, err := negateTree(inner)
	if err != nil {
		return nil, err
	}
	return &ResultTree{Expression: x, Value: neg.Value, Results: neg.Results}, nil
}

// negateTree negates the value of every node, children included.
func negateTree(r *ResultTree) (*ResultTree, error) {
	v, err := negateExact(r.Value)
	if err != nil {
		return nil, err
	}
	var results []*ResultTree
	if len(r.Results) > 0 {
		results = make([]*ResultTree, len(r.Results))
		for i, child := range r.Results {
			if results[i], err = negateTree(child); err != nil {
				return nil, err
			}
		}
	}
	return &ResultTree{Expression: r.Expression, Value: v, Results: results}, nil
}

func (e *evaluation) sorted(x Sorted) (*ResultTree, error) {
	inner, err := e.eval(x.Value)
	if err != nil {
		return nil, err
	}
	ordered := sortTree(inner, x.Ascending)
	return &ResultTree{Expression: x, Value: ordered.Value, Results: ordered.Results}, nil
}

// sortTree orders the children of every level by value.
func sortTree(r *ResultTree, ascending bool) *ResultTree {
	if len(r.Results) == 0 {
		return &ResultTree{Expression: r.Expression, Value: r.Value}
	}
	results := make([]*ResultTree, len(r.Results))
	for i, child := range r.Results {
		results[i] = sortTree(child, ascending)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if ascending {
			return results[i].Value < results[j].Value
		}
		return results[i].Value > results[j].Value
	})
	return &ResultTree{Expression: r.Expression, Value: r.Value, Results: results}
}

// pick evaluates both sides and keeps the chosen side's whole sub-tree. Ties
// keep the left side for min and the right side for max.
func (e *evaluation) pick(expr, l, r Expression, highest bool) (*ResultTree, error) {
	left, err := e.eval(l)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(r)
	if err != nil {
		return nil, err
	}
	chosen := left
	if (left.Value > right.Value) != highest {
		chosen = right
	}
	return &ResultTree{Expression: expr, Value: chosen.Value, Results: []*ResultTree{chosen}}, nil
}
