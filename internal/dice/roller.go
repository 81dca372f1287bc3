package dice

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Roll parses text and evaluates it with roll, returning only the total.
//
// Postcondition: Returns the root value, or the first parse or evaluation error.
func Roll(text string, roll RollFunc) (int, error) {
	tree, err := DetailedRoll(text, roll)
	if err != nil {
		return 0, err
	}
	return tree.Value, nil
}

// DetailedRoll parses text and evaluates it with roll, returning the whole
// result tree.
func DetailedRoll(text string, roll RollFunc) (*ResultTree, error) {
	expr, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return NewEvaluator(roll).Evaluate(expr)
}

// Debug renders tree as an indented trace, one node per line.
func Debug(tree *ResultTree) string {
	return tree.String()
}

// MustParse parses expr and panics on error. Useful for package-level values.
//
// Precondition: expr must be a valid dice expression.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed for expression " + expr + ": " + err.Error())
	}
	return e
}

// Record is the audited outcome of one Roller call.
type Record struct {
	ID         uuid.UUID
	Expression string
	Value      int
	Tree       *ResultTree
}

// Leaves returns the leaf values of the record's tree.
func (r Record) Leaves() []int {
	return r.Tree.Leaves()
}

// Roller parses and evaluates expressions, logging every roll.
// All rolls are logged at debug level with a roll ID, the expression, its
// value and the leaf dice. Failed rolls are logged at info level.
type Roller struct {
	parser *Parser
	eval   *Evaluator
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that parses with p, rolls with roll and
// logs each roll to logger. A nil p uses the default Parser; a nil roll uses
// a crypto/rand source. opts configure the Roller's Evaluator.
//
// Precondition: logger must be non-nil.
func NewLoggedRoller(p *Parser, roll RollFunc, logger *zap.Logger, opts ...EvaluatorOption) *Roller {
	if p == nil {
		p = defaultParser
	}
	return &Roller{parser: p, eval: NewEvaluator(roll, opts...), logger: logger}
}

// Valid reports whether text is accepted by the Roller's parser.
func (r *Roller) Valid(text string) bool {
	return r.parser.Valid(text)
}

// Roll parses and evaluates text.
//
// Postcondition: result logged; returns a Record with a fresh ID or an error.
func (r *Roller) Roll(text string) (Record, error) {
	id := uuid.New()
	expr, err := r.parser.Parse(text)
	if err == nil {
		var tree *ResultTree
		if tree, err = r.eval.Evaluate(expr); err == nil {
			rec := Record{ID: id, Expression: text, Value: tree.Value, Tree: tree}
			r.logger.Debug("dice roll",
				zap.String("roll_id", id.String()),
				zap.String("expression", text),
				zap.Int("value", tree.Value),
				zap.Ints("dice", tree.Leaves()),
			)
			return rec, nil
		}
	}
	r.logger.Info("dice roll failed",
		zap.String("roll_id", id.String()),
		zap.String("expression", text),
		zap.Error(err),
	)
	return Record{}, err
}
