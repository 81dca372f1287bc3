package dice

import (
	"strconv"
	"strings"
)

// ResultTree is the explainable trace of one evaluation: a node's expression,
// its value, and the child results that produced it (empty for leaves).
//
// Invariant: each node is owned by exactly one parent; trees are never shared.
type ResultTree struct {
	Expression Expression
	Value      int
	Results    []*ResultTree
}

func leaf(expr Expression, value int) *ResultTree {
	return &ResultTree{Expression: expr, Value: value}
}

// Leaves returns the values of every leaf in pre-order. A tree without
// children yields its own value.
func (r *ResultTree) Leaves() []int {
	if len(r.Results) == 0 {
		return []int{r.Value}
	}
	var out []int
	for _, child := range r.Results {
		out = append(out, child.Leaves()...)
	}
	return out
}

// String renders the tree one node per line, pre-order, as
// "<indent><description> = <value>", indenting each level by "--".
func (r *ResultTree) String() string {
	var b strings.Builder
	r.write(&b, "")
	return b.String()
}

func (r *ResultTree) write(b *strings.Builder, prefix string) {
	b.WriteString(prefix)
	b.WriteString(r.Expression.Description())
	b.WriteString(" = ")
	b.WriteString(strconv.Itoa(r.Value))
	b.WriteByte('\n')
	for _, child := range r.Results {
		child.write(b, prefix+"--")
	}
}
