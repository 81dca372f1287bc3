// Package dice parses tabletop dice notation such as "3d6+2", "4d6k3" or
// "(4d6!>5)>5" into an expression tree and evaluates it against an injected
// random source, producing an explainable result tree.
//
// Parsing is an ordered cascade of whole-string rules; the first rule that
// matches the entire input builds the node. Evaluation uses checked 32-bit
// arithmetic and fails rather than wrapping on overflow.
package dice
