package dice

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultMaxDepth bounds how many rules may be applied recursively while
	// parsing one expression.
	DefaultMaxDepth = 64
	// DefaultMaxLength bounds the input length in bytes.
	DefaultMaxLength = 1024
)

// Parser turns dice notation into an Expression by trying an ordered list of
// whole-string rules. The first rule whose pattern matches the entire trimmed
// input builds the node, recursively parsing its captured sub-strings.
//
// A Parser is immutable after construction and safe for concurrent use.
type Parser struct {
	rules     []rule
	maxDepth  int
	maxLength int
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxDepth sets the recursion limit. n <= 0 restores DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n <= 0 {
			n = DefaultMaxDepth
		}
		p.maxDepth = n
	}
}

// WithMaxLength sets the input length limit in bytes. n <= 0 restores
// DefaultMaxLength.
func WithMaxLength(n int) Option {
	return func(p *Parser) {
		if n <= 0 {
			n = DefaultMaxLength
		}
		p.maxLength = n
	}
}

// NewParser returns a Parser over the standard grammar.
//
// Postcondition: Returns a non-nil Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		rules:     grammar,
		maxDepth:  DefaultMaxDepth,
		maxLength: DefaultMaxLength,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// Parse parses text with the default Parser.
func Parse(text string) (Expression, error) {
	return defaultParser.Parse(text)
}

// Valid reports whether text matches a top-level rule of the default Parser.
func Valid(text string) bool {
	return defaultParser.Valid(text)
}

// Parse converts text into an Expression.
//
// Postcondition: Returns a non-nil Expression, or an error wrapping ErrParse,
// ErrInvalidDice, ErrInvalidComparison, ErrOverflow or ErrTooComplex.
func (p *Parser) Parse(text string) (Expression, error) {
	if len(text) > p.maxLength {
		return nil, fmt.Errorf("%w: input is %d bytes, limit is %d", ErrTooComplex, len(text), p.maxLength)
	}
	return p.parse(text, 0)
}

// Valid reports whether some rule's pattern matches the whole trimmed text.
// A true result does not guarantee that the captured sub-expressions parse.
func (p *Parser) Valid(text string) bool {
	if len(text) > p.maxLength {
		return false
	}
	trimmed := strings.TrimSpace(text)
	for _, r := range p.rules {
		if r.pattern.MatchString(trimmed) {
			return true
		}
	}
	return false
}

func (p *Parser) parse(text string, depth int) (Expression, error) {
	if depth > p.maxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d at '%s'", ErrTooComplex, p.maxDepth, text)
	}
	trimmed := strings.TrimSpace(text)
	for _, r := range p.rules {
		m := r.pattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		return r.build(captures{
			names:  r.pattern.SubexpNames(),
			values: m,
			parse: func(s string) (Expression, error) {
				return p.parse(s, depth+1)
			},
		})
	}
	return nil, fmt.Errorf("%w: failed to parse expression '%s'", ErrParse, text)
}

// rule pairs an anchored pattern with the builder for its production.
type rule struct {
	name    string
	pattern *regexp.Regexp
	build   func(c captures) (Expression, error)
}

func newRule(name, pattern string, build func(c captures) (Expression, error)) rule {
	return rule{
		name:    name,
		pattern: regexp.MustCompile(`^(?:` + pattern + `)$`),
		build:   build,
	}
}

// captures exposes a rule match's named groups to its builder.
type captures struct {
	names  []string
	values []string
	parse  func(string) (Expression, error)
}

// group returns the named capture, or "" when it did not participate.
func (c captures) group(name string) string {
	for i, n := range c.names {
		if n == name {
			return c.values[i]
		}
	}
	return ""
}

// int parses the named capture, returning def when it is empty.
func (c captures) int(name string, def int) (int, error) {
	s := c.group(name)
	if s == "" {
		return def, nil
	}
	return parseInt(s)
}

// expr recursively parses the named capture.
func (c captures) expr(name string) (Expression, error) {
	return c.parse(c.group(name))
}

func parseInt(s string) (int, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: literal '%s' is out of range", ErrOverflow, s)
		}
		return 0, fmt.Errorf("%w: failed to parse integer '%s'", ErrParse, s)
	}
	return int(v), nil
}
