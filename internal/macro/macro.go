// Package macro loads named dice macros from YAML and expands "@name"
// references in roll text before it reaches the parser.
package macro

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/diceroll/internal/dice"
)

// MaxExpansionDepth bounds how many times macros may expand into other macros.
const MaxExpansionDepth = 8

var (
	// ErrUnknownMacro means an "@name" reference has no definition.
	ErrUnknownMacro = errors.New("macro: unknown macro")
	// ErrExpansionDepth means expansion did not settle within MaxExpansionDepth rounds.
	ErrExpansionDepth = errors.New("macro: expansion too deep")
)

var (
	namePattern      = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
	referencePattern = regexp.MustCompile(`@([A-Za-z][A-Za-z0-9_-]*)`)
)

// Macro is a named dice expression.
type Macro struct {
	Name        string
	Notation    string
	Description string
}

// yamlMacroFile is the top-level YAML structure for macro files.
type yamlMacroFile struct {
	Macros []yamlMacro `yaml:"macros"`
}

type yamlMacro struct {
	Name        string `yaml:"name"`
	Notation    string `yaml:"notation"`
	Description string `yaml:"description"`
}

// Set is an immutable collection of macros. The zero value is empty.
type Set struct {
	macros map[string]Macro
}

// LoadFromFile reads and validates a macro YAML file.
//
// Postcondition: Returns a validated Set or a non-nil error.
func LoadFromFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading macro file %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates macros from YAML bytes. Every macro must
// have a unique valid name and must expand to valid dice notation.
//
// Postcondition: Returns a validated Set or a non-nil error.
func LoadFromBytes(data []byte) (*Set, error) {
	var file yamlMacroFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing macro YAML: %w", err)
	}

	s := &Set{macros: make(map[string]Macro, len(file.Macros))}
	for i, ym := range file.Macros {
		if !namePattern.MatchString(ym.Name) {
			return nil, fmt.Errorf("macro %d: invalid name %q", i, ym.Name)
		}
		if strings.TrimSpace(ym.Notation) == "" {
			return nil, fmt.Errorf("macro %q: notation must not be empty", ym.Name)
		}
		if _, dup := s.macros[ym.Name]; dup {
			return nil, fmt.Errorf("macro %q: defined more than once", ym.Name)
		}
		s.macros[ym.Name] = Macro{Name: ym.Name, Notation: ym.Notation, Description: ym.Description}
	}

	for _, name := range s.Names() {
		expanded, err := s.Expand("@" + name)
		if err != nil {
			return nil, fmt.Errorf("macro %q: %w", name, err)
		}
		if !dice.Valid(expanded) {
			return nil, fmt.Errorf("macro %q: %q is not valid dice notation", name, expanded)
		}
	}
	return s, nil
}

// Len returns the number of macros.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.macros)
}

// Names returns the macro names in sorted order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.macros))
	for name := range s.macros {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the macro called name.
func (s *Set) Get(name string) (Macro, bool) {
	if s == nil {
		return Macro{}, false
	}
	m, ok := s.macros[name]
	return m, ok
}

// Expand replaces every "@name" reference in text with the macro's notation,
// repeating until no references remain. Substitution is textual: "@a+@b"
// becomes "<a>+<b>" and the parser sees the combined text.
//
// Postcondition: Returns text without references, or an error wrapping
// ErrUnknownMacro or ErrExpansionDepth.
func (s *Set) Expand(text string) (string, error) {
	for depth := 0; referencePattern.MatchString(text); depth++ {
		if depth == MaxExpansionDepth {
			return "", fmt.Errorf("%w: %q still has references after %d expansions", ErrExpansionDepth, text, MaxExpansionDepth)
		}
		var missing string
		text = referencePattern.ReplaceAllStringFunc(text, func(ref string) string {
			m, ok := s.Get(ref[1:])
			if !ok {
				if missing == "" {
					missing = ref[1:]
				}
				return ref
			}
			return m.Notation
		})
		if missing != "" {
			return "", fmt.Errorf("%w: @%s", ErrUnknownMacro, missing)
		}
	}
	return text, nil
}
