package macro_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/diceroll/internal/dice"
	"github.com/cory-johannsen/diceroll/internal/macro"
)

const sampleMacros = `
macros:
  - name: attack
    notation: d20+5
    description: Longsword attack
  - name: damage
    notation: 1d8+3
  - name: round
    notation: "@attack + @damage"
  - name: stats
    notation: 4d6k3
`

func TestLoadFromBytes(t *testing.T) {
	s, err := macro.LoadFromBytes([]byte(sampleMacros))
	require.NoError(t, err)

	assert.Equal(t, 4, s.Len())
	assert.Equal(t, []string{"attack", "damage", "round", "stats"}, s.Names())

	m, ok := s.Get("attack")
	require.True(t, ok)
	assert.Equal(t, "d20+5", m.Notation)
	assert.Equal(t, "Longsword attack", m.Description)
}

func TestLoadFromBytes_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":         "macros: [",
		"bad name":         "macros:\n  - name: 1st\n    notation: d6\n",
		"empty notation":   "macros:\n  - name: a\n    notation: ' '\n",
		"duplicate":        "macros:\n  - name: a\n    notation: d6\n  - name: a\n    notation: d8\n",
		"invalid dice":     "macros:\n  - name: a\n    notation: 4w6\n",
		"unknown ref":      "macros:\n  - name: a\n    notation: '@b+1'\n",
		"self reference":   "macros:\n  - name: a\n    notation: '@a+1'\n",
		"mutual recursion": "macros:\n  - name: a\n    notation: '@b'\n  - name: b\n    notation: '@a'\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := macro.LoadFromBytes([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestExpand(t *testing.T) {
	s, err := macro.LoadFromBytes([]byte(sampleMacros))
	require.NoError(t, err)

	cases := map[string]string{
		"@attack":        "d20+5",
		"@round":         "d20+5 + 1d8+3",
		"2d6+@damage":    "2d6+1d8+3",
		"@stats desc":    "4d6k3 desc",
		"3d6 no macros":  "3d6 no macros",
		"@attack min 10": "d20+5 min 10",
	}
	for input, want := range cases {
		t.Run(input, func(t *testing.T) {
			got, err := s.Expand(input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err = s.Expand("@fireball")
	assert.ErrorIs(t, err, macro.ErrUnknownMacro)
	assert.Contains(t, err.Error(), "@fireball")
}

func TestExpand_RollsThroughDice(t *testing.T) {
	s, err := macro.LoadFromBytes([]byte(sampleMacros))
	require.NoError(t, err)

	text, err := s.Expand("@round")
	require.NoError(t, err)
	v, err := dice.Roll(text, dice.MaxRoll)
	require.NoError(t, err)
	assert.Equal(t, 36, v)
}

func TestExpand_DepthLimit(t *testing.T) {
	var yaml string
	for i := 0; i <= macro.MaxExpansionDepth; i++ {
		yaml += fmt.Sprintf("  - name: m%d\n    notation: '@m%d'\n", i, i+1)
	}
	yaml += fmt.Sprintf("  - name: m%d\n    notation: d6\n", macro.MaxExpansionDepth+1)

	_, err := macro.LoadFromBytes([]byte("macros:\n" + yaml))
	assert.ErrorIs(t, err, macro.ErrExpansionDepth)
}

func TestNilSet(t *testing.T) {
	var s *macro.Set
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Names())
	got, err := s.Expand("2d6")
	require.NoError(t, err)
	assert.Equal(t, "2d6", got)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macros.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleMacros), 0644))

	s, err := macro.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())

	_, err = macro.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

// TestExpand_NoReferences_Property verifies text without '@' is returned unchanged.
func TestExpand_NoReferences_Property(t *testing.T) {
	s, err := macro.LoadFromBytes([]byte(sampleMacros))
	require.NoError(t, err)
	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.StringMatching(`[0-9dDkKlL+\-*/() ]{0,20}`).Draw(rt, "text")
		got, err := s.Expand(text)
		require.NoError(rt, err)
		assert.Equal(rt, text, got)
	})
}
