package dice_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cory-johannsen/diceroll/internal/dice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParse_Trees(t *testing.T) {
	cases := []struct {
		input string
		want  dice.Expression
	}{
		{input: "42", want: dice.Number{Value: 42}},
		{input: " 2d6 ", want: dice.NDice{Faces: 6, Count: 2}},
		{input: "D20", want: dice.NDice{Faces: 20, Count: 1}},
		{input: "4d6k3", want: dice.KeepDice{Faces: 6, Count: 4, Keep: 3}},
		{input: "4d6l1", want: dice.KeepLowDice{Faces: 6, Count: 4, Keep: 1}},
		{input: "2d6X", want: dice.DiceX{Faces: 6, Count: 2}},
		{input: "dF", want: dice.NewFudge(1)},
		{input: "4dF.1", want: dice.FudgeDice{Count: 4, Faces: 6, Weight: 1}},
		{input: "d[1/2/3]", want: dice.CustomDice{Count: 1, Faces: []int{1, 2, 3}}},
		{input: "4d6!", want: dice.NewExploding(6, 4)},
		{input: "4d6!>5", want: dice.ExplodingDice{Faces: 6, Count: 4, Comparison: dice.AtLeast, Target: 5}},
		{input: "4d6!3", want: dice.ExplodingDice{Faces: 6, Count: 4, Comparison: dice.EqualTo, Target: 3}},
		{input: "4d6!!", want: dice.NewCompounding(6, 4)},
		{input: "2d6!!<1", want: dice.CompoundingDice{Faces: 6, Count: 2, Comparison: dice.AtMost, Target: 1}},
		{input: "d6^", want: dice.NewExplodingAdd(6, 1)},
		{input: "4d8>6", want: dice.TargetPool{Left: dice.NDice{Faces: 8, Count: 4}, Comparison: dice.AtLeast, Target: 6}},
		{input: "-3", want: dice.Negative{Value: dice.Number{Value: 3}}},
		{input: "2d6 asc", want: dice.Sorted{Value: dice.NDice{Faces: 6, Count: 2}, Ascending: true}},
		{input: "3 min 4", want: dice.Min{Left: dice.Number{Value: 3}, Right: dice.Number{Value: 4}}},
		{input: "3 max 4", want: dice.Max{Left: dice.Number{Value: 3}, Right: dice.Number{Value: 4}}},
		{input: "2d6+3", want: dice.Math{
			Left:     dice.NDice{Faces: 6, Count: 2},
			Operator: dice.Add,
			Right:    dice.Number{Value: 3},
		}},
		{input: "10(2)", want: dice.Math{
			Left:     dice.Number{Value: 10},
			Operator: dice.Multiply,
			Right:    dice.Number{Value: 2},
		}},
		{input: "-(2)", want: dice.Negative{Value: dice.Number{Value: 2}}},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := dice.Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// Chains of one operator split at the last occurrence, so they associate left.
func TestParse_LeftAssociative(t *testing.T) {
	got, err := dice.Parse("1-2-3")
	require.NoError(t, err)
	assert.Equal(t, dice.Math{
		Left: dice.Math{
			Left:     dice.Number{Value: 1},
			Operator: dice.Subtract,
			Right:    dice.Number{Value: 2},
		},
		Operator: dice.Subtract,
		Right:    dice.Number{Value: 3},
	}, got)

	v, err := dice.Roll("1-2-3", dice.MaxRoll)
	require.NoError(t, err)
	assert.Equal(t, -4, v)
}

// Each pair is an input that two rules could both claim; the earlier rule wins.
func TestParse_RuleOrder(t *testing.T) {
	cases := []struct {
		input string
		want  any
	}{
		{input: "4d6!!", want: dice.CompoundingDice{}},
		{input: "4d6!", want: dice.ExplodingDice{}},
		{input: "2d6 min 3 asc", want: dice.Sorted{}},
		{input: "2 min 3 + 1", want: dice.Min{}},
		{input: "2d8+2<6", want: dice.TargetPool{}},
		{input: "(2d8+2)<6", want: dice.TargetPool{}},
		{input: "(1+2)3", want: dice.Math{}},
		{input: "1+2*3", want: dice.Math{}},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := dice.Parse(tc.input)
			require.NoError(t, err)
			assert.IsType(t, tc.want, got)
		})
	}

	// Addition binds loosest among the arithmetic rules.
	got, err := dice.Parse("1+2*3")
	require.NoError(t, err)
	assert.Equal(t, dice.Add, got.(dice.Math).Operator)

	// Parenthesised targets keep the modifier inside the pool.
	got, err = dice.Parse("(2d8+2)<6")
	require.NoError(t, err)
	assert.IsType(t, dice.Math{}, got.(dice.TargetPool).Left)
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		input string
		want  error
		msg   string
	}{
		{input: "hello", want: dice.ErrParse, msg: "failed to parse expression 'hello'"},
		{input: "", want: dice.ErrParse},
		{input: "4w6!!", want: dice.ErrParse},
		{input: "2d", want: dice.ErrParse},
		{input: "(1+2)*(3+4)", want: dice.ErrParse},
		{input: "99999999999", want: dice.ErrOverflow},
		{input: "0d6", want: dice.ErrInvalidDice},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			_, err := dice.Parse(tc.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			if tc.msg != "" {
				assert.Contains(t, err.Error(), tc.msg)
			}
		})
	}
}

func TestParseComparison(t *testing.T) {
	for text, want := range map[string]dice.Comparison{"=": dice.EqualTo, ">": dice.AtLeast, "<": dice.AtMost} {
		got, err := dice.ParseComparison(text)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, text, got.String())
	}

	_, err := dice.ParseComparison("!")
	require.ErrorIs(t, err, dice.ErrInvalidComparison)
	assert.Contains(t, err.Error(), "could not parse comparison operator from '!'")
}

func TestComparison_Matches(t *testing.T) {
	assert.True(t, dice.EqualTo.Matches(6, 6))
	assert.False(t, dice.EqualTo.Matches(5, 6))
	assert.True(t, dice.AtLeast.Matches(6, 5))
	assert.True(t, dice.AtLeast.Matches(5, 5))
	assert.False(t, dice.AtLeast.Matches(4, 5))
	assert.True(t, dice.AtMost.Matches(1, 1))
	assert.False(t, dice.AtMost.Matches(2, 1))
}

func TestValid(t *testing.T) {
	assert.True(t, dice.Valid("4d6!!"))
	assert.True(t, dice.Valid(" 3d6 + 2 "))
	assert.False(t, dice.Valid("4w6!!"))
	assert.False(t, dice.Valid(""))
	assert.False(t, dice.Valid(strings.Repeat("1+", dice.DefaultMaxLength)+"1"))
}

func TestParser_Limits(t *testing.T) {
	_, err := dice.NewParser(dice.WithMaxLength(5)).Parse("1+2+3+4")
	assert.ErrorIs(t, err, dice.ErrTooComplex)

	_, err = dice.NewParser(dice.WithMaxDepth(2)).Parse("1+2+3+4")
	assert.ErrorIs(t, err, dice.ErrTooComplex)

	_, err = dice.NewParser(dice.WithMaxDepth(2)).Parse("1+2")
	assert.NoError(t, err)

	_, err = dice.Parse(strings.Repeat("-", 2*dice.DefaultMaxDepth) + "1")
	assert.ErrorIs(t, err, dice.ErrTooComplex)

	_, err = dice.NewParser(dice.WithMaxDepth(0), dice.WithMaxLength(-1)).Parse("3d6+1")
	assert.NoError(t, err, "non-positive limits restore the defaults")
}

func TestExpression_Description(t *testing.T) {
	cases := map[string]string{
		"d6":          "d6",
		"3d6":         "3d6",
		"4d6k3":       "4d6k3",
		"4d6l1":       "4d6l1",
		"4d6!":        "4d6!",
		"4d6!>5":      "4d6!>5",
		"2d6!!<1":     "2d6!!<1",
		"dF":          "1dF",
		"4dF.1":       "4dF.1",
		"2d[1/2/3]":   "2d[1/2/3]",
		"2d6+3":       "2d6 + 3",
		"-2":          "-2",
		"2d6 desc":    "2d6 desc",
		"1 min 2":     "min(1,2)",
		"1 max 2":     "max(1,2)",
		"(4d8-2)<6":   "4d8 - 2<6",
		"2d6x":        "2d6X",
		"2d6^":        "2d6^",
		"1000 / 10":   "1000 / 10",
		"5 * d6":      "5 * d6",
		"2d8+2<6":     "2d8<4",
		"(1)":         "1",
		"d6!6":        "1d6!",
		"d6!=5":       "1d6!=5",
		"d6!!>6":      "1d6!!>6",
		"-(d4)":       "-d4",
		"2d6asc":      "2d6 asc",
		"3dF.3":       "3dF.3",
		"d[-1/0/1]":   "d[-1/0/1]",
		"10 min 2d6":  "min(10,2d6)",
		"10 max -2d6": "max(10,-2d6)",
	}
	for input, want := range cases {
		t.Run(input, func(t *testing.T) {
			expr, err := dice.Parse(input)
			require.NoError(t, err)
			assert.Equal(t, want, expr.Description())
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.NotPanics(t, func() { dice.MustParse("3d6") })
	assert.Panics(t, func() { dice.MustParse("not dice") })
}

// TestValid_AcceptedStrings_Property verifies that every string Parse accepts
// is also reported valid.
func TestValid_AcceptedStrings_Property(t *testing.T) {
	alphabet := []rune("0123456789dDfFkKlLxX!^<>=+-*/()[] .")
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.StringOfN(rapid.SampledFrom(alphabet), 0, 16, -1).Draw(rt, "input")
		if _, err := dice.Parse(s); err == nil {
			assert.True(rt, dice.Valid(s), "Parse accepted %q but Valid rejected it", s)
		}
	})
}

// TestParse_DiceTerms_Property verifies well-formed dice terms always parse
// and always roll within their bounds.
func TestParse_DiceTerms_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 50).Draw(rt, "count")
		faces := rapid.IntRange(1, 1000).Draw(rt, "faces")
		modifier := rapid.IntRange(0, 1000).Draw(rt, "modifier")
		input := rapid.SampledFrom([]string{"%dd%d+%d", "%dd%d-%d", "%dd%d*%d"}).Draw(rt, "format")
		text := fmt.Sprintf(input, count, faces, modifier)

		require.True(rt, dice.Valid(text))
		tree, err := dice.DetailedRoll(text, dice.FromSource(dice.NewSeededSource(int64(count*faces))))
		require.NoError(rt, err)
		for _, v := range tree.Results[0].Leaves() {
			assert.GreaterOrEqual(rt, v, 1)
			assert.LessOrEqual(rt, v, faces)
		}
	})
}

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"42", "3d6+2", "4d6k3", "4d6l1", "(4d6!>5)>5", "4d6!!", "2d6^>10", "dF.1",
		"d[1/1/2]", "-2d6+2asc", "(100 + 2d6) min (2 *2)", "2d8+2<6", "10(2)", "((",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, input string) {
		expr, err := dice.Parse(input)
		if err != nil {
			return
		}
		require.NotNil(t, expr)
		assert.True(t, dice.Valid(input))
		assert.NotPanics(t, func() { _ = expr.Description() })
	})
}
