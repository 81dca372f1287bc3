package dice_test

import (
	"testing"

	"github.com/cory-johannsen/diceroll/internal/dice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedRoller(roll dice.RollFunc) (*dice.Roller, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return dice.NewLoggedRoller(nil, roll, zap.New(core)), logs
}

func TestRoller_LogsEveryRoll(t *testing.T) {
	r, logs := newObservedRoller(dice.Scripted(2, 5))

	rec, err := r.Roll("2d6+1")
	require.NoError(t, err)
	assert.Equal(t, 8, rec.Value)
	assert.Equal(t, "2d6+1", rec.Expression)
	assert.Equal(t, []int{2, 5, 1}, rec.Leaves())
	assert.NotEmpty(t, rec.ID.String())

	entries := logs.FilterMessage("dice roll").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, rec.ID.String(), fields["roll_id"])
	assert.Equal(t, "2d6+1", fields["expression"])
	assert.EqualValues(t, 8, fields["value"])
}

func TestRoller_UniqueIDs(t *testing.T) {
	r, _ := newObservedRoller(dice.MaxRoll)
	a, err := r.Roll("d6")
	require.NoError(t, err)
	b, err := r.Roll("d6")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestRoller_LogsFailures(t *testing.T) {
	r, logs := newObservedRoller(dice.MaxRoll)

	_, err := r.Roll("4/0")
	require.ErrorIs(t, err, dice.ErrDivisionByZero)

	_, err = r.Roll("nonsense")
	require.ErrorIs(t, err, dice.ErrParse)

	assert.Equal(t, 2, logs.FilterMessage("dice roll failed").Len())
	assert.Equal(t, 0, logs.FilterMessage("dice roll").Len())
}

func TestRoller_UsesParserLimits(t *testing.T) {
	p := dice.NewParser(dice.WithMaxLength(4))
	r := dice.NewLoggedRoller(p, dice.MaxRoll, zap.NewNop())

	assert.True(t, r.Valid("3d6"))
	assert.False(t, r.Valid("3d6+10"))
	_, err := r.Roll("3d6+10")
	assert.ErrorIs(t, err, dice.ErrTooComplex)
}

func TestRoller_UsesRollBudget(t *testing.T) {
	r := dice.NewLoggedRoller(nil, dice.MaxRoll, zap.NewNop(), dice.WithMaxRolls(10))

	rec, err := r.Roll("10d6")
	require.NoError(t, err)
	assert.Equal(t, 60, rec.Value)

	_, err = r.Roll("11d6")
	assert.ErrorIs(t, err, dice.ErrTooComplex)
	assert.True(t, r.Valid("11d6"), "the budget applies to evaluation, not parsing")
}
