package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/vtt-api/internal/dice"
	"github.com/KirkDiggler/vtt-api/internal/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		groups     []dice.Group
		modifier   int32
	}{
		{
			name:       "single group with modifier",
			expression: "2d6+3",
			groups:     []dice.Group{{Count: 2, Sides: 6}},
			modifier:   3,
		},
		{
			name:       "implicit count of one",
			expression: "d20",
			groups:     []dice.Group{{Count: 1, Sides: 20}},
			modifier:   0,
		},
		{
			name:       "multiple groups and negative modifier",
			expression: "1d20+2d6-1",
			groups:     []dice.Group{{Count: 1, Sides: 20}, {Count: 2, Sides: 6}},
			modifier:   -1,
		},
		{
			name:       "whitespace and case insensitive",
			expression: " 2D6 + 3 ",
			groups:     []dice.Group{{Count: 2, Sides: 6}},
			modifier:   3,
		},
		{
			name:       "modifiers accumulate",
			expression: "1d8+2-5+1",
			groups:     []dice.Group{{Count: 1, Sides: 8}},
			modifier:   -2,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := dice.Parse(tc.expression)
			require.NoError(t, err)
			assert.Equal(t, tc.groups, expr.Groups)
			assert.Equal(t, tc.modifier, expr.Modifier)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		expression string
	}{
		{name: "garbage token", expression: "abc"},
		{name: "empty", expression: ""},
		{name: "whitespace only", expression: "   "},
		{name: "count below range", expression: "0d6"},
		{name: "count above range", expression: "101d6"},
		{name: "sides below range", expression: "1d1"},
		{name: "sides above range", expression: "2d1001"},
		{name: "bad modifier token", expression: "1d6+x"},
		{name: "modifier only", expression: "5"},
		{name: "double d", expression: "1d6d8"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := dice.Parse(tc.expression)
			assert.Nil(t, expr)
			require.Error(t, err)
			assert.True(t, errors.IsInvalidArgument(err))
		})
	}
}

func TestParse_RoundTripsCanonicalForm(t *testing.T) {
	for _, input := range []string{"2d6+3", "d20", "1d20+2d6-1", "4d6", "1d8-2"} {
		expr, err := dice.Parse(input)
		require.NoError(t, err)

		again, err := dice.Parse(expr.String())
		require.NoError(t, err, "canonical form %q should parse", expr.String())
		assert.Equal(t, expr.Groups, again.Groups)
		assert.Equal(t, expr.Modifier, again.Modifier)
	}
}

func TestEvaluate(t *testing.T) {
	expr, err := dice.Parse("2d6+3")
	require.NoError(t, err)

	result := dice.Evaluate(expr, dice.NewScriptedRoller(4, 5), dice.Options{})

	assert.Equal(t, int32(12), result.Total)
	assert.Equal(t, int32(3), result.Modifier)
	require.Len(t, result.Breakdown, 1)
	assert.Equal(t, []int32{4, 5}, result.Breakdown[0].Rolls)
	assert.Equal(t, int32(9), result.Breakdown[0].Total)
	assert.Equal(t, dice.AdvantageNormal, result.Advantage)
}

func TestEvaluate_CallerModifier(t *testing.T) {
	expr, err := dice.Parse("1d20+2")
	require.NoError(t, err)

	result := dice.Evaluate(expr, dice.NewScriptedRoller(10), dice.Options{Modifier: 3})

	assert.Equal(t, int32(15), result.Total)
	assert.Equal(t, int32(5), result.Modifier)
}

func TestEvaluate_Disadvantage(t *testing.T) {
	expr, err := dice.Parse("1d20")
	require.NoError(t, err)

	result := dice.Evaluate(expr, dice.NewScriptedRoller(18, 5), dice.Options{
		Advantage: dice.AdvantageDisadvantage,
	})

	// Breakdown shows both dice, the lower one counts
	require.Len(t, result.Breakdown, 1)
	assert.Equal(t, []int32{18, 5}, result.Breakdown[0].Rolls)
	assert.Equal(t, int32(5), result.Breakdown[0].Total)
	assert.Equal(t, int32(5), result.Total)
}

func TestEvaluate_Advantage(t *testing.T) {
	expr, err := dice.Parse("1d20+1")
	require.NoError(t, err)

	result := dice.Evaluate(expr, dice.NewScriptedRoller(3, 17), dice.Options{
		Advantage: dice.AdvantageAdvantage,
	})

	assert.Equal(t, []int32{3, 17}, result.Breakdown[0].Rolls)
	assert.Equal(t, int32(17), result.Breakdown[0].Total)
	assert.Equal(t, int32(18), result.Total)
}

func TestEvaluate_AdvantageNeverWorseThanNormal(t *testing.T) {
	expr, err := dice.Parse("1d20")
	require.NoError(t, err)

	for first := int32(1); first <= 20; first += 7 {
		for second := int32(1); second <= 20; second += 7 {
			normal := dice.Evaluate(expr, dice.NewScriptedRoller(first), dice.Options{})
			adv := dice.Evaluate(expr, dice.NewScriptedRoller(first, second), dice.Options{
				Advantage: dice.AdvantageAdvantage,
			})
			assert.GreaterOrEqual(t, adv.Total, normal.Total)
		}
	}
}

func TestEvaluate_AdvantageSkipsMultiDieD20Group(t *testing.T) {
	expr, err := dice.Parse("2d20")
	require.NoError(t, err)

	// Only two draws are consumed; the scripted roller would panic on a third
	result := dice.Evaluate(expr, dice.NewScriptedRoller(8, 12), dice.Options{
		Advantage: dice.AdvantageAdvantage,
	})

	assert.Equal(t, []int32{8, 12}, result.Breakdown[0].Rolls)
	assert.Equal(t, int32(20), result.Total)
	assert.Equal(t, dice.AdvantageAdvantage, result.Advantage)
}

func TestEvaluate_AdvantageAmbiguousWithTwoD20Groups(t *testing.T) {
	expr, err := dice.Parse("1d20+1d20")
	require.NoError(t, err)

	result := dice.Evaluate(expr, dice.NewScriptedRoller(4, 9), dice.Options{
		Advantage: dice.AdvantageAdvantage,
	})

	// Two candidate groups: the rule does not apply
	assert.Equal(t, int32(13), result.Total)
}

func TestEvaluate_TotalIsExactSum(t *testing.T) {
	expr, err := dice.Parse("3d6+1d4+2")
	require.NoError(t, err)

	result := dice.Evaluate(expr, dice.NewScriptedRoller(1, 6, 3, 4), dice.Options{Modifier: -1})

	sum := int32(0)
	for _, g := range result.Breakdown {
		for _, r := range g.Rolls {
			sum += r
		}
	}
	assert.Equal(t, sum+result.Modifier, result.Total)
	assert.Equal(t, int32(15), result.Total)
}

func TestEvaluate_SeededRollerIsDeterministic(t *testing.T) {
	expr, err := dice.Parse("4d6")
	require.NoError(t, err)

	first := dice.Evaluate(expr, dice.NewSeededRoller(42), dice.Options{})
	second := dice.Evaluate(expr, dice.NewSeededRoller(42), dice.Options{})

	assert.Equal(t, first, second)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		result *dice.RollResult
		want   string
	}{
		{
			name: "group with modifier",
			result: &dice.RollResult{
				Total:     12,
				Modifier:  3,
				Advantage: dice.AdvantageNormal,
				Breakdown: []dice.GroupResult{{Sides: 6, Rolls: []int32{4, 5}, Total: 9}},
			},
			want: "**12** (d6: [4, 5] = 9 +3)",
		},
		{
			name: "single die renders without brackets",
			result: &dice.RollResult{
				Total:     15,
				Advantage: dice.AdvantageNormal,
				Breakdown: []dice.GroupResult{{Sides: 20, Rolls: []int32{15}, Total: 15}},
			},
			want: "**15** (d20: 15)",
		},
		{
			name: "disadvantage suffix",
			result: &dice.RollResult{
				Total:     5,
				Advantage: dice.AdvantageDisadvantage,
				Breakdown: []dice.GroupResult{{Sides: 20, Rolls: []int32{18, 5}, Total: 5}},
			},
			want: "**5** (d20: [18, 5] = 5) [Disadvantage]",
		},
		{
			name: "negative modifier",
			result: &dice.RollResult{
				Total:     2,
				Modifier:  -2,
				Advantage: dice.AdvantageNormal,
				Breakdown: []dice.GroupResult{{Sides: 8, Rolls: []int32{4}, Total: 4}},
			},
			want: "**2** (d8: 4 -2)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, dice.Format(tc.result))
		})
	}
}

func TestAbilityModifier(t *testing.T) {
	assert.Equal(t, int32(-2), dice.AbilityModifier(7))
	assert.Equal(t, int32(-1), dice.AbilityModifier(8))
	assert.Equal(t, int32(0), dice.AbilityModifier(10))
	assert.Equal(t, int32(0), dice.AbilityModifier(11))
	assert.Equal(t, int32(2), dice.AbilityModifier(14))
	assert.Equal(t, int32(5), dice.AbilityModifier(20))
}

func TestRollInitiative(t *testing.T) {
	seeds := []dice.InitiativeSeed{
		{Name: "Shadow", Dexterity: 18}, // +4
		{Name: "Brick", Dexterity: 8},   // -1
		{Name: "Mage"},                  // unknown DEX, no modifier
	}

	results := dice.RollInitiative(seeds, dice.NewScriptedRoller(10, 15, 14))

	require.Len(t, results, 3)
	assert.Equal(t, "Shadow", results[0].Name)
	assert.Equal(t, int32(14), results[0].Initiative)
	assert.Equal(t, "Brick", results[1].Name)
	assert.Equal(t, int32(14), results[1].Initiative)
	assert.Equal(t, "Mage", results[2].Name)
	assert.Equal(t, int32(14), results[2].Initiative)
}
