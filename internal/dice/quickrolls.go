package dice

import (
	"math"
	"sort"
)

// QuickRoll is a labeled preset expression for one-click rolling
type QuickRoll struct {
	Label      string `json:"label"`
	Expression string `json:"expression"`
	Modifier   int32  `json:"modifier,omitempty"`
}

// CommonDice are the standard polyhedral dice
var CommonDice = []QuickRoll{
	{Label: "d4", Expression: "1d4"},
	{Label: "d6", Expression: "1d6"},
	{Label: "d8", Expression: "1d8"},
	{Label: "d10", Expression: "1d10"},
	{Label: "d12", Expression: "1d12"},
	{Label: "d20", Expression: "1d20"},
	{Label: "d100", Expression: "1d100"},
}

// CommonRolls are frequent check/damage presets
var CommonRolls = []QuickRoll{
	{Label: "Ability Check", Expression: "1d20"},
	{Label: "Attack Roll", Expression: "1d20"},
	{Label: "Saving Throw", Expression: "1d20"},
	{Label: "Initiative", Expression: "1d20"},
	{Label: "Damage (Sword)", Expression: "1d8"},
	{Label: "Damage (Dagger)", Expression: "1d4"},
	{Label: "Damage (Fireball)", Expression: "8d6"},
}

// AbilityModifier converts an ability score to its modifier, rounding down
func AbilityModifier(score int32) int32 {
	return int32(math.Floor(float64(score-10) / 2))
}

// InitiativeSeed is one combatant to roll initiative for
type InitiativeSeed struct {
	Name      string
	Dexterity int32 // 0 means unknown; treated as no modifier
}

// InitiativeRoll is the result of rolling initiative for one combatant
type InitiativeRoll struct {
	Name       string
	Roll       int32
	Initiative int32
}

// RollInitiative rolls d20 + DEX modifier for each combatant and returns the
// results sorted by initiative, highest first. The sort is stable so equal
// scores keep their input order.
func RollInitiative(seeds []InitiativeSeed, roller Roller) []InitiativeRoll {
	results := make([]InitiativeRoll, 0, len(seeds))
	for _, seed := range seeds {
		mod := int32(0)
		if seed.Dexterity > 0 {
			mod = AbilityModifier(seed.Dexterity)
		}
		roll := roller.Roll(20)
		results = append(results, InitiativeRoll{
			Name:       seed.Name,
			Roll:       roll,
			Initiative: roll + mod,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Initiative > results[j].Initiative
	})
	return results
}
