package dice

// AdvantageMode selects the d20 re-roll rule applied during evaluation
type AdvantageMode string

// Advantage modes
const (
	AdvantageNormal       AdvantageMode = "normal"
	AdvantageAdvantage    AdvantageMode = "advantage"
	AdvantageDisadvantage AdvantageMode = "disadvantage"
)

// Valid reports whether the mode is one of the known advantage modes
func (m AdvantageMode) Valid() bool {
	switch m {
	case AdvantageNormal, AdvantageAdvantage, AdvantageDisadvantage:
		return true
	default:
		return false
	}
}

// GroupResult is the outcome of one dice group: every die face in roll order
// and their contribution to the total after any advantage substitution.
type GroupResult struct {
	Sides int32   `json:"sides"`
	Rolls []int32 `json:"rolls"`
	Total int32   `json:"total"`
}

// RollResult is the immutable outcome of evaluating an expression once. It is
// persisted verbatim, breakdown included, so a roll can be displayed and
// audited later without re-simulating randomness.
type RollResult struct {
	Expression string        `json:"expression"`
	Breakdown  []GroupResult `json:"breakdown"`
	Modifier   int32         `json:"modifier"`
	Advantage  AdvantageMode `json:"advantage"`
	Total      int32         `json:"total"`
}

// Options tune a single evaluation
type Options struct {
	// Modifier is added on top of the expression's static modifier
	Modifier int32

	// Advantage applies the d20 re-roll rule. Zero value means normal.
	Advantage AdvantageMode
}

// Evaluate rolls the expression once using the supplied roller. It never
// fails for a parsed expression; bounds were validated at parse time.
//
// Advantage/disadvantage applies only when the expression contains exactly
// one single-die d20 group. An extra d20 is drawn and appended to that
// group's roll list, and the group contributes max() of the two for
// advantage, min() for disadvantage. Expressions like "2d20" record the mode
// on the result but are rolled straight.
func Evaluate(expr *Expression, roller Roller, opts Options) *RollResult {
	mode := opts.Advantage
	if mode == "" {
		mode = AdvantageNormal
	}

	result := &RollResult{
		Expression: expr.String(),
		Breakdown:  make([]GroupResult, 0, len(expr.Groups)),
		Modifier:   expr.Modifier + opts.Modifier,
		Advantage:  mode,
	}

	total := int32(0)
	for _, g := range expr.Groups {
		rolls := make([]int32, 0, g.Count)
		sum := int32(0)
		for i := int32(0); i < g.Count; i++ {
			r := roller.Roll(g.Sides)
			rolls = append(rolls, r)
			sum += r
		}
		result.Breakdown = append(result.Breakdown, GroupResult{
			Sides: g.Sides,
			Rolls: rolls,
			Total: sum,
		})
		total += sum
	}

	if mode != AdvantageNormal {
		if idx, ok := advantageGroup(expr); ok {
			group := &result.Breakdown[idx]
			second := roller.Roll(20)
			group.Rolls = append(group.Rolls, second)

			kept := max(group.Rolls[0], second)
			if mode == AdvantageDisadvantage {
				kept = min(group.Rolls[0], second)
			}
			total += kept - group.Total
			group.Total = kept
		}
	}

	result.Total = total + result.Modifier
	return result
}

// advantageGroup returns the index of the group the advantage rule applies
// to: the expression must contain exactly one group with a single d20.
func advantageGroup(expr *Expression) (int, bool) {
	idx := -1
	for i, g := range expr.Groups {
		if g.Sides == 20 && g.Count == 1 {
			if idx >= 0 {
				return 0, false
			}
			idx = i
		}
	}
	return idx, idx >= 0
}
