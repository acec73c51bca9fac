package dice

import (
	"fmt"
	"strings"
)

// Format renders a roll result as a chat-ready markdown string: the total in
// bold, a parenthesized per-group breakdown, the signed modifier when
// non-zero, and an advantage suffix when applicable.
//
//	**12** (d6: [4, 5] = 9 +3)
//	**5** (d20: [18, 5] = 5) [Disadvantage]
func Format(result *RollResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%d**", result.Total)

	if len(result.Breakdown) > 0 {
		parts := make([]string, 0, len(result.Breakdown))
		for _, g := range result.Breakdown {
			if len(g.Rolls) == 1 {
				parts = append(parts, fmt.Sprintf("d%d: %d", g.Sides, g.Rolls[0]))
			} else {
				parts = append(parts, fmt.Sprintf("d%d: [%s] = %d", g.Sides, joinRolls(g.Rolls), g.Total))
			}
		}

		sb.WriteString(" (")
		sb.WriteString(strings.Join(parts, ", "))
		if result.Modifier != 0 {
			fmt.Fprintf(&sb, " %+d", result.Modifier)
		}
		sb.WriteString(")")
	}

	switch result.Advantage {
	case AdvantageAdvantage:
		sb.WriteString(" [Advantage]")
	case AdvantageDisadvantage:
		sb.WriteString(" [Disadvantage]")
	}

	return sb.String()
}

func joinRolls(rolls []int32) string {
	parts := make([]string, len(rolls))
	for i, r := range rolls {
		parts[i] = fmt.Sprintf("%d", r)
	}
	return strings.Join(parts, ", ")
}
