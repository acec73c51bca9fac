// Package dice implements the dice expression engine: parsing NdM±K style
// expressions, evaluating them with an injectable random source, and
// formatting results for chat display.
package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/KirkDiggler/vtt-api/internal/errors"
)

const (
	// MinCount and MaxCount bound the number of dice in a single group
	MinCount = 1
	MaxCount = 100

	// MinSides and MaxSides bound the die size
	MinSides = 2
	MaxSides = 1000
)

// Regex for a single dice group token like "2d6" or "d20"
var groupRegex = regexp.MustCompile(`^(\d*)d(\d+)$`)

// Group is one run of identical dice in an expression
type Group struct {
	Count int32 `json:"count"`
	Sides int32 `json:"sides"`
}

// Expression is the parsed representation of a roll request. It always
// contains at least one group; Parse never returns a partial expression.
type Expression struct {
	Groups   []Group `json:"groups"`
	Modifier int32   `json:"modifier"`
}

// String renders the expression in canonical NdM±K form. Parsing the result
// yields an equivalent expression.
func (e *Expression) String() string {
	var sb strings.Builder
	for i, g := range e.Groups {
		if i > 0 {
			sb.WriteByte('+')
		}
		fmt.Fprintf(&sb, "%dd%d", g.Count, g.Sides)
	}
	if e.Modifier > 0 {
		fmt.Fprintf(&sb, "+%d", e.Modifier)
	} else if e.Modifier < 0 {
		fmt.Fprintf(&sb, "%d", e.Modifier)
	}
	return sb.String()
}

// Parse parses a textual dice expression like "2d6+1d4-1" into an Expression.
// Whitespace is ignored and the input is case-insensitive. Dice group tokens
// always add to the total; the +/- signs apply to numeric modifier tokens.
// Errors carry CodeInvalidArgument and name the offending token.
func Parse(expression string) (*Expression, error) {
	clean := strings.ToLower(strings.Join(strings.Fields(expression), ""))
	if clean == "" {
		return nil, errors.InvalidArgument("empty expression")
	}

	expr := &Expression{}
	sign := int32(1)

	for _, token := range splitTerms(clean) {
		switch token {
		case "+":
			sign = 1
			continue
		case "-":
			sign = -1
			continue
		}

		if strings.Contains(token, "d") {
			matches := groupRegex.FindStringSubmatch(token)
			if matches == nil {
				return nil, errors.InvalidArgumentf("invalid dice format: %s", token)
			}

			count := int64(1)
			if matches[1] != "" {
				var err error
				count, err = strconv.ParseInt(matches[1], 10, 32)
				if err != nil {
					return nil, errors.InvalidArgumentf("invalid dice count: %s", token)
				}
			}
			sides, err := strconv.ParseInt(matches[2], 10, 32)
			if err != nil {
				return nil, errors.InvalidArgumentf("invalid die size: %s", token)
			}

			if count < MinCount || count > MaxCount {
				return nil, errors.InvalidArgumentf(
					"dice count must be between %d and %d: %s", MinCount, MaxCount, token)
			}
			if sides < MinSides || sides > MaxSides {
				return nil, errors.InvalidArgumentf(
					"die size must be between %d and %d: %s", MinSides, MaxSides, token)
			}

			expr.Groups = append(expr.Groups, Group{Count: int32(count), Sides: int32(sides)})
			continue
		}

		value, err := strconv.ParseInt(token, 10, 32)
		if err != nil {
			return nil, errors.InvalidArgumentf("invalid modifier: %s", token)
		}
		expr.Modifier += sign * int32(value)
	}

	if len(expr.Groups) == 0 {
		return nil, errors.InvalidArgument("no dice found in expression")
	}

	return expr, nil
}

// Validate reports whether the expression text parses, without evaluating it
func Validate(expression string) error {
	_, err := Parse(expression)
	return err
}

// splitTerms splits on +/- keeping the separators as their own tokens
func splitTerms(s string) []string {
	var terms []string
	start := 0
	for i, r := range s {
		if r == '+' || r == '-' {
			if i > start {
				terms = append(terms, s[start:i])
			}
			terms = append(terms, string(r))
			start = i + 1
		}
	}
	if start < len(s) {
		terms = append(terms, s[start:])
	}
	return terms
}
