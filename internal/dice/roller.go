package dice

import (
	"math/rand/v2"
)

// Roller is the random source for evaluation. The engine never reaches for a
// global RNG so tests can supply a deterministic roller.
type Roller interface {
	// Roll returns a uniform integer in [1, sides]
	Roll(sides int32) int32
}

type randRoller struct {
	rng *rand.Rand
}

func (r *randRoller) Roll(sides int32) int32 {
	if r.rng != nil {
		return r.rng.Int32N(sides) + 1
	}
	return rand.Int32N(sides) + 1
}

// NewRoller returns a roller backed by the shared runtime RNG
func NewRoller() Roller {
	return &randRoller{}
}

// NewSeededRoller returns a roller with a fixed seed. Same seed, same rolls.
func NewSeededRoller(seed uint64) Roller {
	return &randRoller{rng: rand.New(rand.NewPCG(seed, seed))}
}

// ScriptedRoller replays a fixed sequence of results, for golden-output tests
type ScriptedRoller struct {
	results []int32
	next    int
}

// NewScriptedRoller creates a roller that returns the given values in order
func NewScriptedRoller(results ...int32) *ScriptedRoller {
	return &ScriptedRoller{results: results}
}

// Script appends values to the replay sequence
func (r *ScriptedRoller) Script(results ...int32) {
	r.results = append(r.results, results...)
}

// Roll returns the next scripted value. Panics when the script runs out,
// which in a test means the expectation was wrong.
func (r *ScriptedRoller) Roll(sides int32) int32 {
	if r.next >= len(r.results) {
		panic("scripted roller: no results left")
	}
	v := r.results[r.next]
	r.next++
	return v
}
