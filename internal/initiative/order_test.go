package initiative_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/vtt-api/internal/entities"
	"github.com/KirkDiggler/vtt-api/internal/initiative"
)

func entry(id, name string, score int32) entities.InitiativeEntry {
	return entities.InitiativeEntry{ID: id, DisplayName: name, Score: score}
}

func names(entries []entities.InitiativeEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.DisplayName
	}
	return out
}

func TestAdd_SortsDescendingWithStableTies(t *testing.T) {
	o := initiative.New(nil)
	o.Add(entry("a", "A", 20))
	o.Add(entry("b", "B", 20))
	o.Add(entry("c", "C", 15))

	// A was added before B; the tie keeps that order
	assert.Equal(t, []string{"A", "B", "C"}, names(o.Entries()))
}

func TestAdd_NegativeScoresSortLast(t *testing.T) {
	o := initiative.New(nil)
	o.Add(entry("a", "A", -2))
	o.Add(entry("b", "B", 3))

	assert.Equal(t, []string{"B", "A"}, names(o.Entries()))
}

func TestAddThenRemove_RestoresOrder(t *testing.T) {
	o := initiative.New(nil)
	o.Add(entry("a", "A", 18))
	o.Add(entry("b", "B", 12))
	before := o.Entries()

	o.Add(entry("x", "X", 15))
	o.Remove("x")

	assert.Equal(t, before, o.Entries())
}

func TestRemove_UnknownIDIsNoOp(t *testing.T) {
	o := initiative.New(nil)
	o.Add(entry("a", "A", 10))

	o.Remove("ghost")

	assert.Equal(t, 1, o.Len())
}

func TestRemove_ActiveEntryDoesNotPromote(t *testing.T) {
	o := initiative.New(nil)
	o.Add(entry("a", "A", 20))
	o.Add(entry("b", "B", 10))
	o.AdvanceTurn() // A active

	o.Remove("a")

	_, ok := o.Active()
	assert.False(t, ok, "removing the active entry should leave no active turn")
}

func TestAdvanceTurn(t *testing.T) {
	o := initiative.New(nil)
	o.Add(entry("a", "A", 20))
	o.Add(entry("b", "B", 20))
	o.Add(entry("c", "C", 15))

	// No active entry yet: first advance activates the top of the order
	wrapped := o.AdvanceTurn()
	assert.False(t, wrapped)
	active, ok := o.Active()
	require.True(t, ok)
	assert.Equal(t, "A", active.DisplayName)

	wrapped = o.AdvanceTurn()
	assert.False(t, wrapped)
	active, _ = o.Active()
	assert.Equal(t, "B", active.DisplayName)

	wrapped = o.AdvanceTurn()
	assert.False(t, wrapped)
	active, _ = o.Active()
	assert.Equal(t, "C", active.DisplayName)

	// Wraparound back to A signals a new round
	wrapped = o.AdvanceTurn()
	assert.True(t, wrapped)
	active, _ = o.Active()
	assert.Equal(t, "A", active.DisplayName)
}

func TestAdvanceTurn_FullCycleReturnsToStart(t *testing.T) {
	o := initiative.New(nil)
	o.Add(entry("a", "A", 9))
	o.Add(entry("b", "B", 7))
	o.Add(entry("c", "C", 5))
	o.AdvanceTurn()
	start, _ := o.Active()

	for i := 0; i < o.Len(); i++ {
		o.AdvanceTurn()
	}

	active, ok := o.Active()
	require.True(t, ok)
	assert.Equal(t, start.ID, active.ID)
}

func TestAdvanceTurn_EmptyOrderIsNoOp(t *testing.T) {
	o := initiative.New(nil)

	assert.False(t, o.AdvanceTurn())
	_, ok := o.Active()
	assert.False(t, ok)
}

func TestUpdateHitPoints_NoClamping(t *testing.T) {
	o := initiative.New(nil)
	o.Add(entry("a", "A", 10))

	o.UpdateHitPoints("a", &entities.HitPoints{Current: -5, Max: 20, Temporary: 8})

	e := o.Entries()[0]
	require.NotNil(t, e.HitPoints)
	assert.Equal(t, int32(-5), e.HitPoints.Current)
	assert.Equal(t, int32(8), e.HitPoints.Temporary)
}

func TestUpdate_ScoreChangeResorts(t *testing.T) {
	o := initiative.New(nil)
	o.Add(entry("a", "A", 20))
	o.Add(entry("b", "B", 10))

	o.Update("b", func(e *entities.InitiativeEntry) {
		e.Score = 25
	})

	assert.Equal(t, []string{"B", "A"}, names(o.Entries()))
}

func TestSetConditions(t *testing.T) {
	o := initiative.New(nil)
	o.Add(entry("a", "A", 10))

	o.SetConditions("a", []string{"prone", "poisoned"})

	assert.Equal(t, []string{"prone", "poisoned"}, o.Entries()[0].Conditions)
}

func TestReset(t *testing.T) {
	o := initiative.New(nil)
	o.Add(entry("a", "A", 10))
	o.Add(entry("b", "B", 5))

	o.Reset()

	assert.Equal(t, 0, o.Len())
}

func TestNew_RestoresSingleActiveInvariant(t *testing.T) {
	entries := []entities.InitiativeEntry{
		{ID: "a", DisplayName: "A", Score: 20, IsActive: true},
		{ID: "b", DisplayName: "B", Score: 15, IsActive: true},
	}

	o := initiative.New(entries)

	activeCount := 0
	for _, e := range o.Entries() {
		if e.IsActive {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)
}
