package item

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type grid []*Item

func (g grid) Len() int          { return len(g) }
func (g grid) At(slot int) *Item { return g[slot] }

func stack(entry int, count, maxStack uint32) *Item {
	return &Item{Entry: entry, Count: count, MaxStack: maxStack}
}

func TestReserve_RequestedEmptySlot(t *testing.T) {
	g := make(grid, 4)
	p, err := Reserve(g, stack(1, 5, 20), 2, false, AnySlot)
	require.NoError(t, err)
	assert.Equal(t, []Placement{{Slot: 2, Count: 5}}, p)
}

func TestReserve_MergeThenEmpty(t *testing.T) {
	g := grid{nil, stack(1, 45, 50), nil, stack(1, 48, 50), stack(2, 1, 50)}
	p, err := Reserve(g, stack(1, 20, 50), AnySlot, false, AnySlot)
	require.NoError(t, err)
	assert.Equal(t, []Placement{{Slot: 1, Count: 5}, {Slot: 3, Count: 2}, {Slot: 0, Count: 13}}, p)
}

func TestReserve_RequestedSlotOverflows(t *testing.T) {
	g := grid{nil, stack(1, 15, 20), nil}
	p, err := Reserve(g, stack(1, 10, 20), 1, false, AnySlot)
	require.NoError(t, err)
	assert.Equal(t, []Placement{{Slot: 1, Count: 5}, {Slot: 0, Count: 5}}, p)
}

func TestReserve_RequestedSlotMismatch(t *testing.T) {
	g := grid{stack(2, 1, 20)}
	_, err := Reserve(g, stack(1, 1, 20), 0, false, AnySlot)
	assert.ErrorIs(t, err, ErrCantStack)

	_, err = Reserve(g, stack(1, 1, 20), 5, false, AnySlot)
	assert.ErrorIs(t, err, ErrCantStack)
}

func TestReserve_SwapIgnoresOccupant(t *testing.T) {
	g := grid{stack(2, 1, 1)}
	p, err := Reserve(g, stack(1, 1, 1), 0, true, AnySlot)
	require.NoError(t, err)
	assert.Equal(t, []Placement{{Slot: 0, Count: 1}}, p)
}

func TestReserve_SkipAndSelf(t *testing.T) {
	moving := stack(1, 4, 20)
	g := grid{stack(1, 6, 20), moving, nil}
	p, err := Reserve(g, moving, AnySlot, false, 0)
	require.NoError(t, err)
	assert.Equal(t, []Placement{{Slot: 1, Count: 4}}, p, "skip is never a target, the moving item's own slot counts as empty")
}

func TestReserve_NonStackableSkipsMerge(t *testing.T) {
	g := grid{stack(1, 1, 1), nil}
	p, err := Reserve(g, stack(1, 1, 1), AnySlot, false, AnySlot)
	require.NoError(t, err)
	assert.Equal(t, []Placement{{Slot: 1, Count: 1}}, p)
}

func TestReserve_NoSpace(t *testing.T) {
	g := grid{stack(1, 20, 20), stack(2, 1, 1)}
	_, err := Reserve(g, stack(1, 3, 20), AnySlot, false, AnySlot)
	assert.ErrorIs(t, err, ErrNoSpace)
}
