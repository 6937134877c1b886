package guild

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectory_AddAndLookup(t *testing.T) {
	d := NewDirectory()
	g := New(DefaultConfig(), Summary{ID: 7, Name: "Night Watch"})
	g.RestoreMember(NewMember(7, CharacterInfo{CharID: 70}, 0, 1))
	d.Add(g)

	assert.Same(t, g, d.Get(7))
	assert.Same(t, g, d.ByName("night watch"))
	assert.Same(t, g, d.ByMember(70))
	assert.Nil(t, d.ByMember(71))
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, int64(8), d.NextID(), "ids continue after the highest loaded guild")

	d.Remove(7)
	assert.Nil(t, d.Get(7))
	assert.Nil(t, d.ByName("Night Watch"))
	assert.Nil(t, d.ByMember(70))
}

func TestDirectory_All(t *testing.T) {
	d := NewDirectory()
	for _, id := range []int64{3, 1, 2} {
		d.Add(New(DefaultConfig(), Summary{ID: id, Name: string(rune('a' + id))}))
	}
	all := d.All()
	require.Len(t, all, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{all[0].ID, all[1].ID, all[2].ID})
}

func TestDirectory_ClaimMemberOnce(t *testing.T) {
	d := NewDirectory()
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(gid int64) {
			defer wg.Done()
			if d.claimMember(42, gid) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(int64(i))
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	d.releaseMember(42)
	assert.True(t, d.claimMember(42, 1))
}

func TestDirectory_ClaimName(t *testing.T) {
	d := NewDirectory()
	assert.True(t, d.claimName("Alpha", 1))
	assert.False(t, d.claimName(" alpha ", 2))
	d.releaseName("ALPHA")
	assert.True(t, d.claimName("alpha", 2))
}
