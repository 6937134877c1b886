package guild

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Directory is the registry of loaded guilds, indexed by id, name and
// member.
type Directory struct {
	mu       sync.RWMutex
	guilds   map[int64]*Guild
	byName   map[string]int64
	byMember map[int64]int64
	nextID   atomic.Int64
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		guilds:   make(map[int64]*Guild),
		byName:   make(map[string]int64),
		byMember: make(map[int64]int64),
	}
}

func nameKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Add registers g and indexes its members.
func (d *Directory) Add(g *Guild) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.guilds[g.ID] = g
	d.byName[nameKey(g.Name)] = g.ID
	for id := range g.members {
		d.byMember[id] = g.ID
	}
	d.observeLocked(g.ID)
}

// Remove forgets guild id and its member index entries.
func (d *Directory) Remove(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	g, ok := d.guilds[id]
	if !ok {
		return
	}
	delete(d.guilds, id)
	delete(d.byName, nameKey(g.Name))
	for charID, gid := range d.byMember {
		if gid == id {
			delete(d.byMember, charID)
		}
	}
}

// Get returns the guild with the given id, or nil.
func (d *Directory) Get(id int64) *Guild {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.guilds[id]
}

// ByName returns the guild with the given name, ignoring case.
func (d *Directory) ByName(name string) *Guild {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.guilds[d.byName[nameKey(name)]]
}

// ByMember returns the guild charID belongs to, or nil.
func (d *Directory) ByMember(charID int64) *Guild {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byMember[charID]
	if !ok {
		return nil
	}
	return d.guilds[id]
}

// All returns every guild ordered by id.
func (d *Directory) All() []*Guild {
	d.mu.RLock()
	out := make([]*Guild, 0, len(d.guilds))
	for _, g := range d.guilds {
		out = append(out, g)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of guilds.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.guilds)
}

// NextID returns an unused guild id.
func (d *Directory) NextID() int64 { return d.nextID.Add(1) }

func (d *Directory) observeLocked(id int64) {
	for {
		cur := d.nextID.Load()
		if id <= cur || d.nextID.CompareAndSwap(cur, id) {
			return
		}
	}
}

// claimMember binds charID to guildID unless it already belongs to a guild.
func (d *Directory) claimMember(charID, guildID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byMember[charID]; ok {
		return false
	}
	d.byMember[charID] = guildID
	return true
}

// releaseMember drops charID from the member index.
func (d *Directory) releaseMember(charID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.byMember, charID)
}

// claimName reserves a guild name. It fails if the name is taken.
func (d *Directory) claimName(name string, guildID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := nameKey(name)
	if _, ok := d.byName[k]; ok {
		return false
	}
	d.byName[k] = guildID
	return true
}

func (d *Directory) releaseName(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.byName, nameKey(name))
}
