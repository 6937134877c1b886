package guild

import "time"

// Record is one entry of a log ring.
type Record[T any] struct {
	ID   uint32    `json:"id"`
	At   time.Time `json:"at"`
	Data T         `json:"data"`
}

// Ring is a fixed-capacity log. Appending to a full ring first evicts the
// oldest entry. Ids wrap modulo the capacity, so persisted rows are reused.
type Ring[T any] struct {
	capacity int
	entries  []Record[T]
	last     uint32
	started  bool
}

// NewRing creates an empty ring holding at most capacity entries.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{capacity: capacity}
}

func (r *Ring[T]) Cap() int { return r.capacity }
func (r *Ring[T]) Len() int { return len(r.entries) }

// NextID returns the id the entry appended after pending other not yet
// added entries will receive. The first id of an empty ring is 0.
func (r *Ring[T]) NextID(pending int) uint32 {
	if !r.started {
		return uint32(pending % r.capacity)
	}
	return uint32((int(r.last) + 1 + pending) % r.capacity)
}

// Add appends rec, evicting the oldest entry when the ring is full.
func (r *Ring[T]) Add(rec Record[T]) {
	if len(r.entries) >= r.capacity {
		copy(r.entries, r.entries[1:])
		r.entries = r.entries[:len(r.entries)-1]
	}
	r.entries = append(r.entries, rec)
	r.last = rec.ID
	r.started = true
}

// Load appends a persisted entry. Entries must be loaded oldest first.
func (r *Ring[T]) Load(rec Record[T]) { r.Add(rec) }

// Entries returns the entries oldest first.
func (r *Ring[T]) Entries() []Record[T] {
	return append([]Record[T](nil), r.entries...)
}

// Get returns the entry with the given id.
func (r *Ring[T]) Get(id uint32) (Record[T], bool) {
	for _, e := range r.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Record[T]{}, false
}

// Update applies fn to the payload of the entry with the given id.
func (r *Ring[T]) Update(id uint32, fn func(*T)) bool {
	for i := range r.entries {
		if r.entries[i].ID == id {
			fn(&r.entries[i].Data)
			return true
		}
	}
	return false
}

// EventEntry is a guild event log payload.
type EventEntry struct {
	Type     EventLogType `json:"type"`
	PlayerID int64        `json:"player_id"`
	TargetID int64        `json:"target_id,omitempty"`
	NewRank  uint8        `json:"new_rank,omitempty"`
}

// BankEntry is a bank log payload. ItemOrMoney holds the item entry for item
// events and the amount for money events.
type BankEntry struct {
	Type        BankLogType `json:"type"`
	Tab         int         `json:"tab"`
	PlayerID    int64       `json:"player_id"`
	ItemOrMoney uint64      `json:"item_or_money"`
	Count       uint32      `json:"count,omitempty"`
	DestTab     int         `json:"dest_tab,omitempty"`
	TxnID       string      `json:"txn_id"`
}

// NewsEntry is a guild news payload.
type NewsEntry struct {
	Type     NewsType `json:"type"`
	PlayerID int64    `json:"player_id"`
	Flags    uint32   `json:"flags"`
	Value    uint32   `json:"value"`
}

// Sticky reports whether the entry is pinned.
func (n NewsEntry) Sticky() bool { return n.Flags&NewsFlagSticky != 0 }
