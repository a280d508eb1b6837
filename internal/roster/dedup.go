package roster

import (
	"github.com/patrickmn/go-cache"

	"ewroster/internal/model"
)

// DedupKey identifies one logical roster entry. Start is the HHMM start
// clock of timed events and empty for all-day events.
type DedupKey struct {
	Date  model.Date
	Title string
	Start string
}

func (k DedupKey) String() string {
	s := k.Date.String() + "\x00" + k.Title
	if k.Start != "" {
		s += "\x00" + k.Start
	}
	return s
}

// DedupSet remembers emitted keys for the lifetime of a session. Entries
// never expire.
type DedupSet struct {
	c *cache.Cache
}

func NewDedupSet() *DedupSet {
	return &DedupSet{c: cache.New(cache.NoExpiration, 0)}
}

func (d *DedupSet) Contains(k DedupKey) bool {
	_, ok := d.c.Get(k.String())
	return ok
}

// Insert adds k and reports whether it was new.
func (d *DedupSet) Insert(k DedupKey) bool {
	return d.c.Add(k.String(), struct{}{}, cache.NoExpiration) == nil
}

func (d *DedupSet) Len() int {
	return d.c.ItemCount()
}
