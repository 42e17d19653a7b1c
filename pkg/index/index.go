package index

import (
	"sync"

	"github.com/harrisonrobin/wastecal/pkg/model"
)

// EventIndex tracks the (calendar, title, date) pairs already submitted
// during one sync run. It lives only as long as the run; the calendar itself
// stays the source of truth across runs.
type EventIndex struct {
	mu      sync.Mutex
	claimed map[model.PairKey]struct{}
}

func NewEventIndex() *EventIndex {
	return &EventIndex{claimed: make(map[model.PairKey]struct{})}
}

// Claim registers key and reports whether this is the first time it was
// seen in the run.
func (idx *EventIndex) Claim(key model.PairKey) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.claimed[key]; exists {
		return false
	}
	idx.claimed[key] = struct{}{}
	return true
}

// Len is the number of distinct pairs claimed so far.
func (idx *EventIndex) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.claimed)
}
