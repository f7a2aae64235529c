package engine

// worklist is a FIFO of locations with pending structures. A location is
// queued at most once at a time; pushing a queued location is a no-op.
//
// Locations are visited in the order they first became pending, which
// keeps runs reproducible.
type worklist struct {
	items  []string
	queued map[string]bool
}

func newWorklist() *worklist {
	return &worklist{
		items:  make([]string, 0, 16),
		queued: make(map[string]bool),
	}
}

// Push adds loc unless it is already queued. It reports whether loc was
// added.
func (w *worklist) Push(loc string) bool {
	if w.queued[loc] {
		return false
	}
	w.queued[loc] = true
	w.items = append(w.items, loc)
	return true
}

// Pop removes and returns the oldest location.
func (w *worklist) Pop() (string, bool) {
	if len(w.items) == 0 {
		return "", false
	}
	loc := w.items[0]
	w.items[0] = ""
	w.items = w.items[1:]
	delete(w.queued, loc)
	return loc, true
}

// Len returns the number of queued locations.
func (w *worklist) Len() int {
	return len(w.items)
}
