package colors

import (
	"strconv"
	"sync"
)

// Google Calendar event colors are "1" to "11".
const paletteSize = 11

// Palette hands out a stable Google event color per event title. Explicit
// overrides win; other titles get the next color in first-seen order,
// recycling once all eleven are taken.
type Palette struct {
	mu        sync.Mutex
	overrides map[string]string
	assigned  map[string]string
	next      int
}

func NewPalette(overrides map[string]string) *Palette {
	o := make(map[string]string, len(overrides))
	for title, id := range overrides {
		o[title] = id
	}
	return &Palette{
		overrides: o,
		assigned:  make(map[string]string),
	}
}

// ColorID returns the color for title. An empty title gets "" so the
// calendar's default color applies.
func (p *Palette) ColorID(title string) string {
	if title == "" {
		return ""
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if id, ok := p.overrides[title]; ok {
		return id
	}
	if id, ok := p.assigned[title]; ok {
		return id
	}

	id := strconv.Itoa(p.next%paletteSize + 1)
	p.next++
	p.assigned[title] = id
	return id
}

// Valid reports whether id is a Google event color ID.
func Valid(id string) bool {
	n, err := strconv.Atoi(id)
	return err == nil && n >= 1 && n <= paletteSize
}
