package checks

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrMultipleLifecycle is returned when more than one lifecycle name has
// been accumulated.
var ErrMultipleLifecycle = errors.New("more than one lifecycle info")

// Accumulator is an ordered, duplicate-free collection of fired names.
// Names are only removed by Reset.
//
// Accumulator is safe for concurrent use.
type Accumulator struct {
	mu    sync.RWMutex
	names []string
	index map[string]bool
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{index: make(map[string]bool)}
}

// Add appends names not already present and returns those that were new.
func (a *Accumulator) Add(names ...string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var added []string
	for _, n := range names {
		if a.index[n] {
			continue
		}
		a.index[n] = true
		a.names = append(a.names, n)
		added = append(added, n)
	}
	return added
}

// Has reports whether name has been accumulated.
func (a *Accumulator) Has(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.index[name]
}

// Len returns the number of accumulated names.
func (a *Accumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.names)
}

// All returns a copy of the accumulated names in insertion order.
func (a *Accumulator) All() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.names))
	copy(out, a.names)
	return out
}

// Reset removes every accumulated name.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.names = nil
	a.index = make(map[string]bool)
}

// Filter returns the accumulated names matching pattern. Malformed names
// never match.
func (a *Accumulator) Filter(pattern Name) []string {
	var out []string
	for _, s := range a.All() {
		n, err := ParseName(s)
		if err != nil {
			continue
		}
		if n.Matches(pattern) {
			out = append(out, s)
		}
	}
	return out
}

// Lifecycle returns the single accumulated lifecycle-category name, or ""
// when there is none.
func (a *Accumulator) Lifecycle() (string, error) {
	names := a.Filter(Name{Category: CategoryLifecycle})
	switch len(names) {
	case 0:
		return "", nil
	case 1:
		return names[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrMultipleLifecycle, strings.Join(names, ", "))
	}
}
