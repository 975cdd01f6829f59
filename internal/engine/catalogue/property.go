package catalogue

import (
	"sync"

	"github.com/Faultbox/supermodel/pkg/math"
)

// PropertyWrite is one masked write into a property slot.
type PropertyWrite struct {
	Index int
	Value math.Vec4
	Mask  uint8
}

// PropertyCatalogue maps shader parameter names to stable slot indices.
// Slots are append-only so indices stay valid for the life of the process.
type PropertyCatalogue struct {
	mu      sync.RWMutex
	indices map[string]int
	names   []string
	values  []math.Vec4
}

// NewPropertyCatalogue creates an empty catalogue.
func NewPropertyCatalogue() *PropertyCatalogue {
	return &PropertyCatalogue{indices: make(map[string]int)}
}

// Index returns the slot for name, registering it if absent.
func (c *PropertyCatalogue) Index(name string) int {
	c.mu.RLock()
	idx, ok := c.indices[name]
	c.mu.RUnlock()
	if ok {
		return idx
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if idx, ok := c.indices[name]; ok {
		return idx
	}
	idx = len(c.values)
	c.indices[name] = idx
	c.names = append(c.names, name)
	c.values = append(c.values, math.Vec4{})
	return idx
}

// Lookup returns the slot for name without registering it.
func (c *PropertyCatalogue) Lookup(name string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.indices[name]
	return idx, ok
}

// Name returns the name of a slot.
func (c *PropertyCatalogue) Name(index int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.names) {
		return ""
	}
	return c.names[index]
}

// Value returns the committed value of a slot.
func (c *PropertyCatalogue) Value(index int) math.Vec4 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.values) {
		return math.Vec4{}
	}
	return c.values[index]
}

// Apply commits a batch of writes under one lock, so readers see either
// none or all of them. Writes to unknown slots are skipped.
func (c *PropertyCatalogue) Apply(writes []PropertyWrite) {
	if len(writes) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range writes {
		if w.Index < 0 || w.Index >= len(c.values) {
			continue
		}
		c.values[w.Index] = c.values[w.Index].Masked(w.Value, w.Mask)
	}
}

// Len returns the number of registered slots.
func (c *PropertyCatalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
