// Package catalogue holds the process-wide tables that independently loaded
// models share: skeleton nodes by name, shader properties by name, and the
// blend cookie that stamps every write with the draw it belongs to.
package catalogue

import "sync/atomic"

// Cookie identifies one draw's writes to shared node and property state.
type Cookie uint32

// CookieBits is the width of the cookie counter. Cookies wrap at 1<<CookieBits.
const CookieBits = 28

const cookieMask = 1<<CookieBits - 1

// NoCookie never equals a counter value, so a fresh stamp reads as untouched.
const NoCookie Cookie = ^Cookie(0)

// Counter hands out blend cookies. One counter is shared by every SuperModel
// drawn in a process.
type Counter struct {
	v atomic.Uint32
}

// Next advances the counter and returns the new cookie. Wraparound is
// deliberate: a stamp left over from 1<<CookieBits draws ago is as stale as
// any other.
func (c *Counter) Next() Cookie {
	for {
		old := c.v.Load()
		next := (old + 1) & cookieMask
		if c.v.CompareAndSwap(old, next) {
			return Cookie(next)
		}
	}
}

// Current returns the cookie of the draw in progress.
func (c *Counter) Current() Cookie {
	return Cookie(c.v.Load())
}

// Catalogues groups the shared tables handed to registries and instances.
type Catalogues struct {
	Nodes      *NodeCatalogue
	Properties *PropertyCatalogue
	Cookies    *Counter
}

// New returns an empty set of catalogues.
func New() *Catalogues {
	return &Catalogues{
		Nodes:      NewNodeCatalogue(),
		Properties: NewPropertyCatalogue(),
		Cookies:    &Counter{},
	}
}
