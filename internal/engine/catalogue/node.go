package catalogue

import (
	"sort"
	"sync"

	"github.com/Faultbox/supermodel/pkg/math"
)

// Node is a named skeleton node shared by every model that references the
// name. Its blend state is only meaningful for the cookie it was stamped with.
type Node struct {
	name      string
	reference math.Transform

	blended math.Transform
	cookie  Cookie
	weight  float32

	world math.Mat4
}

// NewNode creates an unregistered node with a bind pose.
func NewNode(name string, reference math.Transform) *Node {
	return &Node{
		name:      name,
		reference: reference,
		blended:   reference,
		cookie:    NoCookie,
		world:     math.Identity(),
	}
}

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// Reference returns the bind pose of the first model that registered the node.
func (n *Node) Reference() math.Transform { return n.reference }

// Weight returns the accumulated blend weight for cookie, or 0 if the node
// has not been written during that draw.
func (n *Node) Weight(cookie Cookie) float32 {
	if n.cookie != cookie {
		return 0
	}
	return n.weight
}

// BlendClobber overwrites the accumulator for cookie regardless of earlier
// writes.
func (n *Node) BlendClobber(cookie Cookie, t math.Transform, weight float32) {
	n.cookie = cookie
	n.blended = t
	n.weight = weight
}

// Blend accumulates t with weight. The first write of a cookie replaces the
// accumulator; later writes move it towards t by weight/(old+weight).
func (n *Node) Blend(cookie Cookie, t math.Transform, weight float32) {
	if weight <= 0 {
		return
	}
	old := n.Weight(cookie)
	if old == 0 {
		n.BlendClobber(cookie, t, weight)
		return
	}
	sum := old + weight
	n.blended = n.blended.Blend(t, weight/sum)
	n.weight = sum
}

// Overlay applies a late write on top of whatever the draw produced so far:
// the accumulator moves towards t by weight and counts as fully claimed.
func (n *Node) Overlay(cookie Cookie, t math.Transform, weight float32) {
	if weight <= 0 {
		return
	}
	if n.Weight(cookie) == 0 {
		n.BlendClobber(cookie, t, 1)
		return
	}
	n.blended = n.blended.Blend(t, weight)
	if n.weight < 1 {
		n.weight = 1
	}
}

// Transform returns the blended transform for cookie, or the bind pose if
// the node was not written during that draw.
func (n *Node) Transform(cookie Cookie) math.Transform {
	if n.cookie != cookie {
		return n.reference
	}
	return n.blended
}

// SetWorld stores the composed world matrix.
func (n *Node) SetWorld(m math.Mat4) { n.world = m }

// World returns the last composed world matrix.
func (n *Node) World() math.Mat4 { return n.world }

// NodeCatalogue maps node names to their canonical shared Node.
type NodeCatalogue struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

// NewNodeCatalogue creates an empty catalogue.
func NewNodeCatalogue() *NodeCatalogue {
	return &NodeCatalogue{nodes: make(map[string]*Node)}
}

// Add registers n unless a node of the same name exists, and returns the
// canonical instance. Callers must use the returned node from then on.
func (c *NodeCatalogue) Add(n *Node) *Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.nodes[n.name]; ok {
		return existing
	}
	c.nodes[n.name] = n
	return n
}

// Find returns the canonical node for name, or nil.
func (c *NodeCatalogue) Find(name string) *Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nodes[name]
}

// Len returns the number of registered nodes.
func (c *NodeCatalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}

// Range calls fn for each node in name order while holding the read lock.
// fn must not call back into the catalogue.
func (c *NodeCatalogue) Range(fn func(n *Node) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.nodes))
	for name := range c.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !fn(c.nodes[name]) {
			return
		}
	}
}
