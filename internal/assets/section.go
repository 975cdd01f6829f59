package assets

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/supermodel/pkg/math"
)

// Section is one mapping in a hierarchical asset document. Read helpers
// return the supplied default when a key is absent or has the wrong shape,
// matching how asset documents treat every field as optional.
type Section struct {
	name string
	node *yaml.Node
}

// Parse decodes a YAML asset document. The document root must be a mapping.
func Parse(name string, data []byte) (*Section, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(ErrMalformed, "%s: %v", name, err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, errors.Wrapf(ErrMalformed, "%s: empty document", name)
		}
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, errors.Wrapf(ErrMalformed, "%s: root is not a mapping", name)
	}
	return &Section{name: name, node: root}, nil
}

// Name returns the key the section was opened with, or the document name
// for a root section.
func (s *Section) Name() string {
	return s.name
}

func (s *Section) lookup(key string) *yaml.Node {
	if s == nil || s.node == nil || s.node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(s.node.Content); i += 2 {
		if s.node.Content[i].Value == key {
			return s.node.Content[i+1]
		}
	}
	return nil
}

// Has reports whether key is present.
func (s *Section) Has(key string) bool {
	return s.lookup(key) != nil
}

// Keys returns the mapping keys in document order.
func (s *Section) Keys() []string {
	if s == nil || s.node == nil {
		return nil
	}
	keys := make([]string, 0, len(s.node.Content)/2)
	for i := 0; i+1 < len(s.node.Content); i += 2 {
		keys = append(keys, s.node.Content[i].Value)
	}
	return keys
}

func decodeScalar[T any](n *yaml.Node, def T) T {
	if n == nil || n.Kind != yaml.ScalarNode {
		return def
	}
	var v T
	if err := n.Decode(&v); err != nil {
		return def
	}
	return v
}

// ReadString reads a string value.
func (s *Section) ReadString(key, def string) string {
	return decodeScalar(s.lookup(key), def)
}

// ReadFloat reads a float value.
func (s *Section) ReadFloat(key string, def float32) float32 {
	return decodeScalar(s.lookup(key), def)
}

// ReadInt reads an integer value.
func (s *Section) ReadInt(key string, def int) int {
	return decodeScalar(s.lookup(key), def)
}

// ReadBool reads a boolean value.
func (s *Section) ReadBool(key string, def bool) bool {
	return decodeScalar(s.lookup(key), def)
}

func (s *Section) readFloats(key string, n int) ([]float32, bool) {
	node := s.lookup(key)
	if node == nil || node.Kind != yaml.SequenceNode || len(node.Content) != n {
		return nil, false
	}
	var out []float32
	if err := node.Decode(&out); err != nil {
		return nil, false
	}
	return out, true
}

// ReadVec3 reads a three element sequence.
func (s *Section) ReadVec3(key string, def math.Vec3) math.Vec3 {
	f, ok := s.readFloats(key, 3)
	if !ok {
		return def
	}
	return math.Vec3{X: f[0], Y: f[1], Z: f[2]}
}

// ReadVec4 reads a four element sequence.
func (s *Section) ReadVec4(key string, def math.Vec4) math.Vec4 {
	f, ok := s.readFloats(key, 4)
	if !ok {
		return def
	}
	return math.Vec4{f[0], f[1], f[2], f[3]}
}

// ReadQuat reads an XYZW quaternion.
func (s *Section) ReadQuat(key string, def math.Quat) math.Quat {
	f, ok := s.readFloats(key, 4)
	if !ok {
		return def
	}
	return math.Quat{X: f[0], Y: f[1], Z: f[2], W: f[3]}
}

// ReadStrings reads a sequence of strings. A single scalar is returned as
// a one element slice.
func (s *Section) ReadStrings(key string) []string {
	node := s.lookup(key)
	if node == nil {
		return nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}
	case yaml.SequenceNode:
		var out []string
		if err := node.Decode(&out); err != nil {
			return nil
		}
		return out
	}
	return nil
}

// Open returns the child mapping under key, or nil.
func (s *Section) Open(key string) *Section {
	node := s.lookup(key)
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	return &Section{name: key, node: node}
}

// OpenSections returns every mapping under key. A sequence yields one
// section per mapping element; a single mapping yields one section.
func (s *Section) OpenSections(key string) []*Section {
	node := s.lookup(key)
	if node == nil {
		return nil
	}
	switch node.Kind {
	case yaml.MappingNode:
		return []*Section{{name: key, node: node}}
	case yaml.SequenceNode:
		out := make([]*Section, 0, len(node.Content))
		for _, child := range node.Content {
			if child.Kind == yaml.MappingNode {
				out = append(out, &Section{name: key, node: child})
			}
		}
		return out
	}
	return nil
}

// Decode unmarshals the value under key into v.
func (s *Section) Decode(key string, v any) error {
	node := s.lookup(key)
	if node == nil {
		return errors.Wrapf(ErrNotFound, "key %q", key)
	}
	if err := node.Decode(v); err != nil {
		return errors.Wrapf(ErrMalformed, "key %q: %v", key, err)
	}
	return nil
}
