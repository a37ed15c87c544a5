// Package manifest parses extension manifest descriptors into a tagged node
// tree and provides the group, attribute and element extraction primitives
// used by the section processors.
//
// Every child slot of a node is one of three shapes, decided once at parse
// time:
//
//	Scalar  <name>Example</name>
//	Single  <files folder="site"><filename>a.php</filename></files>
//	Group   two or more sibling elements sharing a tag
//
// Consumers never inspect the shape directly. ExtractGroups treats a single
// element and a list of one element identically.
package manifest

import "strings"

// Kind identifies the shape of a child Value.
type Kind int

// Value shapes.
const (
	KindEmpty Kind = iota
	KindScalar
	KindSingle
	KindGroup
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSingle:
		return "single"
	case KindGroup:
		return "group"
	default:
		return "empty"
	}
}

// Value is the content of one named child slot of a Node.
type Value struct {
	kind  Kind
	text  string
	nodes []*Node
}

// Scalar returns a scalar Value holding text.
func Scalar(text string) Value {
	return Value{kind: KindScalar, text: text}
}

// Single returns a Value holding exactly one structured node.
func Single(n *Node) Value {
	if n == nil {
		return Value{}
	}
	return Value{kind: KindSingle, nodes: []*Node{n}}
}

// Group returns a Value holding an ordered list of nodes.
func Group(nodes ...*Node) Value {
	if len(nodes) == 0 {
		return Value{}
	}
	return Value{kind: KindGroup, nodes: nodes}
}

// Kind reports the shape of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// Text returns the scalar text, or the text of a single node.
func (v Value) Text() string {
	switch v.kind {
	case KindScalar:
		return v.text
	case KindSingle:
		return v.nodes[0].Text
	default:
		return ""
	}
}

// Node returns the node of a single value, nil otherwise.
func (v Value) Node() *Node {
	if v.kind == KindSingle {
		return v.nodes[0]
	}
	return nil
}

// Nodes returns the value as a list of nodes. A scalar becomes one
// anonymous node carrying its text.
func (v Value) Nodes() []*Node {
	switch v.kind {
	case KindScalar:
		return []*Node{{Text: v.text}}
	case KindSingle, KindGroup:
		out := make([]*Node, len(v.nodes))
		copy(out, v.nodes)
		return out
	default:
		return nil
	}
}

// IsEmpty reports whether the value carries nothing meaningful: a blank
// scalar, or no non-empty node.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindScalar:
		return strings.TrimSpace(v.text) == ""
	case KindSingle, KindGroup:
		for _, n := range v.nodes {
			if !n.IsEmpty() {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Node is one element of the manifest tree.
type Node struct {
	// Name is the element tag. Anonymous nodes built from scalars have none.
	Name string

	// Attrs is the attribute bag. Keys are case-sensitive.
	Attrs map[string]string

	// Text is the trimmed character data of the element.
	Text string

	children map[string]Value
	order    []string
}

// NewNode creates an empty node with the given tag.
func NewNode(name string) *Node {
	return &Node{Name: name}
}

// Child returns the named child slot. A missing child is an empty Value.
func (n *Node) Child(name string) Value {
	if n == nil || n.children == nil {
		return Value{}
	}
	return n.children[name]
}

// Has reports whether the named child exists, empty or not.
func (n *Node) Has(name string) bool {
	if n == nil || n.children == nil {
		return false
	}
	_, ok := n.children[name]
	return ok
}

// Children returns the child names in document order.
func (n *Node) Children() []string {
	if n == nil {
		return nil
	}
	out := make([]string, len(n.order))
	copy(out, n.order)
	return out
}

// Set replaces the named child slot.
func (n *Node) Set(name string, v Value) *Node {
	if n.children == nil {
		n.children = make(map[string]Value)
	}
	if _, ok := n.children[name]; !ok {
		n.order = append(n.order, name)
	}
	n.children[name] = v
	return n
}

// Append adds a child element, promoting an existing slot of the same name
// to a group.
func (n *Node) Append(child *Node) *Node {
	existing := n.Child(child.Name)
	switch existing.kind {
	case KindEmpty:
		return n.Set(child.Name, Single(child))
	case KindScalar:
		prev := &Node{Name: child.Name, Text: existing.text}
		return n.Set(child.Name, Group(prev, child))
	default:
		nodes := append(existing.Nodes(), child)
		return n.Set(child.Name, Group(nodes...))
	}
}

// SetAttr sets an attribute value.
func (n *Node) SetAttr(key, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = value
	return n
}

// Attr returns an attribute value or the empty string.
func (n *Node) Attr(key string) string {
	if n == nil {
		return ""
	}
	return n.Attrs[key]
}

// IsEmpty reports whether the node has no text, no attributes and no
// non-empty children.
func (n *Node) IsEmpty() bool {
	if n == nil {
		return true
	}
	if strings.TrimSpace(n.Text) != "" || len(n.Attrs) > 0 {
		return false
	}
	for _, name := range n.order {
		if !n.children[name].IsEmpty() {
			return false
		}
	}
	return true
}

// structured reports whether the node needs more than a scalar to be
// represented.
func (n *Node) structured() bool {
	return len(n.Attrs) > 0 || len(n.order) > 0
}
