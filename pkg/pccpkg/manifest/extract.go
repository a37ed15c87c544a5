package manifest

// MaxGroups bounds how many repeated elements ExtractGroups will read from
// one slot.
const MaxGroups = 100

// ExtractedGroup is one normalized element of a manifest section: the
// element node and its attributes.
type ExtractedGroup struct {
	Node  *Node
	Attrs map[string]string
}

// Element is a named child pulled out by ExtractElements.
type Element struct {
	Key   string
	Value Value
}

// ExtractGroups normalizes a child slot into an ordered list of groups.
// A single element and a list holding one element produce the same result.
// Empty nodes are skipped and at most MaxGroups are returned.
func ExtractGroups(v Value) []ExtractedGroup {
	if v.IsEmpty() {
		return nil
	}

	nodes := v.Nodes()
	out := make([]ExtractedGroup, 0, len(nodes))
	for i, n := range nodes {
		if i >= MaxGroups {
			break
		}
		if n.IsEmpty() {
			continue
		}
		out = append(out, ExtractedGroup{Node: n, Attrs: ExtractAttributes(n, nil)})
	}
	return out
}

// ExtractAttributes returns defaults overlaid with the node's attribute bag.
// The defaults map is never modified.
func ExtractAttributes(n *Node, defaults map[string]string) map[string]string {
	out := make(map[string]string, len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	if n == nil {
		return out
	}
	for k, v := range n.Attrs {
		out[k] = v
	}
	return out
}

// ExtractElements returns the named children of n that are present and not
// empty, in the order the keys are given.
func ExtractElements(n *Node, keys ...string) []Element {
	var out []Element
	for _, key := range keys {
		v := n.Child(key)
		if v.IsEmpty() {
			continue
		}
		out = append(out, Element{Key: key, Value: v})
	}
	return out
}

// FilterAttributes returns exactly the requested keys, blank when absent.
func FilterAttributes(attrs map[string]string, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = attrs[k]
	}
	return out
}
