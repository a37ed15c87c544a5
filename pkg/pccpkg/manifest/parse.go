package manifest

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Reserved keys of the JSON manifest form.
const (
	AttributesKey = "@attributes"
	ValueKey      = "_value"
)

// ErrMissingType is returned when the root element has no type attribute.
var ErrMissingType = errors.New("manifest is missing the extension 'type' attribute: expecting an extension type like 'component'")

// ParseError describes a manifest that could not be loaded.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("manifest XML file %s cannot be loaded: %v", filepath.Base(e.File), e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseTree parses manifest text into a node tree. XML is the normal form;
// text starting with '{' is read as the JSON form where attribute bags live
// under "@attributes" and element text under "_value".
func ParseTree(data []byte) (*Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}
	if trimmed[0] == '{' {
		return parseJSON(trimmed)
	}
	return parseXML(trimmed)
}

// element is the raw form of an XML element before slot shapes are decided.
type element struct {
	name     string
	attrs    map[string]string
	text     strings.Builder
	children []*element
}

func parseXML(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true

	var (
		stack []*element
		root  *element
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: t.Name.Local}
			for _, a := range t.Attr {
				if el.attrs == nil {
					el.attrs = make(map[string]string, len(t.Attr))
				}
				el.attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			} else if root == nil {
				root = el
			} else {
				return nil, errors.New("multiple root elements")
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected closing tag </%s>", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].name)
	}
	return root.toNode(), nil
}

func (el *element) toNode() *Node {
	n := &Node{
		Name:  el.name,
		Attrs: el.attrs,
		Text:  strings.TrimSpace(el.text.String()),
	}

	byName := make(map[string][]*Node)
	var order []string
	for _, c := range el.children {
		if _, ok := byName[c.name]; !ok {
			order = append(order, c.name)
		}
		byName[c.name] = append(byName[c.name], c.toNode())
	}
	for _, name := range order {
		nodes := byName[name]
		switch {
		case len(nodes) > 1:
			n.Set(name, Group(nodes...))
		case nodes[0].structured():
			n.Set(name, Single(nodes[0]))
		default:
			n.Set(name, Scalar(nodes[0].Text))
		}
	}
	return n
}

func parseJSON(data []byte) (*Node, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	// A document wrapped in {"extension": {...}} is unwrapped.
	if len(raw) == 1 {
		for name, v := range raw {
			if obj, ok := v.(map[string]any); ok && name != AttributesKey {
				return jsonNode(name, obj), nil
			}
		}
	}
	return jsonNode("extension", raw), nil
}

func jsonNode(name string, obj map[string]any) *Node {
	n := &Node{Name: name}

	if bag, ok := obj[AttributesKey].(map[string]any); ok {
		for k, v := range bag {
			n.SetAttr(k, cast.ToString(v))
		}
	}
	if v, ok := obj[ValueKey]; ok {
		n.Text = strings.TrimSpace(cast.ToString(v))
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		if k == AttributesKey || k == ValueKey {
			continue
		}
		keys = append(keys, k)
	}
	// Go maps lose document order; sort for a stable tree.
	sort.Strings(keys)

	for _, k := range keys {
		switch v := obj[k].(type) {
		case nil:
		case map[string]any:
			if items, ok := indexedItems(v); ok {
				n.Set(k, Group(jsonItems(k, items)...))
				continue
			}
			n.Set(k, Single(jsonNode(k, v)))
		case []any:
			n.Set(k, Group(jsonItems(k, v)...))
		default:
			n.Set(k, Scalar(strings.TrimSpace(cast.ToString(v))))
		}
	}
	return n
}

// indexedItems reads an object keyed "0", "1", ... as a list. Reading stops
// at the first missing index or at MaxGroups.
func indexedItems(obj map[string]any) ([]any, bool) {
	if _, ok := obj["0"]; !ok {
		return nil, false
	}
	var items []any
	for i := 0; i < MaxGroups; i++ {
		v, ok := obj[strconv.Itoa(i)]
		if !ok {
			break
		}
		items = append(items, v)
	}
	return items, true
}

func jsonItems(name string, items []any) []*Node {
	nodes := make([]*Node, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			nodes = append(nodes, jsonNode(name, m))
			continue
		}
		if item != nil {
			nodes = append(nodes, &Node{Name: name, Text: strings.TrimSpace(cast.ToString(item))})
		}
	}
	return nodes
}
