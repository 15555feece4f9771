package serialization

import "strings"

// Attr is one attribute of a parsed node, in document order
type Attr struct {
	Name  string
	Value string
}

// Node is a parsed XML element. Text holds the concatenated character data
// of a node without child elements.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []*Node
	Text     string

	parent *Node
}

// Attr returns the value of the named attribute
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or def when absent
func (n *Node) AttrOr(name, def string) string {
	if v, ok := n.Attr(name); ok {
		return v
	}
	return def
}

// attrAny returns the first present attribute among names
func (n *Node) attrAny(names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := n.Attr(name); ok {
			return v, true
		}
	}
	return "", false
}

// SetAttr sets or appends an attribute
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// Parent returns the enclosing node, nil for the root
func (n *Node) Parent() *Node {
	return n.parent
}

// AppendChild adds c as the last child of n
func (n *Node) AppendChild(c *Node) {
	c.parent = n
	n.Children = append(n.Children, c)
}

// Child returns the first direct child with tag
func (n *Node) Child(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// Walk visits n and its descendants in document order until fn returns false
func (n *Node) Walk(fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// FindNode follows a slash-separated path of tags below root, taking the
// first match at each step. An empty path returns root.
func FindNode(root *Node, path string) *Node {
	if root == nil {
		return nil
	}
	n := root
	for _, tag := range strings.Split(strings.Trim(path, "/"), "/") {
		if tag == "" {
			continue
		}
		if n = n.Child(tag); n == nil {
			return nil
		}
	}
	return n
}

// FindAllNodes returns every node at or below root with tag, in document order
func FindAllNodes(root *Node, tag string) []*Node {
	if root == nil {
		return nil
	}
	var out []*Node
	root.Walk(func(n *Node) bool {
		if n.Tag == tag {
			out = append(out, n)
		}
		return true
	})
	return out
}
