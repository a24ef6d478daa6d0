// Package view builds the dashboard markup as a declarative node tree and
// renders it with golang.org/x/net/html, which escapes every text and
// attribute value.
package view

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attr is an element attribute.
type Attr struct {
	Key string
	Val string
}

// Node is an element or, when Tag is empty, a text node.
type Node struct {
	Tag      string
	Attrs    []Attr
	Text     string
	Children []*Node
}

// El creates an element node.
func El(tag string, attrs []Attr, children ...*Node) *Node {
	return &Node{Tag: tag, Attrs: attrs, Children: children}
}

// Text creates a text node.
func Text(s string) *Node {
	return &Node{Text: s}
}

// Attrs builds attributes from key/value pairs. A trailing odd key is ignored.
func Attrs(kv ...string) []Attr {
	attrs := make([]Attr, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, Attr{Key: kv[i], Val: kv[i+1]})
	}
	return attrs
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasClass reports whether the class attribute contains class.
func (n *Node) HasClass(class string) bool {
	v, ok := n.Attr("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// Find returns every node in the tree (n included) matching pred, in document order.
func (n *Node) Find(pred func(*Node) bool) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(x *Node) {
		if pred(x) {
			out = append(out, x)
		}
		for _, c := range x.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// ByID returns the first element with the given id.
func (n *Node) ByID(id string) *Node {
	found := n.Find(func(x *Node) bool {
		v, ok := x.Attr("id")
		return ok && v == id
	})
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

// TextContent concatenates all descendant text.
func (n *Node) TextContent() string {
	var b strings.Builder
	for _, x := range n.Find(func(x *Node) bool { return x.Tag == "" }) {
		b.WriteString(x.Text)
	}
	return b.String()
}

func (n *Node) html() *html.Node {
	if n.Tag == "" {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}
	h := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
	}
	for _, a := range n.Attrs {
		h.Attr = append(h.Attr, html.Attribute{Key: a.Key, Val: a.Val})
	}
	for _, c := range n.Children {
		h.AppendChild(c.html())
	}
	return h
}

// Render writes n as HTML.
func Render(w io.Writer, n *Node) error {
	return html.Render(w, n.html())
}

// RenderString renders n to a string.
func RenderString(n *Node) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
