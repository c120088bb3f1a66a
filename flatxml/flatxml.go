// Package flatxml turns an XML document into a flat sequence of element
// occurrences in document order. Each node carries the slash separated path of
// qualified element names from the root, its attributes and its text.
//
// Siblings with the same name share a path. Namespace prefixes are kept
// verbatim and never translated, so a node may have a path like:
//
//	/gmi:MI_Metadata/gmd:identificationInfo/gmd:MD_DataIdentification
package flatxml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	ErrNoElements      = errors.New("flatxml: no elements")
	ErrUnclosed        = errors.New("flatxml: unclosed element")
	ErrMismatchedEnd   = errors.New("flatxml: mismatched end element")
	ErrMultipleRoots   = errors.New("flatxml: more than one root element")
	ErrTextOutsideRoot = errors.New("flatxml: character data outside root element")
)

// Attr is a single attribute, Name is the qualified name as written, e.g.
// "xlink:title".
type Attr struct {
	Name  string
	Value string
}

// Node is a single element occurrence.
type Node struct {
	// Name is the qualified element name.
	Name string
	// Path is the slash separated sequence of element names from the root
	// down to and including this element. It always starts with a slash.
	Path string
	// Attrs in document order, nil if the element has none.
	Attrs []Attr
	// Text is the character data of this element, trimmed.
	Text string
	// Parent is the index of the parent node in the document, -1 for the
	// root element.
	Parent int
}

// Attr returns the value of an attribute. The qualified name is tried first,
// then the local name, since producers differ in whether they report a
// namespace prefix.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	local := localName(name)
	for _, a := range n.Attrs {
		if localName(a.Name) == local {
			return a.Value, true
		}
	}
	return "", false
}

// AttrValue is like Attr, but returns the empty string for a missing attribute.
func (n *Node) AttrValue(name string) string {
	v, _ := n.Attr(name)
	return v
}

func (n *Node) String() string {
	return fmt.Sprintf("%s %v %q", n.Path, n.Attrs, n.Text)
}

// Document is an immutable sequence of nodes in pre-order.
type Document struct {
	nodes []Node
}

// Len returns the number of nodes.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.nodes)
}

// At returns the node at index i.
func (d *Document) At(i int) *Node {
	return &d.nodes[i]
}

// Parent returns the parent of a node or nil for the root.
func (d *Document) Parent(n *Node) *Node {
	if n.Parent < 0 {
		return nil
	}
	return &d.nodes[n.Parent]
}

// Iter returns a forward iterator over all nodes.
func (d *Document) Iter() *Iterator {
	return &Iterator{doc: d, i: -1}
}

// Iterator walks the nodes of a document, use like a bufio.Scanner.
type Iterator struct {
	doc *Document
	i   int
}

// Next advances to the next node and reports whether there is one.
func (it *Iterator) Next() bool {
	if it.i >= it.doc.Len() {
		return false
	}
	it.i++
	return it.i < it.doc.Len()
}

// Node returns the current node.
func (it *Iterator) Node() *Node {
	return it.doc.At(it.i)
}

// ParseBytes flattens an XML document held in memory.
func ParseBytes(b []byte) (*Document, error) {
	return Parse(bytes.NewReader(b))
}

// Parse reads an XML document and flattens it. A leading byte order mark is
// removed. Any syntax error, unbalanced markup or a document without elements
// results in an error and no document.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	dec.CharsetReader = charsetReader
	var (
		doc   = &Document{}
		text  [][]byte // per node character data
		stack []int    // indices of open elements
	)
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flatxml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && len(doc.nodes) > 0 {
				return nil, ErrMultipleRoots
			}
			var (
				parent = -1
				path   string
				name   = qualifiedName(t.Name)
			)
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
				path = doc.nodes[parent].Path
			}
			node := Node{
				Name:   name,
				Path:   path + "/" + name,
				Parent: parent,
			}
			for _, a := range t.Attr {
				node.Attrs = append(node.Attrs, Attr{Name: qualifiedName(a.Name), Value: a.Value})
			}
			doc.nodes = append(doc.nodes, node)
			text = append(text, nil)
			stack = append(stack, len(doc.nodes)-1)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: </%s>", ErrMismatchedEnd, qualifiedName(t.Name))
			}
			top := stack[len(stack)-1]
			if name := qualifiedName(t.Name); name != doc.nodes[top].Name {
				return nil, fmt.Errorf("%w: <%s> closed by </%s>", ErrMismatchedEnd, doc.nodes[top].Name, name)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, ErrTextOutsideRoot
				}
				continue
			}
			i := stack[len(stack)-1]
			text[i] = append(text[i], t...)
		}
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: <%s>", ErrUnclosed, doc.nodes[stack[len(stack)-1]].Name)
	}
	if len(doc.nodes) == 0 {
		return nil, ErrNoElements
	}
	for i := range doc.nodes {
		doc.nodes[i].Text = strings.TrimSpace(string(text[i]))
	}
	return doc, nil
}

// charsetReader decodes declared encodings. UTF-16 input has already been
// decoded after its byte order mark.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	if strings.HasPrefix(strings.ToLower(label), "utf-16") {
		return input, nil
	}
	return charset.NewReaderLabel(label, input)
}

func qualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func localName(name string) string {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}
