package soap

import (
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// ParseResponse parses a response body into a document. Bodies declaring a
// non-UTF-8 encoding are transcoded.
func ParseResponse(body []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
	}
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, err
	}
	return doc, nil
}

// SelectNodes returns every element of doc matching path.
func SelectNodes(doc *etree.Document, path string) []*etree.Element {
	if doc == nil {
		return nil
	}
	return Select(&doc.Element, path)
}

// SelectSingleNode returns the first element of doc matching path, or nil.
func SelectSingleNode(doc *etree.Document, path string) *etree.Element {
	if doc == nil {
		return nil
	}
	return SelectOne(&doc.Element, path)
}

// SelectSingleNodeText returns the text of the first element of doc matching
// path. Returns an empty string if the path is not found.
func SelectSingleNodeText(doc *etree.Document, path string) string {
	return NodeText(SelectSingleNode(doc, path))
}

// Select finds all elements matching path relative to node.
//
// Supported syntax:
//   - //p:name - find anywhere below node (node itself included)
//   - /p:name - child of node
//   - p:name/p:child - step through children
//   - * - any element
//
// Prefixes resolve through the fixed table documented on the package.
func Select(node *etree.Element, path string) []*etree.Element {
	if node == nil || path == "" {
		return nil
	}

	descendant := strings.HasPrefix(path, "//")
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return nil
	}
	steps := strings.Split(path, "/")

	var current []*etree.Element
	first := parseStep(steps[0])
	if descendant {
		collectDescendants(node, first, &current)
	} else {
		for _, child := range node.ChildElements() {
			if first.matches(child) {
				current = append(current, child)
			}
		}
	}

	for _, raw := range steps[1:] {
		step := parseStep(raw)
		var next []*etree.Element
		for _, el := range current {
			for _, child := range el.ChildElements() {
				if step.matches(child) {
					next = append(next, child)
				}
			}
		}
		current = next
	}

	return current
}

// SelectOne returns the first element matching path relative to node.
func SelectOne(node *etree.Element, path string) *etree.Element {
	found := Select(node, path)
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

// SelectText returns the text of the first element matching path relative to
// node, or an empty string.
func SelectText(node *etree.Element, path string) string {
	return NodeText(SelectOne(node, path))
}

// NodeText returns the concatenated character data below el.
func NodeText(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var b strings.Builder
	writeText(el, &b)
	return b.String()
}

func writeText(el *etree.Element, b *strings.Builder) {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			b.WriteString(t.Data)
		case *etree.Element:
			writeText(t, b)
		}
	}
}

// LocalName returns the tag of el without its namespace prefix.
func LocalName(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return el.Tag
}

type step struct {
	prefix string
	local  string
}

func parseStep(s string) step {
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		return step{prefix: s[:idx], local: s[idx+1:]}
	}
	return step{local: s}
}

func (s step) matches(el *etree.Element) bool {
	if s.local != "*" && el.Tag != s.local {
		return false
	}
	if s.prefix == "" {
		return true
	}
	ns, known := prefixes[s.prefix]
	uri := el.NamespaceURI()
	if known && uri != "" {
		return uri == ns
	}
	// Unresolvable namespaces fall back to comparing the literal prefix
	return el.Space == s.prefix
}

func collectDescendants(el *etree.Element, s step, out *[]*etree.Element) {
	if el.Tag != "" && s.matches(el) {
		*out = append(*out, el)
	}
	for _, child := range el.ChildElements() {
		collectDescendants(child, s, out)
	}
}
