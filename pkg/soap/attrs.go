package soap

import (
	"strings"

	"github.com/beevik/etree"
)

// instanceAttr returns the XMLSchema-instance attribute with the given key.
func instanceAttr(el *etree.Element, key string) *etree.Attr {
	if el == nil {
		return nil
	}
	for i := range el.Attr {
		a := &el.Attr[i]
		if a.Key != key || a.Space == "" {
			continue
		}
		if a.Space == "i" || a.NamespaceURI() == NSInstance {
			return a
		}
	}
	return nil
}

// TypeAttr returns the i:type attribute of el with its prefix removed
// ("a:EntityReference" → "EntityReference"), or "" if absent.
func TypeAttr(el *etree.Element) string {
	a := instanceAttr(el, "type")
	if a == nil {
		return ""
	}
	if idx := strings.IndexByte(a.Value, ':'); idx >= 0 {
		return a.Value[idx+1:]
	}
	return a.Value
}

// HasTypeAttr reports whether el carries an i:type attribute.
func HasTypeAttr(el *etree.Element) bool {
	return instanceAttr(el, "type") != nil
}

// IsNil reports whether el is marked i:nil="true".
func IsNil(el *etree.Element) bool {
	a := instanceAttr(el, "nil")
	return a != nil && a.Value == "true"
}
