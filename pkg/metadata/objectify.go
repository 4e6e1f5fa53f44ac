// Package metadata turns metadata responses (RetrieveAllEntities,
// RetrieveEntity, RetrieveAttribute) into generic trees of Object, []any
// and primitive values.
package metadata

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/xrmkit/xrmsoap/pkg/soap"
)

// Keys added to objects by Objectify.
const (
	TypeKey = "_type"
	TextKey = "#text"
)

// Objectify converts a metadata subtree. The first matching rule wins:
//
//  1. i:nil="true" → nil
//  2. text-only leaf → primitive, coerced by element name
//  3. known array element → []any, each object child tagged with _type
//  4. no child elements → nil
//  5. otherwise → Object, tagged with _type when i:type is present
func Objectify(el *etree.Element) any {
	if el == nil || soap.IsNil(el) {
		return nil
	}

	children := el.ChildElements()
	if len(children) == 0 {
		text := soap.NodeText(el)
		if strings.TrimSpace(text) != "" {
			if rule, ok := rules[el.Tag]; ok {
				return rule(text)
			}
			return text
		}
	}

	if arrays[el.Tag] {
		list := make([]any, 0, len(children))
		for _, child := range children {
			v := Objectify(child)
			if obj, ok := v.(Object); ok {
				if typ := soap.TypeAttr(child); typ != "" {
					obj[TypeKey] = typ
				} else {
					obj[TypeKey] = child.Tag
				}
			}
			list = append(list, v)
		}
		return list
	}

	if len(children) == 0 {
		return nil
	}

	obj := Object{}
	if soap.HasTypeAttr(el) {
		obj[TypeKey] = soap.TypeAttr(el)
	}
	for _, child := range children {
		obj[child.Tag] = Objectify(child)
	}
	if text := directText(el); text != "" {
		obj[TextKey] = text
	}
	return obj
}

// ObjectifyAll converts each node and, when typ is set, stamps it on every
// resulting object.
func ObjectifyAll(nodes []*etree.Element, typ string) []any {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		v := Objectify(n)
		if obj, ok := v.(Object); ok && typ != "" {
			obj[TypeKey] = typ
		}
		out = append(out, v)
	}
	return out
}

func directText(el *etree.Element) string {
	var b strings.Builder
	for _, tok := range el.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			b.WriteString(cd.Data)
		}
	}
	return strings.TrimSpace(b.String())
}
