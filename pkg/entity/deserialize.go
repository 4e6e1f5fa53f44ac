package entity

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/xrmkit/xrmsoap/pkg/soap"
)

// Deserialize reads an entity node (an a:Entity, or a b:value typed as one)
// from a response. Unknown value types are kept as opaque text.
func Deserialize(el *etree.Element) *BusinessEntity {
	e := New("")
	if el == nil {
		return e
	}

	var formatted *etree.Element
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "Attributes":
			for _, kvp := range child.ChildElements() {
				key, value := keyValue(kvp)
				if key == "" {
					continue
				}
				e.Set(key, decodeValue(value))
			}
		case "FormattedValues":
			formatted = child
		case "Id":
			e.ID = strings.TrimSpace(soap.NodeText(child))
		case "LogicalName":
			e.LogicalName = strings.TrimSpace(soap.NodeText(child))
		}
	}

	if formatted != nil {
		for _, kvp := range formatted.ChildElements() {
			key, value := keyValue(kvp)
			v, ok := e.attrs[key]
			if !ok || value == nil {
				continue
			}
			v.FormattedValue = soap.NodeText(value)
			e.attrs[key] = v
		}
	}

	return e
}

// DeserializeAll reads every a:Entity below an a:Entities node.
func DeserializeAll(entities *etree.Element) []*BusinessEntity {
	if entities == nil {
		return nil
	}
	children := entities.ChildElements()
	out := make([]*BusinessEntity, 0, len(children))
	for _, child := range children {
		out = append(out, Deserialize(child))
	}
	return out
}

func keyValue(kvp *etree.Element) (string, *etree.Element) {
	var key string
	var value *etree.Element
	for _, c := range kvp.ChildElements() {
		switch c.Tag {
		case "key":
			key = strings.TrimSpace(soap.NodeText(c))
		case "value":
			value = c
		}
	}
	return key, value
}

func decodeValue(el *etree.Element) Value {
	if el == nil || soap.IsNil(el) {
		return Null()
	}

	typ := soap.TypeAttr(el)
	switch typ {
	case "OptionSetValue", "Money":
		return Value{Type: ValueType(typ), Text: strings.TrimSpace(childText(el, "Value"))}

	case "EntityReference":
		ref := ReadReference(el)
		return Value{Type: TypeEntityReference, Text: ref.ID, Reference: &ref}

	case "EntityCollection":
		v := Value{Type: TypeEntityCollection}
		if entities := child(el, "Entities"); entities != nil {
			v.Entities = DeserializeAll(entities)
		}
		return v

	case "AliasedValue":
		v := decodeValue(child(el, "Value"))
		v.Alias = &Alias{
			AttributeLogicalName: strings.TrimSpace(childText(el, "AttributeLogicalName")),
			EntityLogicalName:    strings.TrimSpace(childText(el, "EntityLogicalName")),
		}
		return v

	case "":
		return Value{Type: TypeString, Text: soap.NodeText(el)}

	default:
		return Value{Type: ValueType(typ), Text: soap.NodeText(el)}
	}
}

// ReadReference reads the Id, LogicalName and Name children of an
// EntityReference node.
func ReadReference(el *etree.Element) EntityReference {
	return EntityReference{
		ID:          strings.TrimSpace(childText(el, "Id")),
		LogicalName: strings.TrimSpace(childText(el, "LogicalName")),
		Name:        childText(el, "Name"),
	}
}

func child(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func childText(el *etree.Element, tag string) string {
	c := child(el, tag)
	if c == nil || soap.IsNil(c) {
		return ""
	}
	return soap.NodeText(c)
}
