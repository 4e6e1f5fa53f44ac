package entity

import (
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

// Serialize validates e and writes it as the b:value of a Target parameter.
// Nothing is written when validation fails.
func (e *BusinessEntity) Serialize(w *soap.Writer) error {
	return e.SerializeAs(w, "b:value")
}

// SerializeAs is Serialize with a caller-chosen element name.
func (e *BusinessEntity) SerializeAs(w *soap.Writer, name string) error {
	if err := e.Validate(); err != nil {
		return err
	}
	w.Open(name, soap.Type("a:Entity"))
	e.writeBody(w)
	w.Close(name)
	return nil
}

func (e *BusinessEntity) writeBody(w *soap.Writer) {
	w.Open("a:Attributes", soap.Xmlns("b", soap.NSGeneric))
	for _, k := range e.keys {
		w.Open("a:KeyValuePairOfstringanyType")
		w.IdentElement("b:key", k)
		writeValue(w, e.attrs[k])
		w.Close("a:KeyValuePairOfstringanyType")
	}
	w.Close("a:Attributes")

	w.Nil("a:EntityState")
	w.Empty("a:FormattedValues", soap.Xmlns("b", soap.NSGeneric))
	w.IdentElement("a:Id", canonicalOrEmpty(e.ID))
	w.IdentElement("a:LogicalName", e.LogicalName)
	w.Empty("a:RelatedEntities", soap.Xmlns("b", soap.NSGeneric))
}

func writeValue(w *soap.Writer, v Value) {
	switch v.Type {
	case TypeNull:
		w.Nil("b:value")

	case TypeOptionSet, TypeMoney:
		w.Open("b:value", soap.Type("a:"+string(v.Type)))
		w.Element("a:Value", v.Text)
		w.Close("b:value")

	case TypeEntityReference:
		w.Open("b:value", soap.Type("a:EntityReference"))
		writeReference(w, *v.Reference)
		w.Close("b:value")

	case TypeEntityCollection:
		w.Open("b:value", soap.Type("a:EntityCollection"))
		w.Open("a:Entities")
		for _, child := range v.Entities {
			w.Open("a:Entity")
			child.writeBody(w)
			w.Close("a:Entity")
		}
		w.Close("a:Entities")
		w.Nil("a:EntityName")
		w.Nil("a:MinActiveRowVersion")
		w.IdentElement("a:MoreRecords", "false")
		w.Nil("a:PagingCookie")
		w.IdentElement("a:TotalRecordCount", "0")
		w.IdentElement("a:TotalRecordCountLimitExceeded", "false")
		w.Close("b:value")

	case TypeGUID:
		w.IdentElement("b:value", canonicalOrEmpty(v.Text),
			soap.Type("c:guid"), soap.Xmlns("c", soap.NSSerialization))

	case TypeInt, TypeBoolean, TypeDateTime, TypeDecimal, TypeDouble:
		w.Element("b:value", v.Text, soap.Type("c:"+string(v.Type)), soap.Xmlns("c", soap.NSSchema))

	default:
		// Strings and types this package does not model go out as strings.
		w.Element("b:value", v.Text, soap.Type("c:string"), soap.Xmlns("c", soap.NSSchema))
	}
}

// writeReference writes the Id, LogicalName and Name children of an
// EntityReference. The reference must already be validated.
func writeReference(w *soap.Writer, ref EntityReference) {
	w.IdentElement("a:Id", canonicalOrEmpty(ref.ID))
	w.IdentElement("a:LogicalName", ref.LogicalName)
	if ref.Name == "" {
		w.Nil("a:Name")
	} else {
		w.Element("a:Name", ref.Name)
	}
}

// WriteReference writes the children of an EntityReference element after
// validating it.
func WriteReference(w *soap.Writer, ref EntityReference) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	writeReference(w, ref)
	return nil
}

func canonicalOrEmpty(id string) string {
	if id == "" {
		return EmptyID
	}
	canonical, err := CanonicalID(id)
	if err != nil {
		return EmptyID
	}
	return canonical
}
