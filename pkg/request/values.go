package request

import (
	"strconv"
	"strings"

	"github.com/xrmkit/xrmsoap/pkg/entity"
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

// scalarPrefix picks a prefix for an inline type namespace that does not
// collide with the generic prefix already used by the element name.
func scalarPrefix(name string) string {
	if strings.HasPrefix(name, "c:") {
		return "d"
	}
	return "c"
}

// EntityValue is a record sent as the Target of Create and Update.
type EntityValue struct {
	Entity *entity.BusinessEntity
}

func (v EntityValue) writeValue(w *soap.Writer, name string) error {
	if v.Entity == nil {
		return ErrMissingParameter
	}
	return v.Entity.SerializeAs(w, name)
}

// EntityReferenceValue is a reference to a single record.
type EntityReferenceValue struct {
	Ref entity.EntityReference
}

func (v EntityReferenceValue) writeValue(w *soap.Writer, name string) error {
	if err := v.Ref.Validate(); err != nil {
		return err
	}
	w.Open(name, soap.Type("a:EntityReference"))
	_ = entity.WriteReference(w, v.Ref)
	w.Close(name)
	return nil
}

// ColumnSetValue lists the columns to return. An empty list requests all
// columns.
type ColumnSetValue struct {
	Columns []string
}

func (v ColumnSetValue) writeValue(w *soap.Writer, name string) error {
	cols := nonEmpty(v.Columns)
	for _, c := range cols {
		if err := entity.ValidateLogicalName(c); err != nil {
			return err
		}
	}

	w.Open(name, soap.Type("a:ColumnSet"))
	if len(cols) == 0 {
		w.IdentElement("a:AllColumns", "true")
		w.Empty("a:Columns", soap.Xmlns("b", soap.NSArrays))
	} else {
		w.IdentElement("a:AllColumns", "false")
		w.Open("a:Columns", soap.Xmlns("c", soap.NSArrays))
		for _, c := range cols {
			w.IdentElement("c:string", c)
		}
		w.Close("a:Columns")
	}
	w.Close(name)
	return nil
}

// FetchExpressionValue carries a normalized FetchXML query.
type FetchExpressionValue struct {
	Query string
}

func (v FetchExpressionValue) writeValue(w *soap.Writer, name string) error {
	if v.Query == "" {
		return ErrMissingParameter
	}
	w.Open(name, soap.Type("a:FetchExpression"))
	w.Element("a:Query", v.Query)
	w.Close(name)
	return nil
}

// QueryExpressionValue carries a caller-built QueryExpression body. The XML
// is trusted and written as is.
type QueryExpressionValue struct {
	XML string
}

func (v QueryExpressionValue) writeValue(w *soap.Writer, name string) error {
	if strings.TrimSpace(v.XML) == "" {
		return ErrMissingParameter
	}
	w.Open(name, soap.Type("a:QueryExpression"))
	w.Ident(v.XML)
	w.Close(name)
	return nil
}

// RelationshipValue names an N:N or 1:N relationship. An empty role is sent
// as nil.
type RelationshipValue struct {
	SchemaName string
	Role       string
}

func (v RelationshipValue) writeValue(w *soap.Writer, name string) error {
	if err := entity.ValidateLogicalName(v.SchemaName); err != nil {
		return err
	}
	w.Open(name, soap.Type("a:Relationship"))
	if v.Role == "" {
		w.Nil("a:PrimaryEntityRole")
	} else {
		w.Element("a:PrimaryEntityRole", v.Role)
	}
	w.IdentElement("a:SchemaName", v.SchemaName)
	w.Close(name)
	return nil
}

// EntityReferenceCollectionValue is a list of related records.
type EntityReferenceCollectionValue struct {
	Refs []entity.EntityReference
}

func (v EntityReferenceCollectionValue) writeValue(w *soap.Writer, name string) error {
	for _, ref := range v.Refs {
		if err := ref.Validate(); err != nil {
			return err
		}
	}
	w.Open(name, soap.Type("a:EntityReferenceCollection"))
	for _, ref := range v.Refs {
		w.Open("a:EntityReference")
		_ = entity.WriteReference(w, ref)
		w.Close("a:EntityReference")
	}
	w.Close(name)
	return nil
}

// OptionSetValue is a picklist value such as a state or status code.
type OptionSetValue struct {
	Value int
}

func (v OptionSetValue) writeValue(w *soap.Writer, name string) error {
	w.Open(name, soap.Type("a:OptionSetValue"))
	w.IdentElement("a:Value", strconv.Itoa(v.Value))
	w.Close(name)
	return nil
}

// PrincipalAccessValue grants a user or team a set of access rights.
type PrincipalAccessValue struct {
	AccessMask []string
	Principal  entity.EntityReference
}

func (v PrincipalAccessValue) writeValue(w *soap.Writer, name string) error {
	if err := v.Principal.Validate(); err != nil {
		return err
	}
	w.Open(name, soap.Type("b:PrincipalAccess"))
	w.Element("b:AccessMask", strings.Join(nonEmpty(v.AccessMask), " "))
	w.Open("b:Principal")
	_ = entity.WriteReference(w, v.Principal)
	w.Close("b:Principal")
	w.Close(name)
	return nil
}

// StringValue is an XMLSchema string.
type StringValue string

func (v StringValue) writeValue(w *soap.Writer, name string) error {
	p := scalarPrefix(name)
	w.Element(name, string(v), soap.Type(p+":string"), soap.Xmlns(p, soap.NSSchema))
	return nil
}

// BoolValue is an XMLSchema boolean.
type BoolValue bool

func (v BoolValue) writeValue(w *soap.Writer, name string) error {
	p := scalarPrefix(name)
	w.IdentElement(name, strconv.FormatBool(bool(v)), soap.Type(p+":boolean"), soap.Xmlns(p, soap.NSSchema))
	return nil
}

// GuidValue is a serialization guid. An empty id is sent as the zero GUID.
type GuidValue string

func (v GuidValue) writeValue(w *soap.Writer, name string) error {
	id := entity.EmptyID
	if v != "" {
		canonical, err := entity.CanonicalID(string(v))
		if err != nil {
			return err
		}
		id = canonical
	}
	w.IdentElement(name, id, soap.Type("ser:guid"), soap.Xmlns("ser", soap.NSSerialization))
	return nil
}

// EntityFiltersValue selects which parts of entity metadata to return.
type EntityFiltersValue []string

func (v EntityFiltersValue) writeValue(w *soap.Writer, name string) error {
	p := scalarPrefix(name)
	w.Element(name, strings.Join(nonEmpty(v), " "), soap.Type(p+":EntityFilters"), soap.Xmlns(p, soap.NSMetadata))
	return nil
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
