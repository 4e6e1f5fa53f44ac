package entity

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ValueType is the wire type of an attribute value.
type ValueType string

// Wire types understood by Serialize and Deserialize. Scalar types match the
// XMLSchema type names used in i:type attributes.
const (
	TypeNull             ValueType = "null"
	TypeString           ValueType = "string"
	TypeInt              ValueType = "int"
	TypeBoolean          ValueType = "boolean"
	TypeDateTime         ValueType = "dateTime"
	TypeDecimal          ValueType = "decimal"
	TypeDouble           ValueType = "double"
	TypeGUID             ValueType = "guid"
	TypeOptionSet        ValueType = "OptionSetValue"
	TypeMoney            ValueType = "Money"
	TypeEntityReference  ValueType = "EntityReference"
	TypeEntityCollection ValueType = "EntityCollection"
)

// Alias describes where an aliased value in a fetch result came from.
type Alias struct {
	AttributeLogicalName string `json:"attributeLogicalName"`
	EntityLogicalName    string `json:"entityLogicalName"`
}

// Value is a single attribute. Text holds the wire form for scalar, option
// set and money values; Reference and Entities hold structured values.
type Value struct {
	Type           ValueType         `json:"type"`
	Text           string            `json:"value,omitempty"`
	Reference      *EntityReference  `json:"reference,omitempty"`
	Entities       []*BusinessEntity `json:"entities,omitempty"`
	FormattedValue string            `json:"formattedValue,omitempty"`
	Alias          *Alias            `json:"alias,omitempty"`
}

// Null returns an explicit null value.
func Null() Value { return Value{Type: TypeNull} }

// String returns a string value.
func String(s string) Value { return Value{Type: TypeString, Text: s} }

// Int returns a whole number value.
func Int(n int) Value { return Value{Type: TypeInt, Text: strconv.Itoa(n)} }

// Bool returns a two-option value.
func Bool(b bool) Value { return Value{Type: TypeBoolean, Text: strconv.FormatBool(b)} }

// DateTime returns a date and time value in RFC 3339 form.
func DateTime(t time.Time) Value {
	return Value{Type: TypeDateTime, Text: t.Format(time.RFC3339)}
}

// Decimal returns a decimal number value.
func Decimal(d decimal.Decimal) Value { return Value{Type: TypeDecimal, Text: d.String()} }

// Double returns a floating point value.
func Double(f float64) Value {
	return Value{Type: TypeDouble, Text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// GUID returns a unique identifier value.
func GUID(id string) Value { return Value{Type: TypeGUID, Text: id} }

// OptionSet returns an option set value.
func OptionSet(n int) Value { return Value{Type: TypeOptionSet, Text: strconv.Itoa(n)} }

// Money returns a currency value.
func Money(d decimal.Decimal) Value { return Value{Type: TypeMoney, Text: d.String()} }

// Reference returns a lookup value.
func Reference(ref EntityReference) Value {
	return Value{Type: TypeEntityReference, Text: ref.ID, Reference: &ref}
}

// Collection returns an entity collection value, used for activity parties.
func Collection(entities ...*BusinessEntity) Value {
	return Value{Type: TypeEntityCollection, Entities: entities}
}

// IsNull reports whether v is an explicit null.
func (v Value) IsNull() bool { return v.Type == TypeNull }

// Int parses whole number and option set values.
func (v Value) Int() (int, error) {
	n, err := strconv.Atoi(v.Text)
	if err != nil {
		return 0, fmt.Errorf("%s value %q is not an integer: %w", v.Type, v.Text, err)
	}
	return n, nil
}

// Bool parses two-option values.
func (v Value) Bool() (bool, error) {
	b, err := strconv.ParseBool(v.Text)
	if err != nil {
		return false, fmt.Errorf("%s value %q is not a boolean: %w", v.Type, v.Text, err)
	}
	return b, nil
}

// Time parses date and time values.
func (v Value) Time() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v.Text)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s value %q is not a timestamp: %w", v.Type, v.Text, err)
	}
	return t, nil
}

// Decimal parses decimal and money values without losing precision.
func (v Value) Decimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.Text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s value %q is not a decimal: %w", v.Type, v.Text, err)
	}
	return d, nil
}

// Float parses floating point values.
func (v Value) Float() (float64, error) {
	f, err := strconv.ParseFloat(v.Text, 64)
	if err != nil {
		return 0, fmt.Errorf("%s value %q is not a number: %w", v.Type, v.Text, err)
	}
	return f, nil
}

// Display returns the formatted value when the server sent one, otherwise
// the raw text. References display their name.
func (v Value) Display() string {
	if v.FormattedValue != "" {
		return v.FormattedValue
	}
	if v.Reference != nil && v.Reference.Name != "" {
		return v.Reference.Name
	}
	return v.Text
}
