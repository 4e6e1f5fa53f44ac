package fetchxml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xrmkit/xrmsoap/pkg/entity"
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

// ErrInvalidQuery is returned by Query.Fragment for inconsistent queries.
var ErrInvalidQuery = errors.New("fetchxml: invalid query")

// Order is one sort clause.
type Order struct {
	Attribute  string `json:"attribute" yaml:"attribute"`
	Descending bool   `json:"descending,omitempty" yaml:"descending,omitempty"`
}

// Query selects records of one entity by attribute values. Every field is a
// list; an empty list means "not specified". Values[i] holds the accepted
// values of Attributes[i].
type Query struct {
	EntityName string     `json:"entityName" yaml:"entityName"`
	Attributes []string   `json:"attributes" yaml:"attributes"`
	Values     [][]string `json:"values" yaml:"values"`
	ColumnSet  []string   `json:"columnSet,omitempty" yaml:"columnSet,omitempty"`
	OrderBy    []Order    `json:"orderBy,omitempty" yaml:"orderBy,omitempty"`
}

// Fragment builds the <entity> fragment for the query. A single value
// becomes an eq condition; several become an in condition.
func (q Query) Fragment() (string, error) {
	if err := entity.ValidateLogicalName(q.EntityName); err != nil {
		return "", fmt.Errorf("%w: entity name: %w", ErrInvalidQuery, err)
	}
	if len(q.Attributes) != len(q.Values) {
		return "", fmt.Errorf("%w: %d attributes but %d value lists", ErrInvalidQuery, len(q.Attributes), len(q.Values))
	}

	var b strings.Builder
	b.WriteString("<entity name='")
	b.WriteString(q.EntityName)
	b.WriteString("'>")

	columns := 0
	for _, c := range q.ColumnSet {
		if c == "" {
			continue
		}
		if err := entity.ValidateLogicalName(c); err != nil {
			return "", fmt.Errorf("%w: column: %w", ErrInvalidQuery, err)
		}
		b.WriteString("<attribute name='" + c + "' />")
		columns++
	}
	if columns == 0 {
		b.WriteString("<all-attributes />")
	}

	for _, o := range q.OrderBy {
		if o.Attribute == "" {
			continue
		}
		if err := entity.ValidateLogicalName(o.Attribute); err != nil {
			return "", fmt.Errorf("%w: order: %w", ErrInvalidQuery, err)
		}
		b.WriteString("<order attribute='" + o.Attribute + "'")
		if o.Descending {
			b.WriteString(" descending='true'")
		}
		b.WriteString(" />")
	}

	if len(q.Attributes) > 0 {
		b.WriteString("<filter type='and'>")
		for i, attr := range q.Attributes {
			if err := entity.ValidateLogicalName(attr); err != nil {
				return "", fmt.Errorf("%w: condition: %w", ErrInvalidQuery, err)
			}
			writeCondition(&b, attr, q.Values[i])
		}
		b.WriteString("</filter>")
	}

	b.WriteString("</entity>")
	return b.String(), nil
}

func writeCondition(b *strings.Builder, attr string, values []string) {
	switch len(values) {
	case 0:
		b.WriteString("<condition attribute='" + attr + "' operator='null' />")
	case 1:
		b.WriteString("<condition attribute='" + attr + "' operator='eq' value='" + soap.Encode(values[0]) + "' />")
	default:
		b.WriteString("<condition attribute='" + attr + "' operator='in'>")
		for _, v := range values {
			b.WriteString("<value>" + soap.Encode(v) + "</value>")
		}
		b.WriteString("</condition>")
	}
}
