package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xrmkit/xrmsoap/pkg/cli/internal/parse"
	"github.com/xrmkit/xrmsoap/pkg/entity"
)

// parseAttribute reads an --attr value of the form name=value or
// name:type=value. Types: string (default), int, bool, decimal, double,
// money, optionset, guid, datetime (RFC 3339), ref (entity/id) and null.
func parseAttribute(s string) (string, entity.Value, error) {
	key, raw, ok := parse.KeyValue(s, '=')
	if !ok || key == "" {
		return "", entity.Value{}, fmt.Errorf("invalid attribute %q: expected name=value or name:type=value", s)
	}

	name, typ, typed := strings.Cut(key, ":")
	if !typed {
		typ = "string"
	}
	v, err := attributeValue(strings.ToLower(typ), raw)
	if err != nil {
		return "", entity.Value{}, fmt.Errorf("attribute %s: %w", name, err)
	}
	return name, v, nil
}

func attributeValue(typ, raw string) (entity.Value, error) {
	switch typ {
	case "string":
		return entity.String(raw), nil
	case "null":
		return entity.Null(), nil
	case "int":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return entity.Value{}, fmt.Errorf("invalid int %q", raw)
		}
		return entity.Int(n), nil
	case "optionset":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return entity.Value{}, fmt.Errorf("invalid option set value %q", raw)
		}
		return entity.OptionSet(n), nil
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return entity.Value{}, fmt.Errorf("invalid bool %q", raw)
		}
		return entity.Bool(b), nil
	case "decimal", "money":
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return entity.Value{}, fmt.Errorf("invalid %s %q", typ, raw)
		}
		if typ == "money" {
			return entity.Money(d), nil
		}
		return entity.Decimal(d), nil
	case "double":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return entity.Value{}, fmt.Errorf("invalid double %q", raw)
		}
		return entity.Double(f), nil
	case "guid":
		if _, err := entity.CanonicalID(raw); err != nil {
			return entity.Value{}, err
		}
		return entity.GUID(raw), nil
	case "datetime":
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return entity.Value{}, fmt.Errorf("invalid datetime %q: want RFC 3339", raw)
		}
		return entity.DateTime(t), nil
	case "ref":
		logicalName, id, ok := strings.Cut(raw, "/")
		if !ok {
			return entity.Value{}, fmt.Errorf("invalid reference %q: want entity/id", raw)
		}
		return entity.Reference(entity.EntityReference{LogicalName: logicalName, ID: id}), nil
	default:
		return entity.Value{}, fmt.Errorf("unknown attribute type %q", typ)
	}
}

// buildEntity assembles a record from --attr values.
func buildEntity(logicalName, id string, attrs []string) (*entity.BusinessEntity, error) {
	e := entity.New(logicalName)
	e.ID = id
	for _, a := range attrs {
		name, v, err := parseAttribute(a)
		if err != nil {
			return nil, err
		}
		e.Set(name, v)
	}
	return e, nil
}
