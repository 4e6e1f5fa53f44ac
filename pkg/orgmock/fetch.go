package orgmock

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/xrmkit/xrmsoap/pkg/entity"
)

// fetchQuery is the part of a FetchXML query the store can evaluate.
// Link entities and aggregates are ignored.
type fetchQuery struct {
	entityName string
	page       int
	count      int
	columns    []string // nil selects all attributes
	orders     []fetchOrder
	filters    []*etree.Element
}

type fetchOrder struct {
	attribute  string
	descending bool
}

func parseFetch(text string, defaultCount int) (*fetchQuery, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, fmt.Errorf("invalid fetch xml: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "fetch" {
		return nil, errors.New("invalid fetch xml: root element must be fetch")
	}
	ent := root.SelectElement("entity")
	if ent == nil || ent.SelectAttrValue("name", "") == "" {
		return nil, errors.New("invalid fetch xml: no entity")
	}

	q := &fetchQuery{
		entityName: ent.SelectAttrValue("name", ""),
		page:       atoiOr(root.SelectAttrValue("page", ""), 1),
		count:      atoiOr(root.SelectAttrValue("count", ""), defaultCount),
	}
	if q.page < 1 {
		q.page = 1
	}
	if q.count < 1 {
		q.count = defaultCount
	}

	if ent.SelectElement("all-attributes") == nil {
		for _, a := range ent.SelectElements("attribute") {
			q.columns = append(q.columns, a.SelectAttrValue("name", ""))
		}
	}
	for _, o := range ent.SelectElements("order") {
		q.orders = append(q.orders, fetchOrder{
			attribute:  o.SelectAttrValue("attribute", ""),
			descending: o.SelectAttrValue("descending", "false") == "true",
		})
	}
	q.filters = ent.SelectElements("filter")
	return q, nil
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// evaluator checks conditions against records. userID answers eq-userid.
type evaluator struct {
	userID string
}

func (ev evaluator) matches(q *fetchQuery, e *entity.BusinessEntity) (bool, error) {
	for _, f := range q.filters {
		ok, err := ev.filter(f, e)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (ev evaluator) filter(f *etree.Element, e *entity.BusinessEntity) (bool, error) {
	or := f.SelectAttrValue("type", "and") == "or"
	seen := false
	for _, c := range f.ChildElements() {
		var ok bool
		var err error
		switch c.Tag {
		case "condition":
			ok, err = ev.condition(c, e)
		case "filter":
			ok, err = ev.filter(c, e)
		default:
			continue
		}
		if err != nil {
			return false, err
		}
		seen = true
		if or && ok {
			return true, nil
		}
		if !or && !ok {
			return false, nil
		}
	}
	return !or || !seen, nil
}

func (ev evaluator) condition(c *etree.Element, e *entity.BusinessEntity) (bool, error) {
	attr := c.SelectAttrValue("attribute", "")
	op := c.SelectAttrValue("operator", "eq")
	values := conditionValues(c)

	v, present := e.Get(attr)
	isNull := !present || v.IsNull()
	text := v.Text

	switch op {
	case "null":
		return isNull, nil
	case "not-null":
		return !isNull, nil
	case "eq-userid":
		return !isNull && sameText(text, ev.userID), nil
	case "ne-userid":
		return isNull || !sameText(text, ev.userID), nil
	case "eq", "in":
		return !isNull && containsText(values, text), nil
	case "ne", "neq", "not-in":
		return isNull || !containsText(values, text), nil
	case "like":
		return !isNull && len(values) > 0 && like(text, values[0]), nil
	case "not-like":
		return isNull || len(values) == 0 || !like(text, values[0]), nil
	default:
		return false, fmt.Errorf("unsupported condition operator %q", op)
	}
}

func conditionValues(c *etree.Element) []string {
	if v := c.SelectAttr("value"); v != nil {
		return []string{v.Value}
	}
	var out []string
	for _, v := range c.SelectElements("value") {
		out = append(out, v.Text())
	}
	return out
}

func containsText(values []string, text string) bool {
	for _, v := range values {
		if sameText(v, text) {
			return true
		}
	}
	return false
}

// sameText compares GUIDs by value and everything else case-insensitively.
func sameText(a, b string) bool {
	if entity.GUIDsEqual(a, b) {
		return true
	}
	return strings.EqualFold(a, b)
}

// like supports % wildcards at either end of the pattern.
func like(text, pattern string) bool {
	text = strings.ToLower(text)
	pattern = strings.ToLower(pattern)
	prefix := strings.HasPrefix(pattern, "%")
	suffix := strings.HasSuffix(pattern, "%") && len(pattern) > 1
	core := strings.TrimSuffix(strings.TrimPrefix(pattern, "%"), "%")
	switch {
	case prefix && suffix:
		return strings.Contains(text, core)
	case prefix:
		return strings.HasSuffix(text, core)
	case suffix:
		return strings.HasPrefix(text, core)
	default:
		return text == core
	}
}

func sortRecords(records []*entity.BusinessEntity, orders []fetchOrder) {
	if len(orders) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, o := range orders {
			c := compareValues(records[i], records[j], o.attribute)
			if c == 0 {
				continue
			}
			if o.descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compareValues orders numbers numerically and everything else by text.
// Missing values sort first.
func compareValues(a, b *entity.BusinessEntity, attr string) int {
	av, aok := a.Get(attr)
	bv, bok := b.Get(attr)
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	}
	ad, aerr := decimal.NewFromString(av.Text)
	bd, berr := decimal.NewFromString(bv.Text)
	if aerr == nil && berr == nil {
		return ad.Cmp(bd)
	}
	return strings.Compare(strings.ToLower(av.Display()), strings.ToLower(bv.Display()))
}

// project keeps only the given columns. nil keeps everything.
func project(e *entity.BusinessEntity, columns []string) *entity.BusinessEntity {
	if columns == nil {
		return e
	}
	keep := make(map[string]bool, len(columns))
	for _, c := range columns {
		keep[strings.ToLower(c)] = true
	}
	for _, k := range e.Keys() {
		if !keep[strings.ToLower(k)] {
			e.Delete(k)
		}
	}
	return e
}

// pagingCookie mimics the cookie the service hands out for the next page.
func pagingCookie(entityName string, page int, records []*entity.BusinessEntity) string {
	var b strings.Builder
	b.WriteString(`<cookie page="` + strconv.Itoa(page) + `">`)
	if len(records) > 0 {
		b.WriteString(`<` + entityName + `id last="{` + strings.ToUpper(records[len(records)-1].ID) +
			`}" first="{` + strings.ToUpper(records[0].ID) + `}" />`)
	}
	b.WriteString(`</cookie>`)
	return b.String()
}
