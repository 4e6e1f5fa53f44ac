package orgmock

import (
	"strconv"

	"github.com/xrmkit/xrmsoap/pkg/entity"
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

// Response builds the ExecuteResponse body of a successful request.
type Response struct {
	name    string
	results []result
}

type result struct {
	key   string
	write func(w *soap.Writer) error
}

// Collection is an EntityCollection result.
type Collection struct {
	EntityName   string
	Entities     []*entity.BusinessEntity
	MoreRecords  bool
	PagingCookie string
}

// NewResponse starts a response for the given request name.
func NewResponse(requestName string) *Response {
	return &Response{name: requestName}
}

// Guid adds a serialization guid result.
func (r *Response) Guid(key, id string) *Response {
	return r.add(key, func(w *soap.Writer) error {
		canonical, err := entity.CanonicalID(id)
		if err != nil {
			return err
		}
		w.IdentElement("b:value", canonical, soap.Type("c:guid"), soap.Xmlns("c", soap.NSSerialization))
		return nil
	})
}

// Entity adds an Entity result.
func (r *Response) Entity(key string, e *entity.BusinessEntity) *Response {
	return r.add(key, func(w *soap.Writer) error {
		return e.Serialize(w)
	})
}

// Collection adds an EntityCollection result.
func (r *Response) Collection(key string, c Collection) *Response {
	return r.add(key, func(w *soap.Writer) error {
		w.Open("b:value", soap.Type("a:EntityCollection"))
		w.Open("a:Entities")
		for _, e := range c.Entities {
			if err := e.SerializeAs(w, "a:Entity"); err != nil {
				return err
			}
		}
		w.Close("a:Entities")
		w.Element("a:EntityName", c.EntityName)
		w.IdentElement("a:MinActiveRowVersion", "-1")
		w.IdentElement("a:MoreRecords", strconv.FormatBool(c.MoreRecords))
		if c.PagingCookie == "" {
			w.Nil("a:PagingCookie")
		} else {
			w.Element("a:PagingCookie", c.PagingCookie)
		}
		w.IdentElement("a:TotalRecordCount", "-1")
		w.IdentElement("a:TotalRecordCountLimitExceeded", "false")
		w.Close("b:value")
		return nil
	})
}

// Typed adds a scalar result of type typ in namespace ns.
func (r *Response) Typed(key, typ, ns, text string) *Response {
	return r.add(key, func(w *soap.Writer) error {
		w.Element("b:value", text, soap.Type("c:"+typ), soap.Xmlns("c", ns))
		return nil
	})
}

func (r *Response) add(key string, write func(w *soap.Writer) error) *Response {
	r.results = append(r.results, result{key: key, write: write})
	return r
}

// Body renders the ExecuteResponse element.
func (r *Response) Body() (string, error) {
	w := soap.NewWriter()
	w.Open("ExecuteResponse", soap.Attr{Name: "xmlns", Value: soap.NSServices})
	w.Open("ExecuteResult", soap.Xmlns("a", soap.NSContracts), soap.Xmlns("i", soap.NSInstance))
	w.Element("a:ResponseName", r.name)
	if len(r.results) == 0 {
		w.Empty("a:Results", soap.Xmlns("b", soap.NSGeneric))
	} else {
		w.Open("a:Results", soap.Xmlns("b", soap.NSGeneric))
		for _, res := range r.results {
			w.Open("a:KeyValuePairOfstringanyType")
			w.Element("b:key", res.key)
			if err := res.write(w); err != nil {
				return "", err
			}
			w.Close("a:KeyValuePairOfstringanyType")
		}
		w.Close("a:Results")
	}
	w.Close("ExecuteResult")
	w.Close("ExecuteResponse")
	return w.String(), nil
}
