// Package request builds OrganizationService Execute request bodies.
//
// A Request is a named, ordered list of parameters. Body serializes it
// through soap.Writer, so every caller-supplied value is encoded in one
// place and only validated identifiers reach the wire verbatim. The
// constructors in this package (Create, Retrieve, SetState, ...) validate
// their inputs and return ready-to-send requests.
package request

import (
	"errors"
	"fmt"

	"github.com/xrmkit/xrmsoap/pkg/entity"
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

var (
	// ErrMissingParameter is returned when a required input is empty.
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrInvalidID is returned for ids that are not GUIDs.
	ErrInvalidID = entity.ErrInvalidID
	// ErrInvalidLogicalName is returned for names that are not schema identifiers.
	ErrInvalidLogicalName = entity.ErrInvalidLogicalName
)

// Contract selects the namespace layout of a request.
type Contract int

const (
	// ContractXrm binds a: to the Xrm contracts and b: to the generic
	// key/value contract.
	ContractXrm Contract = iota
	// ContractCrm binds a: to the Xrm contracts, b: to the Crm contracts and
	// c: to the generic key/value contract.
	ContractCrm
)

// Parameter is one entry of the request's Parameters collection.
type Parameter struct {
	Key   string
	Value Value
}

// Value is a typed parameter value. name is the element to write, which
// carries the generic contract prefix of the enclosing request.
type Value interface {
	writeValue(w *soap.Writer, name string) error
}

// Request is an Execute request.
type Request struct {
	Name       string
	Contract   Contract
	Parameters []Parameter
}

// Add appends a parameter.
func (r *Request) Add(key string, v Value) *Request {
	r.Parameters = append(r.Parameters, Parameter{Key: key, Value: v})
	return r
}

// Body returns the <request> element sent inside Execute.
func (r *Request) Body() (string, error) {
	if err := entity.ValidateLogicalName(r.Name); err != nil {
		return "", fmt.Errorf("request name: %w", err)
	}

	w := soap.NewWriter()
	generic := "b"
	switch r.Contract {
	case ContractCrm:
		generic = "c"
		w.Open("request",
			soap.Type("b:"+r.Name+"Request"),
			soap.Xmlns("a", soap.NSContracts),
			soap.Xmlns("b", soap.NSCrmContracts))
	default:
		w.Open("request",
			soap.Type("a:"+r.Name+"Request"),
			soap.Xmlns("a", soap.NSContracts))
	}

	if len(r.Parameters) == 0 {
		w.Empty("a:Parameters", soap.Xmlns(generic, soap.NSGeneric))
	} else {
		w.Open("a:Parameters", soap.Xmlns(generic, soap.NSGeneric))
		for _, p := range r.Parameters {
			if err := entity.ValidateLogicalName(p.Key); err != nil {
				return "", fmt.Errorf("parameter key: %w", err)
			}
			w.Open("a:KeyValuePairOfstringanyType")
			w.IdentElement(generic+":key", p.Key)
			if p.Value == nil {
				w.Nil(generic + ":value")
			} else if err := p.Value.writeValue(w, generic+":value"); err != nil {
				return "", fmt.Errorf("parameter %s: %w", p.Key, err)
			}
			w.Close("a:KeyValuePairOfstringanyType")
		}
		w.Close("a:Parameters")
	}

	w.Nil("a:RequestId")
	w.IdentElement("a:RequestName", r.Name)
	w.Close("request")
	return w.String(), nil
}

// Envelope returns the full SOAP envelope for the request.
func (r *Request) Envelope() (string, error) {
	body, err := r.Body()
	if err != nil {
		return "", err
	}
	return soap.WrapExecute(body), nil
}
