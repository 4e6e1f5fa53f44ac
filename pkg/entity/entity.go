package entity

import (
	"encoding/json"
	"fmt"
)

// BusinessEntity is a CRM record. Attributes keep insertion order so that
// serialized envelopes are stable.
type BusinessEntity struct {
	ID          string
	LogicalName string

	keys  []string
	attrs map[string]Value
}

// New returns an empty entity of the given type.
func New(logicalName string) *BusinessEntity {
	return &BusinessEntity{
		LogicalName: logicalName,
		attrs:       make(map[string]Value),
	}
}

// Set stores an attribute, replacing any previous value in place.
func (e *BusinessEntity) Set(name string, v Value) *BusinessEntity {
	if e.attrs == nil {
		e.attrs = make(map[string]Value)
	}
	if _, ok := e.attrs[name]; !ok {
		e.keys = append(e.keys, name)
	}
	e.attrs[name] = v
	return e
}

// Get returns an attribute and whether it is present.
func (e *BusinessEntity) Get(name string) (Value, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

// MustGet returns an attribute, or a null value if it is absent.
func (e *BusinessEntity) MustGet(name string) Value {
	if v, ok := e.attrs[name]; ok {
		return v
	}
	return Null()
}

// Delete removes an attribute.
func (e *BusinessEntity) Delete(name string) {
	if _, ok := e.attrs[name]; !ok {
		return
	}
	delete(e.attrs, name)
	for i, k := range e.keys {
		if k == name {
			e.keys = append(e.keys[:i], e.keys[i+1:]...)
			break
		}
	}
}

// Keys returns attribute names in insertion order.
func (e *BusinessEntity) Keys() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// Len returns the number of attributes.
func (e *BusinessEntity) Len() int {
	return len(e.keys)
}

// Reference returns a reference to this record.
func (e *BusinessEntity) Reference() EntityReference {
	return EntityReference{ID: e.ID, LogicalName: e.LogicalName}
}

// Validate checks every name and id that Serialize writes verbatim.
func (e *BusinessEntity) Validate() error {
	if err := ValidateLogicalName(e.LogicalName); err != nil {
		return err
	}
	if e.ID != "" {
		if _, err := CanonicalID(e.ID); err != nil {
			return err
		}
	}
	for _, k := range e.keys {
		if err := ValidateLogicalName(k); err != nil {
			return fmt.Errorf("attribute: %w", err)
		}
		if err := validateValue(e.attrs[k]); err != nil {
			return fmt.Errorf("attribute %s: %w", k, err)
		}
	}
	return nil
}

func validateValue(v Value) error {
	switch v.Type {
	case TypeEntityReference:
		if v.Reference == nil {
			return fmt.Errorf("%w: reference value without a reference", ErrInvalidID)
		}
		return v.Reference.Validate()
	case TypeGUID:
		_, err := CanonicalID(v.Text)
		return err
	case TypeEntityCollection:
		for _, child := range v.Entities {
			if err := child.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

type entityJSON struct {
	ID          string           `json:"id,omitempty"`
	LogicalName string           `json:"logicalName"`
	Attributes  map[string]Value `json:"attributes"`
}

// MarshalJSON renders the entity for CLI output.
func (e *BusinessEntity) MarshalJSON() ([]byte, error) {
	attrs := make(map[string]Value, len(e.attrs))
	for k, v := range e.attrs {
		attrs[k] = v
	}
	return json.Marshal(entityJSON{ID: e.ID, LogicalName: e.LogicalName, Attributes: attrs})
}
