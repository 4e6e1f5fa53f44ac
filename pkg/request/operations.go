package request

import (
	"fmt"
	"strings"

	"github.com/xrmkit/xrmsoap/pkg/entity"
)

// Request names as they appear in a:RequestName.
const (
	NameCreate                  = "Create"
	NameUpdate                  = "Update"
	NameDelete                  = "Delete"
	NameRetrieve                = "Retrieve"
	NameRetrieveMultiple        = "RetrieveMultiple"
	NameSetState                = "SetState"
	NameAssociate               = "Associate"
	NameDisassociate            = "Disassociate"
	NameAssign                  = "Assign"
	NameGrantAccess             = "GrantAccess"
	NameModifyAccess            = "ModifyAccess"
	NameRevokeAccess            = "RevokeAccess"
	NameRetrievePrincipalAccess = "RetrievePrincipalAccess"
	NameWhoAmI                  = "WhoAmI"
	NameRetrieveAllEntities     = "RetrieveAllEntities"
	NameRetrieveEntity          = "RetrieveEntity"
	NameRetrieveAttribute       = "RetrieveAttribute"
)

// Role sent with Associate requests.
const RoleReferenced = "Referenced"

// Create builds a Create request for e. An empty id lets the server assign one.
func Create(e *entity.BusinessEntity) (*Request, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: entity", ErrMissingParameter)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	r := &Request{Name: NameCreate}
	return r.Add("Target", EntityValue{Entity: e}), nil
}

// Update builds an Update request. e must carry its id.
func Update(e *entity.BusinessEntity) (*Request, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: entity", ErrMissingParameter)
	}
	if e.ID == "" {
		return nil, fmt.Errorf("%w: entity id", ErrMissingParameter)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	r := &Request{Name: NameUpdate}
	return r.Add("Target", EntityValue{Entity: e}), nil
}

// Delete builds a Delete request.
func Delete(logicalName, id string) (*Request, error) {
	target, err := reference("target", logicalName, id)
	if err != nil {
		return nil, err
	}
	r := &Request{Name: NameDelete}
	return r.Add("Target", EntityReferenceValue{Ref: target}), nil
}

// Retrieve builds a Retrieve request. No columns means all columns.
func Retrieve(logicalName, id string, columns []string) (*Request, error) {
	target, err := reference("target", logicalName, id)
	if err != nil {
		return nil, err
	}
	for _, c := range nonEmpty(columns) {
		if err := entity.ValidateLogicalName(c); err != nil {
			return nil, fmt.Errorf("column: %w", err)
		}
	}
	r := &Request{Name: NameRetrieve}
	r.Add("Target", EntityReferenceValue{Ref: target})
	return r.Add("ColumnSet", ColumnSetValue{Columns: columns}), nil
}

// RetrieveMultiple builds a RetrieveMultiple request around a pre-built
// QueryExpression body.
func RetrieveMultiple(queryExpression string) (*Request, error) {
	if strings.TrimSpace(queryExpression) == "" {
		return nil, fmt.Errorf("%w: query expression", ErrMissingParameter)
	}
	r := &Request{Name: NameRetrieveMultiple}
	return r.Add("Query", QueryExpressionValue{XML: queryExpression}), nil
}

// Fetch builds a RetrieveMultiple request for normalized FetchXML.
func Fetch(query string) (*Request, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: fetch query", ErrMissingParameter)
	}
	r := &Request{Name: NameRetrieveMultiple}
	return r.Add("Query", FetchExpressionValue{Query: query}), nil
}

// SetState builds a SetState request.
func SetState(logicalName, id string, state, status int) (*Request, error) {
	moniker, err := reference("entity", logicalName, id)
	if err != nil {
		return nil, err
	}
	r := &Request{Name: NameSetState, Contract: ContractCrm}
	r.Add("EntityMoniker", EntityReferenceValue{Ref: moniker})
	r.Add("State", OptionSetValue{Value: state})
	return r.Add("Status", OptionSetValue{Value: status}), nil
}

// Associate builds an Associate request linking target to related records.
// Related references without a logical name take relatedEntityName; entries
// without an id are skipped.
func Associate(relationship string, target entity.EntityReference, relatedEntityName string, related []entity.EntityReference) (*Request, error) {
	return association(NameAssociate, RoleReferenced, relationship, target, relatedEntityName, related)
}

// Disassociate builds a Disassociate request. Arguments are as for Associate.
func Disassociate(relationship string, target entity.EntityReference, relatedEntityName string, related []entity.EntityReference) (*Request, error) {
	return association(NameDisassociate, "", relationship, target, relatedEntityName, related)
}

func association(name, role, relationship string, target entity.EntityReference, relatedEntityName string, related []entity.EntityReference) (*Request, error) {
	if relationship == "" {
		return nil, fmt.Errorf("%w: relationship", ErrMissingParameter)
	}
	if err := entity.ValidateLogicalName(relationship); err != nil {
		return nil, err
	}
	t, err := reference("target", target.LogicalName, target.ID)
	if err != nil {
		return nil, err
	}

	refs := make([]entity.EntityReference, 0, len(related))
	for _, ref := range related {
		if ref.ID == "" {
			continue
		}
		if ref.LogicalName == "" {
			ref.LogicalName = relatedEntityName
		}
		checked, err := reference("related entity", ref.LogicalName, ref.ID)
		if err != nil {
			return nil, err
		}
		refs = append(refs, checked)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: related entities", ErrMissingParameter)
	}

	r := &Request{Name: name}
	r.Add("Target", EntityReferenceValue{Ref: t})
	r.Add("Relationship", RelationshipValue{SchemaName: relationship, Role: role})
	return r.Add("RelatedEntities", EntityReferenceCollectionValue{Refs: refs}), nil
}

// Assign builds an Assign request giving target to assignee.
func Assign(target, assignee entity.EntityReference) (*Request, error) {
	t, err := reference("target", target.LogicalName, target.ID)
	if err != nil {
		return nil, err
	}
	a, err := reference("assignee", assignee.LogicalName, assignee.ID)
	if err != nil {
		return nil, err
	}
	r := &Request{Name: NameAssign, Contract: ContractCrm}
	r.Add("Target", EntityReferenceValue{Ref: t})
	return r.Add("Assignee", EntityReferenceValue{Ref: a}), nil
}

// GrantAccess builds a GrantAccess request.
func GrantAccess(target, principal entity.EntityReference, rights []string) (*Request, error) {
	return access(NameGrantAccess, target, principal, rights)
}

// ModifyAccess builds a ModifyAccess request.
func ModifyAccess(target, principal entity.EntityReference, rights []string) (*Request, error) {
	return access(NameModifyAccess, target, principal, rights)
}

func access(name string, target, principal entity.EntityReference, rights []string) (*Request, error) {
	t, err := reference("target", target.LogicalName, target.ID)
	if err != nil {
		return nil, err
	}
	p, err := reference("principal", principal.LogicalName, principal.ID)
	if err != nil {
		return nil, err
	}
	mask := nonEmpty(rights)
	if len(mask) == 0 {
		return nil, fmt.Errorf("%w: access rights", ErrMissingParameter)
	}
	r := &Request{Name: name, Contract: ContractCrm}
	r.Add("Target", EntityReferenceValue{Ref: t})
	return r.Add("PrincipalAccess", PrincipalAccessValue{AccessMask: mask, Principal: p}), nil
}

// RevokeAccess builds a RevokeAccess request.
func RevokeAccess(target, revokee entity.EntityReference) (*Request, error) {
	t, err := reference("target", target.LogicalName, target.ID)
	if err != nil {
		return nil, err
	}
	rv, err := reference("revokee", revokee.LogicalName, revokee.ID)
	if err != nil {
		return nil, err
	}
	r := &Request{Name: NameRevokeAccess, Contract: ContractCrm}
	r.Add("Target", EntityReferenceValue{Ref: t})
	return r.Add("Revokee", EntityReferenceValue{Ref: rv}), nil
}

// RetrievePrincipalAccess builds a request for the rights principal holds on
// target.
func RetrievePrincipalAccess(target, principal entity.EntityReference) (*Request, error) {
	t, err := reference("target", target.LogicalName, target.ID)
	if err != nil {
		return nil, err
	}
	p, err := reference("principal", principal.LogicalName, principal.ID)
	if err != nil {
		return nil, err
	}
	r := &Request{Name: NameRetrievePrincipalAccess, Contract: ContractCrm}
	r.Add("Target", EntityReferenceValue{Ref: t})
	return r.Add("Principal", EntityReferenceValue{Ref: p}), nil
}

// WhoAmI builds a WhoAmI request.
func WhoAmI() *Request {
	return &Request{Name: NameWhoAmI, Contract: ContractCrm}
}

// RetrieveAllEntities builds a request for the metadata of every entity.
func RetrieveAllEntities(filters []string, asIfPublished bool) (*Request, error) {
	if len(nonEmpty(filters)) == 0 {
		return nil, fmt.Errorf("%w: entity filters", ErrMissingParameter)
	}
	r := &Request{Name: NameRetrieveAllEntities}
	r.Add("EntityFilters", EntityFiltersValue(filters))
	return r.Add("RetrieveAsIfPublished", BoolValue(asIfPublished)), nil
}

// RetrieveEntity builds a request for one entity's metadata.
func RetrieveEntity(logicalName string, filters []string, asIfPublished bool) (*Request, error) {
	if err := requireName("entity logical name", logicalName); err != nil {
		return nil, err
	}
	if len(nonEmpty(filters)) == 0 {
		return nil, fmt.Errorf("%w: entity filters", ErrMissingParameter)
	}
	r := &Request{Name: NameRetrieveEntity}
	r.Add("EntityFilters", EntityFiltersValue(filters))
	r.Add("MetadataId", GuidValue(""))
	r.Add("RetrieveAsIfPublished", BoolValue(asIfPublished))
	return r.Add("LogicalName", StringValue(logicalName)), nil
}

// RetrieveAttribute builds a request for one attribute's metadata.
func RetrieveAttribute(entityLogicalName, logicalName string, asIfPublished bool) (*Request, error) {
	if err := requireName("entity logical name", entityLogicalName); err != nil {
		return nil, err
	}
	if err := requireName("attribute logical name", logicalName); err != nil {
		return nil, err
	}
	r := &Request{Name: NameRetrieveAttribute}
	r.Add("EntityLogicalName", StringValue(entityLogicalName))
	r.Add("MetadataId", GuidValue(""))
	r.Add("RetrieveAsIfPublished", BoolValue(asIfPublished))
	return r.Add("LogicalName", StringValue(logicalName)), nil
}

func requireName(what, name string) error {
	if name == "" {
		return fmt.Errorf("%w: %s", ErrMissingParameter, what)
	}
	if err := entity.ValidateLogicalName(name); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

// reference validates a logical name and id and returns a reference holding
// the canonical id.
func reference(what, logicalName, id string) (entity.EntityReference, error) {
	if err := requireName(what+" logical name", logicalName); err != nil {
		return entity.EntityReference{}, err
	}
	if id == "" {
		return entity.EntityReference{}, fmt.Errorf("%w: %s id", ErrMissingParameter, what)
	}
	canonical, err := entity.CanonicalID(id)
	if err != nil {
		return entity.EntityReference{}, fmt.Errorf("%s: %w", what, err)
	}
	return entity.EntityReference{ID: canonical, LogicalName: logicalName}, nil
}
