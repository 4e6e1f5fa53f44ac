package orgservice

import (
	"context"

	"github.com/beevik/etree"

	"github.com/xrmkit/xrmsoap/pkg/entity"
	"github.com/xrmkit/xrmsoap/pkg/request"
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

var (
	readValue         = requiredText("//b:value")
	readResults       = nodeText("//a:Results")
	readExecuteResult = nodeText("//ser:ExecuteResult")
)

func readEntity(doc *etree.Document) (*entity.BusinessEntity, error) {
	node := soap.SelectSingleNode(doc, "//b:value")
	if node == nil {
		return nil, ErrNoResult
	}
	return entity.Deserialize(node), nil
}

func readEntities(doc *etree.Document) ([]*entity.BusinessEntity, error) {
	records := entity.DeserializeAll(soap.SelectSingleNode(doc, "//a:Entities"))
	if records == nil {
		records = []*entity.BusinessEntity{}
	}
	return records, nil
}

// Create

func createOp(e *entity.BusinessEntity) operation[string] {
	return operation[string]{
		build: func() (*request.Request, error) { return request.Create(e) },
		parse: readValue,
	}
}

// Create creates a record and returns its id.
func (c *Client) Create(ctx context.Context, e *entity.BusinessEntity) (string, error) {
	return execute(ctx, c, createOp(e))
}

// CreateAsync is the asynchronous form of Create.
func (c *Client) CreateAsync(ctx context.Context, e *entity.BusinessEntity, onComplete func(string, error)) error {
	return executeAsync(ctx, c, createOp(e), onComplete)
}

// Update

func updateOp(e *entity.BusinessEntity) operation[string] {
	return operation[string]{
		build: func() (*request.Request, error) { return request.Update(e) },
		parse: readResults,
	}
}

// Update writes the attributes of e to the existing record e.ID.
func (c *Client) Update(ctx context.Context, e *entity.BusinessEntity) (string, error) {
	return execute(ctx, c, updateOp(e))
}

// UpdateAsync is the asynchronous form of Update.
func (c *Client) UpdateAsync(ctx context.Context, e *entity.BusinessEntity, onComplete func(string, error)) error {
	return executeAsync(ctx, c, updateOp(e), onComplete)
}

// Delete

func deleteOp(logicalName, id string) operation[string] {
	return operation[string]{
		build: func() (*request.Request, error) { return request.Delete(logicalName, id) },
		parse: readResults,
	}
}

// Delete deletes a record.
func (c *Client) Delete(ctx context.Context, logicalName, id string) (string, error) {
	return execute(ctx, c, deleteOp(logicalName, id))
}

// DeleteAsync is the asynchronous form of Delete.
func (c *Client) DeleteAsync(ctx context.Context, logicalName, id string, onComplete func(string, error)) error {
	return executeAsync(ctx, c, deleteOp(logicalName, id), onComplete)
}

// Retrieve

func retrieveOp(logicalName, id string, columns []string) operation[*entity.BusinessEntity] {
	return operation[*entity.BusinessEntity]{
		build: func() (*request.Request, error) { return request.Retrieve(logicalName, id, columns) },
		parse: readEntity,
	}
}

// Retrieve reads one record. An empty column list retrieves all columns.
func (c *Client) Retrieve(ctx context.Context, logicalName, id string, columns []string) (*entity.BusinessEntity, error) {
	return execute(ctx, c, retrieveOp(logicalName, id, columns))
}

// RetrieveAsync is the asynchronous form of Retrieve.
func (c *Client) RetrieveAsync(ctx context.Context, logicalName, id string, columns []string, onComplete func(*entity.BusinessEntity, error)) error {
	return executeAsync(ctx, c, retrieveOp(logicalName, id, columns), onComplete)
}

// RetrieveMultiple

func retrieveMultipleOp(queryExpression string) operation[[]*entity.BusinessEntity] {
	return operation[[]*entity.BusinessEntity]{
		build: func() (*request.Request, error) { return request.RetrieveMultiple(queryExpression) },
		parse: readEntities,
	}
}

// RetrieveMultiple runs a QueryExpression. The records of a single page are
// returned; a response without an Entities node yields none.
func (c *Client) RetrieveMultiple(ctx context.Context, queryExpression string) ([]*entity.BusinessEntity, error) {
	return execute(ctx, c, retrieveMultipleOp(queryExpression))
}

// RetrieveMultipleAsync is the asynchronous form of RetrieveMultiple.
func (c *Client) RetrieveMultipleAsync(ctx context.Context, queryExpression string, onComplete func([]*entity.BusinessEntity, error)) error {
	return executeAsync(ctx, c, retrieveMultipleOp(queryExpression), onComplete)
}

// SetState

func setStateOp(logicalName, id string, state, status int) operation[string] {
	return operation[string]{
		build: func() (*request.Request, error) { return request.SetState(logicalName, id, state, status) },
		parse: readExecuteResult,
	}
}

// SetState changes the state and status codes of a record.
func (c *Client) SetState(ctx context.Context, logicalName, id string, state, status int) (string, error) {
	return execute(ctx, c, setStateOp(logicalName, id, state, status))
}

// SetStateAsync is the asynchronous form of SetState.
func (c *Client) SetStateAsync(ctx context.Context, logicalName, id string, state, status int, onComplete func(string, error)) error {
	return executeAsync(ctx, c, setStateOp(logicalName, id, state, status), onComplete)
}

// Associate and Disassociate

func associateOp(relationship string, target entity.EntityReference, relatedEntityName string, related []entity.EntityReference) operation[string] {
	return operation[string]{
		build: func() (*request.Request, error) {
			return request.Associate(relationship, target, relatedEntityName, related)
		},
		parse: readExecuteResult,
	}
}

func disassociateOp(relationship string, target entity.EntityReference, relatedEntityName string, related []entity.EntityReference) operation[string] {
	return operation[string]{
		build: func() (*request.Request, error) {
			return request.Disassociate(relationship, target, relatedEntityName, related)
		},
		parse: readExecuteResult,
	}
}

// Associate links target to related records through a relationship.
func (c *Client) Associate(ctx context.Context, relationship string, target entity.EntityReference, relatedEntityName string, related []entity.EntityReference) (string, error) {
	return execute(ctx, c, associateOp(relationship, target, relatedEntityName, related))
}

// AssociateAsync is the asynchronous form of Associate.
func (c *Client) AssociateAsync(ctx context.Context, relationship string, target entity.EntityReference, relatedEntityName string, related []entity.EntityReference, onComplete func(string, error)) error {
	return executeAsync(ctx, c, associateOp(relationship, target, relatedEntityName, related), onComplete)
}

// Disassociate removes links created by Associate.
func (c *Client) Disassociate(ctx context.Context, relationship string, target entity.EntityReference, relatedEntityName string, related []entity.EntityReference) (string, error) {
	return execute(ctx, c, disassociateOp(relationship, target, relatedEntityName, related))
}

// DisassociateAsync is the asynchronous form of Disassociate.
func (c *Client) DisassociateAsync(ctx context.Context, relationship string, target entity.EntityReference, relatedEntityName string, related []entity.EntityReference, onComplete func(string, error)) error {
	return executeAsync(ctx, c, disassociateOp(relationship, target, relatedEntityName, related), onComplete)
}

// Assign

func assignOp(target, assignee entity.EntityReference) operation[string] {
	return operation[string]{
		build: func() (*request.Request, error) { return request.Assign(target, assignee) },
		parse: readExecuteResult,
	}
}

// Assign gives ownership of target to a user or team.
func (c *Client) Assign(ctx context.Context, target, assignee entity.EntityReference) (string, error) {
	return execute(ctx, c, assignOp(target, assignee))
}

// AssignAsync is the asynchronous form of Assign.
func (c *Client) AssignAsync(ctx context.Context, target, assignee entity.EntityReference, onComplete func(string, error)) error {
	return executeAsync(ctx, c, assignOp(target, assignee), onComplete)
}

// Access rights

func grantAccessOp(target, principal entity.EntityReference, rights []string) operation[string] {
	return operation[string]{
		build: func() (*request.Request, error) { return request.GrantAccess(target, principal, rights) },
		parse: readExecuteResult,
	}
}

func modifyAccessOp(target, principal entity.EntityReference, rights []string) operation[string] {
	return operation[string]{
		build: func() (*request.Request, error) { return request.ModifyAccess(target, principal, rights) },
		parse: readExecuteResult,
	}
}

func revokeAccessOp(target, revokee entity.EntityReference) operation[string] {
	return operation[string]{
		build: func() (*request.Request, error) { return request.RevokeAccess(target, revokee) },
		parse: readExecuteResult,
	}
}

func retrievePrincipalAccessOp(target, principal entity.EntityReference) operation[string] {
	return operation[string]{
		build: func() (*request.Request, error) { return request.RetrievePrincipalAccess(target, principal) },
		parse: readValue,
	}
}

// GrantAccess shares target with a principal.
func (c *Client) GrantAccess(ctx context.Context, target, principal entity.EntityReference, rights []string) (string, error) {
	return execute(ctx, c, grantAccessOp(target, principal, rights))
}

// GrantAccessAsync is the asynchronous form of GrantAccess.
func (c *Client) GrantAccessAsync(ctx context.Context, target, principal entity.EntityReference, rights []string, onComplete func(string, error)) error {
	return executeAsync(ctx, c, grantAccessOp(target, principal, rights), onComplete)
}

// ModifyAccess replaces the rights a principal has on target.
func (c *Client) ModifyAccess(ctx context.Context, target, principal entity.EntityReference, rights []string) (string, error) {
	return execute(ctx, c, modifyAccessOp(target, principal, rights))
}

// ModifyAccessAsync is the asynchronous form of ModifyAccess.
func (c *Client) ModifyAccessAsync(ctx context.Context, target, principal entity.EntityReference, rights []string, onComplete func(string, error)) error {
	return executeAsync(ctx, c, modifyAccessOp(target, principal, rights), onComplete)
}

// RevokeAccess stops sharing target with revokee.
func (c *Client) RevokeAccess(ctx context.Context, target, revokee entity.EntityReference) (string, error) {
	return execute(ctx, c, revokeAccessOp(target, revokee))
}

// RevokeAccessAsync is the asynchronous form of RevokeAccess.
func (c *Client) RevokeAccessAsync(ctx context.Context, target, revokee entity.EntityReference, onComplete func(string, error)) error {
	return executeAsync(ctx, c, revokeAccessOp(target, revokee), onComplete)
}

// RetrievePrincipalAccess returns the access mask a principal has on
// target, e.g. "ReadAccess WriteAccess".
func (c *Client) RetrievePrincipalAccess(ctx context.Context, target, principal entity.EntityReference) (string, error) {
	return execute(ctx, c, retrievePrincipalAccessOp(target, principal))
}

// RetrievePrincipalAccessAsync is the asynchronous form of
// RetrievePrincipalAccess.
func (c *Client) RetrievePrincipalAccessAsync(ctx context.Context, target, principal entity.EntityReference, onComplete func(string, error)) error {
	return executeAsync(ctx, c, retrievePrincipalAccessOp(target, principal), onComplete)
}
