package orgservice

import (
	"context"

	"github.com/beevik/etree"

	"github.com/xrmkit/xrmsoap/pkg/metadata"
	"github.com/xrmkit/xrmsoap/pkg/request"
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

const entityMetadataType = "EntityMetadata"

func readMetadata(path, typ string) func(*etree.Document) ([]any, error) {
	return func(doc *etree.Document) ([]any, error) {
		return metadata.ObjectifyAll(soap.SelectNodes(doc, path), typ), nil
	}
}

func allEntitiesMetadataOp(filters []string, asIfPublished bool) operation[[]any] {
	return operation[[]any]{
		build: func() (*request.Request, error) { return request.RetrieveAllEntities(filters, asIfPublished) },
		parse: readMetadata("//c:EntityMetadata", entityMetadataType),
	}
}

func entityMetadataOp(filters []string, logicalName string, asIfPublished bool) operation[[]any] {
	return operation[[]any]{
		build: func() (*request.Request, error) {
			return request.RetrieveEntity(logicalName, filters, asIfPublished)
		},
		parse: readMetadata("//b:value", entityMetadataType),
	}
}

func attributeMetadataOp(entityLogicalName, logicalName string, asIfPublished bool) operation[[]any] {
	return operation[[]any]{
		build: func() (*request.Request, error) {
			return request.RetrieveAttribute(entityLogicalName, logicalName, asIfPublished)
		},
		parse: readMetadata("//b:value", ""),
	}
}

// RetrieveAllEntitiesMetadata returns the metadata of every entity. filters
// are EntityFilters names such as "Entity", "Attributes" or
// "Relationships"; at least one is required.
func (c *Client) RetrieveAllEntitiesMetadata(ctx context.Context, filters []string, asIfPublished bool) ([]any, error) {
	return execute(ctx, c, allEntitiesMetadataOp(filters, asIfPublished))
}

// RetrieveAllEntitiesMetadataAsync is the asynchronous form of
// RetrieveAllEntitiesMetadata.
func (c *Client) RetrieveAllEntitiesMetadataAsync(ctx context.Context, filters []string, asIfPublished bool, onComplete func([]any, error)) error {
	return executeAsync(ctx, c, allEntitiesMetadataOp(filters, asIfPublished), onComplete)
}

// RetrieveEntityMetadata returns the metadata of one entity.
func (c *Client) RetrieveEntityMetadata(ctx context.Context, filters []string, logicalName string, asIfPublished bool) ([]any, error) {
	return execute(ctx, c, entityMetadataOp(filters, logicalName, asIfPublished))
}

// RetrieveEntityMetadataAsync is the asynchronous form of
// RetrieveEntityMetadata.
func (c *Client) RetrieveEntityMetadataAsync(ctx context.Context, filters []string, logicalName string, asIfPublished bool, onComplete func([]any, error)) error {
	return executeAsync(ctx, c, entityMetadataOp(filters, logicalName, asIfPublished), onComplete)
}

// RetrieveAttributeMetadata returns the metadata of one attribute. The
// result objects carry the server's i:type, e.g. PicklistAttributeMetadata.
func (c *Client) RetrieveAttributeMetadata(ctx context.Context, entityLogicalName, logicalName string, asIfPublished bool) ([]any, error) {
	return execute(ctx, c, attributeMetadataOp(entityLogicalName, logicalName, asIfPublished))
}

// RetrieveAttributeMetadataAsync is the asynchronous form of
// RetrieveAttributeMetadata.
func (c *Client) RetrieveAttributeMetadataAsync(ctx context.Context, entityLogicalName, logicalName string, asIfPublished bool, onComplete func([]any, error)) error {
	return executeAsync(ctx, c, attributeMetadataOp(entityLogicalName, logicalName, asIfPublished), onComplete)
}
