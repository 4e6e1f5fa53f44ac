package orgservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrmkit/xrmsoap/pkg/metadata"
	"github.com/xrmkit/xrmsoap/pkg/request"
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

func metadataResponse(name, value string) string {
	return `<ExecuteResponse xmlns="` + soap.NSServices + `">` +
		`<ExecuteResult xmlns:a="` + soap.NSContracts + `" xmlns:i="` + soap.NSInstance + `">` +
		`<a:ResponseName>` + name + `</a:ResponseName>` +
		`<a:Results xmlns:b="` + soap.NSGeneric + `"><a:KeyValuePairOfstringanyType>` +
		`<b:key>` + name + `</b:key>` + value +
		`</a:KeyValuePairOfstringanyType></a:Results></ExecuteResult></ExecuteResponse>`
}

const allEntities = `<b:value i:type="c:ArrayOfEntityMetadata" xmlns:c="` + soap.NSMetadata + `">` +
	`<c:EntityMetadata><c:IsCustomEntity>false</c:IsCustomEntity><c:LogicalName>account</c:LogicalName><c:ObjectTypeCode>1</c:ObjectTypeCode></c:EntityMetadata>` +
	`<c:EntityMetadata><c:IsCustomEntity>true</c:IsCustomEntity><c:LogicalName>new_project</c:LogicalName><c:ObjectTypeCode>10010</c:ObjectTypeCode></c:EntityMetadata>` +
	`</b:value>`

const oneEntity = `<b:value i:type="c:EntityMetadata" xmlns:c="` + soap.NSMetadata + `">` +
	`<c:Attributes><c:AttributeMetadata i:type="c:StringAttributeMetadata"><c:LogicalName>name</c:LogicalName><c:MaxLength>160</c:MaxLength></c:AttributeMetadata></c:Attributes>` +
	`<c:LogicalName>account</c:LogicalName>` +
	`</b:value>`

const oneAttribute = `<b:value i:type="c:PicklistAttributeMetadata" xmlns:c="` + soap.NSMetadata + `">` +
	`<c:LogicalName>industrycode</c:LogicalName><c:Description i:nil="true" />` +
	`</b:value>`

func TestRetrieveAllEntitiesMetadata(t *testing.T) {
	c := canned(t, map[string]string{
		request.NameRetrieveAllEntities: metadataResponse("EntityMetadata", allEntities),
	})

	list, err := c.RetrieveAllEntitiesMetadata(context.Background(), []string{"Entity"}, false)
	require.NoError(t, err)
	require.Len(t, list, 2)

	first := list[0].(metadata.Object)
	assert.Equal(t, "EntityMetadata", first.Type())
	assert.Equal(t, "account", first.String("LogicalName"))
	assert.Equal(t, 1, first.Int("ObjectTypeCode"))
	assert.False(t, first.Bool("IsCustomEntity"))

	second := list[1].(metadata.Object)
	assert.True(t, second.Bool("IsCustomEntity"))
	assert.Equal(t, 10010, second.Int("ObjectTypeCode"))
}

func TestRetrieveAllEntitiesMetadata_RequiresFilters(t *testing.T) {
	c := canned(t, nil)

	_, err := c.RetrieveAllEntitiesMetadata(context.Background(), nil, false)
	assert.ErrorIs(t, err, request.ErrMissingParameter)
}

func TestRetrieveEntityMetadata(t *testing.T) {
	c := canned(t, map[string]string{
		request.NameRetrieveEntity: metadataResponse("EntityMetadata", oneEntity),
	})

	list, err := c.RetrieveEntityMetadata(context.Background(), []string{"Entity", "Attributes"}, "account", true)
	require.NoError(t, err)
	require.Len(t, list, 1)

	obj := list[0].(metadata.Object)
	assert.Equal(t, "EntityMetadata", obj.Type())
	attrs := obj.Objects("Attributes")
	require.Len(t, attrs, 1)
	assert.Equal(t, "StringAttributeMetadata", attrs[0].Type())
	assert.Equal(t, 160, attrs[0].Int("MaxLength"))
}

func TestRetrieveAttributeMetadata(t *testing.T) {
	c := canned(t, map[string]string{
		request.NameRetrieveAttribute: metadataResponse("AttributeMetadata", oneAttribute),
	})

	done := make(chan struct{})
	var list []any
	err := c.RetrieveAttributeMetadataAsync(context.Background(), "account", "industrycode", false, func(v []any, err error) {
		assert.NoError(t, err)
		list = v
		close(done)
	})
	require.NoError(t, err)
	wait(t, done)

	require.Len(t, list, 1)
	obj := list[0].(metadata.Object)
	assert.Equal(t, "PicklistAttributeMetadata", obj.Type())
	assert.Equal(t, "industrycode", obj.String("LogicalName"))
	assert.Nil(t, obj["Description"])
}
