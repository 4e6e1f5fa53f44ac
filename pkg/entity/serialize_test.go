package entity

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrmkit/xrmsoap/pkg/soap"
)

func serialize(t *testing.T, e *BusinessEntity) string {
	t.Helper()
	w := soap.NewWriter()
	require.NoError(t, e.Serialize(w))
	return w.String()
}

func TestSerialize_Layout(t *testing.T) {
	got := serialize(t, New("account").Set("name", String("Contoso & Sons")))

	want := "<b:value i:type='a:Entity'>" +
		"<a:Attributes xmlns:b='" + soap.NSGeneric + "'>" +
		"<a:KeyValuePairOfstringanyType><b:key>name</b:key>" +
		"<b:value i:type='c:string' xmlns:c='" + soap.NSSchema + "'>Contoso &#38; Sons</b:value>" +
		"</a:KeyValuePairOfstringanyType>" +
		"</a:Attributes>" +
		"<a:EntityState i:nil='true' />" +
		"<a:FormattedValues xmlns:b='" + soap.NSGeneric + "' />" +
		"<a:Id>" + EmptyID + "</a:Id>" +
		"<a:LogicalName>account</a:LogicalName>" +
		"<a:RelatedEntities xmlns:b='" + soap.NSGeneric + "' />" +
		"</b:value>"
	assert.Equal(t, want, got)
}

func TestSerialize_ValueTypes(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"null", Null(), "<b:value i:nil='true' />"},
		{"int", Int(7), "<b:value i:type='c:int' xmlns:c='" + soap.NSSchema + "'>7</b:value>"},
		{"boolean", Bool(false), "<b:value i:type='c:boolean' xmlns:c='" + soap.NSSchema + "'>false</b:value>"},
		{"decimal", Decimal(decimal.RequireFromString("3.5")), "<b:value i:type='c:decimal' xmlns:c='" + soap.NSSchema + "'>3.5</b:value>"},
		{"guid", GUID("{" + strings.ToUpper(contactID) + "}"), "<b:value i:type='c:guid' xmlns:c='" + soap.NSSerialization + "'>" + contactID + "</b:value>"},
		{"option set", OptionSet(2), "<b:value i:type='a:OptionSetValue'><a:Value>2</a:Value></b:value>"},
		{"money", Money(decimal.NewFromInt(10)), "<b:value i:type='a:Money'><a:Value>10</a:Value></b:value>"},
		{
			"reference",
			Reference(EntityReference{ID: contactID, LogicalName: "contact"}),
			"<b:value i:type='a:EntityReference'><a:Id>" + contactID + "</a:Id><a:LogicalName>contact</a:LogicalName><a:Name i:nil='true' /></b:value>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := soap.NewWriter()
			writeValue(w, tt.value)
			assert.Equal(t, tt.want, w.String())
		})
	}
}

func TestSerialize_ActivityParties(t *testing.T) {
	party := New("activityparty").
		Set("partyid", Reference(EntityReference{ID: contactID, LogicalName: "contact"}))
	email := New("email").Set("to", Collection(party))

	got := serialize(t, email)

	assert.Contains(t, got, "<b:value i:type='a:EntityCollection'><a:Entities><a:Entity>")
	assert.Contains(t, got, "<a:LogicalName>activityparty</a:LogicalName>")
	assert.Contains(t, got, "<a:MoreRecords>false</a:MoreRecords>")
	assert.Equal(t, 1, strings.Count(got, "<a:Entity>"))
}

func TestSerialize_RejectsInvalid(t *testing.T) {
	w := soap.NewWriter()
	err := New("account").Set("x' y", String("v")).Serialize(w)
	assert.ErrorIs(t, err, ErrInvalidLogicalName)
	assert.Equal(t, 0, w.Len())
}

func TestSerializeDeserialize_RoundTrip(t *testing.T) {
	in := New("account").
		Set("name", String("Contoso <Ltd>")).
		Set("numberofemployees", Int(250)).
		Set("statuscode", OptionSet(1)).
		Set("revenue", Money(decimal.RequireFromString("1000.25"))).
		Set("primarycontactid", Reference(EntityReference{ID: contactID, LogicalName: "contact"})).
		Set("description", Null())
	in.ID = contactID

	body := serialize(t, in)
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(
		"<root xmlns:a='"+soap.NSContracts+"' xmlns:b='"+soap.NSGeneric+"' xmlns:i='"+soap.NSInstance+"'>"+body+"</root>"))

	out := Deserialize(doc.Root().ChildElements()[0])

	assert.Equal(t, contactID, out.ID)
	assert.Equal(t, "account", out.LogicalName)
	assert.Equal(t, in.Keys(), out.Keys())
	assert.Equal(t, "Contoso <Ltd>", out.MustGet("name").Text)
	assert.Equal(t, TypeInt, out.MustGet("numberofemployees").Type)
	assert.Equal(t, "1", out.MustGet("statuscode").Text)
	assert.Equal(t, "1000.25", out.MustGet("revenue").Text)
	assert.True(t, out.MustGet("description").IsNull())

	ref := out.MustGet("primarycontactid").Reference
	require.NotNil(t, ref)
	assert.True(t, ref.Equal(EntityReference{ID: contactID, LogicalName: "contact"}))
}
