package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contactID = "8f3c1b52-0d8e-4f7a-9e55-2a61c0f1d4ab"

func TestGUIDsEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"same", contactID, contactID, true},
		{"braces and case", "{8F3C1B52-0D8E-4F7A-9E55-2A61C0F1D4AB}", contactID, true},
		{"different", contactID, EmptyID, false},
		{"empty left", "", contactID, false},
		{"empty right", contactID, "", false},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GUIDsEqual(tt.a, tt.b))
			assert.Equal(t, tt.want, GUIDsEqual(tt.b, tt.a))
		})
	}
}

func TestCanonicalID(t *testing.T) {
	got, err := CanonicalID("{8F3C1B52-0D8E-4F7A-9E55-2A61C0F1D4AB}")
	require.NoError(t, err)
	assert.Equal(t, contactID, got)

	_, err = CanonicalID("not-a-guid")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = CanonicalID("")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestValidateLogicalName(t *testing.T) {
	assert.NoError(t, ValidateLogicalName("new_custom_entity1"))
	assert.ErrorIs(t, ValidateLogicalName(""), ErrInvalidLogicalName)
	assert.ErrorIs(t, ValidateLogicalName("account'><x"), ErrInvalidLogicalName)
	assert.ErrorIs(t, ValidateLogicalName("first name"), ErrInvalidLogicalName)
}

func TestEntityReference_Equal(t *testing.T) {
	a := EntityReference{ID: contactID, LogicalName: "contact"}
	b := EntityReference{ID: "{" + contactID + "}", LogicalName: "contact", Name: "Yvonne"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(EntityReference{ID: contactID, LogicalName: "account"}))
}

func TestBusinessEntity_OrderAndReplace(t *testing.T) {
	e := New("account").
		Set("name", String("Contoso")).
		Set("revenue", Money(decimal.RequireFromString("1200.50"))).
		Set("name", String("Fabrikam"))

	assert.Equal(t, []string{"name", "revenue"}, e.Keys())
	assert.Equal(t, "Fabrikam", e.MustGet("name").Text)

	e.Delete("name")
	assert.Equal(t, []string{"revenue"}, e.Keys())
	assert.Equal(t, 1, e.Len())
	assert.True(t, e.MustGet("name").IsNull())

	_, ok := e.Get("name")
	assert.False(t, ok)
}

func TestValue_Accessors(t *testing.T) {
	n, err := Int(42).Int()
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	b, err := Bool(true).Bool()
	require.NoError(t, err)
	assert.True(t, b)

	when := time.Date(2013, 4, 1, 9, 30, 0, 0, time.UTC)
	got, err := DateTime(when).Time()
	require.NoError(t, err)
	assert.True(t, when.Equal(got))

	d, err := Money(decimal.RequireFromString("19.99")).Decimal()
	require.NoError(t, err)
	assert.Equal(t, "19.99", d.String())

	f, err := Double(0.25).Float()
	require.NoError(t, err)
	assert.Equal(t, 0.25, f)

	_, err = String("abc").Int()
	assert.Error(t, err)
}

func TestValue_Display(t *testing.T) {
	assert.Equal(t, "Active", Value{Type: TypeOptionSet, Text: "0", FormattedValue: "Active"}.Display())
	assert.Equal(t, "Yvonne", Reference(EntityReference{ID: contactID, LogicalName: "contact", Name: "Yvonne"}).Display())
	assert.Equal(t, "plain", String("plain").Display())
}

func TestBusinessEntity_Validate(t *testing.T) {
	assert.NoError(t, New("account").Set("name", String("x")).Validate())

	assert.ErrorIs(t, New("bad name").Validate(), ErrInvalidLogicalName)
	assert.ErrorIs(t, New("account").Set("bad'key", String("x")).Validate(), ErrInvalidLogicalName)

	e := New("account")
	e.ID = "nope"
	assert.ErrorIs(t, e.Validate(), ErrInvalidID)

	ref := New("account").Set("parentaccountid", Reference(EntityReference{ID: "nope", LogicalName: "account"}))
	assert.ErrorIs(t, ref.Validate(), ErrInvalidID)
}

func TestBusinessEntity_MarshalJSON(t *testing.T) {
	e := New("account").Set("name", String("Contoso"))
	e.ID = contactID

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, contactID, decoded["id"])
	assert.Equal(t, "account", decoded["logicalName"])
	attrs := decoded["attributes"].(map[string]any)
	assert.Equal(t, "Contoso", attrs["name"].(map[string]any)["value"])
}
