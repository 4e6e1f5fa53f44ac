// Package entity models CRM records as they travel over the OrganizationService
// wire: BusinessEntity is an ordered attribute bag keyed by logical name,
// EntityReference identifies a record, and Value carries one attribute with
// its wire type.
//
// BusinessEntity.Serialize writes the a:Entity value used as the Target of
// Create and Update requests; Deserialize reads an entity node from a
// Retrieve or RetrieveMultiple response. Scalar values keep their wire text
// and expose typed accessors, so callers decide when to convert:
//
//	e := entity.New("account").
//		Set("name", entity.String("Contoso")).
//		Set("numberofemployees", entity.Int(250)).
//		Set("primarycontactid", entity.Reference(entity.EntityReference{ID: id, LogicalName: "contact"}))
//
//	n, err := e.MustGet("numberofemployees").Int()
package entity
