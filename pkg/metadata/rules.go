package metadata

import (
	"strconv"
	"strings"
)

// coercion converts the text of a leaf element.
type coercion func(text string) any

func asInt(text string) any {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return text
	}
	return n
}

func asBool(text string) any {
	return strings.TrimSpace(text) == "true"
}

// requiredLevels are the AttributeRequiredLevel names that appear as the text
// of a Value element.
var requiredLevels = map[string]bool{
	"ApplicationRequired": true,
	"None":                true,
	"Recommended":         true,
	"SystemRequired":      true,
}

func asValue(text string) any {
	t := strings.TrimSpace(text)
	switch {
	case t == "true":
		return true
	case t == "false":
		return false
	case requiredLevels[t]:
		return t
	}
	return asInt(t)
}

// rules maps leaf element names to their coercion. Unlisted leaves keep
// their text.
var rules = map[string]coercion{
	"Value": asValue,

	"ActivityTypeMask": asInt,
	"ColumnNumber":     asInt,
	"DefaultFormValue": asInt,
	"LanguageCode":     asInt,
	"MaxLength":        asInt,
	"MaxValue":         asInt,
	"MinValue":         asInt,
	"ObjectTypeCode":   asInt,
	"Order":            asInt,
	"Precision":        asInt,
	"PrecisionSource":  asInt,

	"AutoRouteToOwnerQueue":       asBool,
	"CanBeBasic":                  asBool,
	"CanBeChanged":                asBool,
	"CanBeDeep":                   asBool,
	"CanBeGlobal":                 asBool,
	"CanBeLocal":                  asBool,
	"CanBeSecuredForCreate":       asBool,
	"CanBeSecuredForRead":         asBool,
	"CanBeSecuredForUpdate":       asBool,
	"CanTriggerWorkflow":          asBool,
	"IsActivity":                  asBool,
	"IsActivityParty":             asBool,
	"IsAvailableOffline":          asBool,
	"IsChildEntity":               asBool,
	"IsCustomAttribute":           asBool,
	"IsCustomEntity":              asBool,
	"IsCustomOptionSet":           asBool,
	"IsCustomRelationship":        asBool,
	"IsDocumentManagementEnabled": asBool,
	"IsEnabledForCharts":          asBool,
	"IsGlobal":                    asBool,
	"IsImportable":                asBool,
	"IsIntersect":                 asBool,
	"IsManaged":                   asBool,
	"IsPrimaryId":                 asBool,
	"IsPrimaryName":               asBool,
	"IsReadingPaneEnabled":        asBool,
	"IsSecured":                   asBool,
	"IsValidForAdvancedFind":      asBool,
	"IsValidForCreate":            asBool,
	"IsValidForRead":              asBool,
	"IsValidForUpdate":            asBool,
}

// arrays are the elements whose children always form a list.
var arrays = map[string]bool{
	"Attributes":              true,
	"LocalizedLabels":         true,
	"ManyToManyRelationships": true,
	"ManyToOneRelationships":  true,
	"OneToManyRelationships":  true,
	"Options":                 true,
	"Privileges":              true,
	"Targets":                 true,
}
