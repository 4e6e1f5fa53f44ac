package soap

import (
	"strings"

	"github.com/beevik/etree"
)

// SOAP namespace URIs
const (
	SOAP11Namespace = "http://schemas.xmlsoap.org/soap/envelope/"
	SOAP12Namespace = "http://www.w3.org/2003/05/soap-envelope"
)

// ContentTypes for SOAP versions
const (
	SOAP11ContentType = "text/xml; charset=utf-8"
	SOAP12ContentType = "application/soap+xml; charset=utf-8"
)

// Namespaces of the OrganizationService wire contract.
const (
	NSContracts      = "http://schemas.microsoft.com/xrm/2011/Contracts"
	NSCrmContracts   = "http://schemas.microsoft.com/crm/2011/Contracts"
	NSServices       = "http://schemas.microsoft.com/xrm/2011/Contracts/Services"
	NSMetadata       = "http://schemas.microsoft.com/xrm/2011/Metadata"
	NSGeneric        = "http://schemas.datacontract.org/2004/07/System.Collections.Generic"
	NSInstance       = "http://www.w3.org/2001/XMLSchema-instance"
	NSSchema         = "http://www.w3.org/2001/XMLSchema"
	NSSerialization  = "http://schemas.microsoft.com/2003/10/Serialization/"
	NSArrays         = "http://schemas.microsoft.com/2003/10/Serialization/Arrays"
	ExecuteActionURI = NSServices + "/IOrganizationService/"
)

// prefixes maps the short prefixes accepted by Select to namespace URIs.
var prefixes = map[string]string{
	"s":   SOAP11Namespace,
	"a":   NSContracts,
	"i":   NSInstance,
	"b":   NSGeneric,
	"c":   NSMetadata,
	"ser": NSServices,
}

// NamespaceFor returns the namespace URI bound to a selection prefix.
func NamespaceFor(prefix string) (string, bool) {
	ns, ok := prefixes[prefix]
	return ns, ok
}

// Fault is a SOAP fault returned by the service.
type Fault struct {
	Code    string `json:"code" yaml:"code"`       // s:Client, s:Server
	Message string `json:"message" yaml:"message"` // faultstring
	Detail  string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

func (f *Fault) Error() string {
	if f.Code == "" {
		return f.Message
	}
	return f.Code + ": " + f.Message
}

// ParseFault extracts a SOAP 1.1 or 1.2 fault from a response document.
// Returns nil if the document carries no fault.
func ParseFault(doc *etree.Document) *Fault {
	if doc == nil || doc.Root() == nil {
		return nil
	}
	fault := findLocal(doc.Root(), "Fault")
	if fault == nil {
		return nil
	}

	f := &Fault{}
	// SOAP 1.1
	if el := fault.SelectElement("faultcode"); el != nil {
		f.Code = strings.TrimSpace(el.Text())
	}
	if el := fault.SelectElement("faultstring"); el != nil {
		f.Message = strings.TrimSpace(el.Text())
	}
	// SOAP 1.2
	if f.Code == "" {
		if el := findLocal(fault, "Value"); el != nil {
			f.Code = strings.TrimSpace(el.Text())
		}
	}
	if f.Message == "" {
		if el := findLocal(fault, "Text"); el != nil {
			f.Message = strings.TrimSpace(el.Text())
		}
	}
	// OrganizationServiceFault carries the most precise message
	if detail := findLocal(fault, "OrganizationServiceFault"); detail != nil {
		if msg := detail.SelectElement("Message"); msg != nil {
			f.Detail = strings.TrimSpace(msg.Text())
		}
	}
	return f
}

// findLocal finds the first descendant (or self) with the given local name.
func findLocal(el *etree.Element, local string) *etree.Element {
	if el.Tag == local {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findLocal(child, local); found != nil {
			return found
		}
	}
	return nil
}
