// Package soap provides the XML plumbing shared by every xrmsoap component.
//
// It covers three concerns of talking to the CRM OrganizationService "Execute"
// endpoint at the string level:
//
//   - value encoding: HTMLEncode, SurrogateSafeEncode and Encode/EncodeValue turn
//     caller-supplied text into numeric character entities so it can be embedded
//     in XML text nodes or attribute values without breaking the envelope
//   - envelope writing: Writer is the only XML writer used to build request
//     fragments; Text always encodes, Ident writes verbatim
//   - response reading: ParseResponse, Select, SelectOne and SelectText locate
//     nodes in a response using short prefixed paths
//
// # Encoding
//
// Only A-Z, a-z, 0-9, space, '.', ',', '-' and '_' survive HTMLEncode. Every
// other UTF-16 code unit becomes a decimal entity:
//
//	soap.HTMLEncode("a&b")  // "a&#38;b"
//
// Encode first folds surrogate pairs into a single hexadecimal entity, so
// astral-plane characters survive the round trip through the server:
//
//	soap.Encode("\U0001F600") // "&#x1f600;"
//
// # Selection
//
// Paths use the prefixes the CRM responses are conventionally written with:
//
//	s    http://schemas.xmlsoap.org/soap/envelope/
//	a    http://schemas.microsoft.com/xrm/2011/Contracts
//	i    http://www.w3.org/2001/XMLSchema-instance
//	b    http://schemas.datacontract.org/2004/07/System.Collections.Generic
//	c    http://schemas.microsoft.com/xrm/2011/Metadata
//	ser  http://schemas.microsoft.com/xrm/2011/Contracts/Services
//
// Elements are matched by namespace URI, so a response that binds the same
// namespace to a different prefix still matches:
//
//	doc, _ := soap.ParseResponse(body)
//	more := soap.SelectText(doc.Root(), "//a:MoreRecords") == "true"
//
// A path that matches nothing yields nil or "", never an error.
package soap
