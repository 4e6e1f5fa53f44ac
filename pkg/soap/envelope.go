package soap

// OperationExecute is the only OrganizationService operation the toolkit
// calls; the request body selects what actually happens.
const OperationExecute = "Execute"

// Wrap places a request body inside a SOAP 1.1 envelope for the given
// service operation.
func Wrap(operation, body string) string {
	w := NewWriter()
	w.Open("soap:Envelope", Xmlns("soap", SOAP11Namespace))
	w.Open("soap:Body")
	w.Open(operation, Attr{Name: "xmlns", Value: NSServices}, Xmlns("i", NSInstance))
	w.Ident(body)
	w.Close(operation)
	w.Close("soap:Body")
	w.Close("soap:Envelope")
	return w.String()
}

// WrapExecute places a request body inside an Execute envelope.
func WrapExecute(body string) string {
	return Wrap(OperationExecute, body)
}

// ActionFor returns the SOAPAction header value for a service operation.
func ActionFor(operation string) string {
	return ExecuteActionURI + operation
}
