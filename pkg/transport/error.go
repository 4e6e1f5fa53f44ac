package transport

import (
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/xrmkit/xrmsoap/pkg/soap"
)

// Error is a non-success response from the service.
type Error struct {
	StatusCode int
	Status     string
	// Message is the server's explanation, from a JSON error envelope or a
	// SOAP fault.
	Message string
	// Fault is set when the body was a SOAP fault.
	Fault *soap.Fault
}

func (e *Error) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d", e.StatusCode)
	}
	if e.Message == "" {
		return "Error : " + status
	}
	return "Error : " + status + ": " + e.Message
}

// Unwrap returns the SOAP fault, if any.
func (e *Error) Unwrap() error {
	if e.Fault == nil {
		return nil
	}
	return e.Fault
}

var (
	jsonMessageValue = jp.MustParseString("$.error.message.value")
	jsonMessage      = jp.MustParseString("$.error.message")
)

// newError builds an Error from a failed response body.
func newError(statusCode int, status string, body []byte) *Error {
	e := &Error{StatusCode: statusCode, Status: status}

	trimmed := strings.TrimSpace(string(body))
	switch {
	case strings.HasPrefix(trimmed, "{"):
		e.Message = jsonErrorMessage(trimmed)
	case strings.HasPrefix(trimmed, "<"):
		if doc, err := soap.ParseResponse(body); err == nil {
			if fault := soap.ParseFault(doc); fault != nil {
				e.Fault = fault
				e.Message = fault.Message
				if e.Message == "" {
					e.Message = fault.Detail
				}
			}
		}
	}
	return e
}

// jsonErrorMessage reads error.message.value, or error.message when it is a
// plain string.
func jsonErrorMessage(body string) string {
	data, err := oj.ParseString(body)
	if err != nil {
		return ""
	}
	if s, ok := jsonMessageValue.First(data).(string); ok {
		return s
	}
	if s, ok := jsonMessage.First(data).(string); ok {
		return s
	}
	return ""
}
