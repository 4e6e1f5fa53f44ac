package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrmkit/xrmsoap/pkg/soap"
)

const okResponse = `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>
<ExecuteResponse xmlns="http://schemas.microsoft.com/xrm/2011/Contracts/Services">
<ExecuteResult><ResponseName xmlns="http://schemas.microsoft.com/xrm/2011/Contracts">WhoAmI</ResponseName></ExecuteResult>
</ExecuteResponse></s:Body></s:Envelope>`

const faultResponse = `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body><s:Fault>
<faultcode>s:Client</faultcode><faultstring>account With Id = 42 Does Not Exist</faultstring>
</s:Fault></s:Body></s:Envelope>`

// --- Helpers ---

func server(t *testing.T, handler http.HandlerFunc) *HTTP {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewHTTP(ts.URL + "/contoso/")
}

func respond(status int, contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// --- Tests ---

func TestHTTP_SendsExecuteRequest(t *testing.T) {
	var got *http.Request
	var gotBody string
	tr := server(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		respond(http.StatusOK, soap.SOAP11ContentType, okResponse)(w, r)
	})
	assert.Equal(t, "http://example.invalid/org"+ServicePath, NewHTTP("http://example.invalid/org/").Endpoint())

	doc, err := tr.Send(context.Background(), "<env/>", soap.OperationExecute)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/contoso"+ServicePath, got.URL.Path)
	assert.Equal(t, "application/xml, text/xml, */*", got.Header.Get("Accept"))
	assert.Equal(t, "text/xml; charset=utf-8", got.Header.Get("Content-Type"))
	assert.Equal(t, "http://schemas.microsoft.com/xrm/2011/Contracts/Services/IOrganizationService/Execute", got.Header.Get("SOAPAction"))
	assert.Equal(t, "<env/>", gotBody)
	assert.Equal(t, "WhoAmI", soap.SelectSingleNodeText(doc, "//a:ResponseName"))
}

func TestHTTP_CustomHeaders(t *testing.T) {
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		respond(http.StatusOK, "text/xml", okResponse)(w, r)
	}))
	t.Cleanup(ts.Close)

	tr := NewHTTP(ts.URL, WithHeader("Authorization", "Bearer token"))
	_, err := tr.Send(context.Background(), "<env/>", soap.OperationExecute)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token", auth)
}

func TestHTTP_JSONError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message value", `{"error":{"code":"-2147220891","message":{"lang":"en-US","value":"Principal user is missing privilege"}}}`, "Principal user is missing privilege"},
		{"plain message", `{"error":{"message":"Bad request"}}`, "Bad request"},
		{"no message", `{"other":true}`, ""},
		{"broken json", `{"error":`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := server(t, respond(http.StatusForbidden, "application/json", tt.body))

			_, err := tr.Send(context.Background(), "<env/>", soap.OperationExecute)

			var te *Error
			require.ErrorAs(t, err, &te)
			assert.Equal(t, http.StatusForbidden, te.StatusCode)
			assert.Equal(t, "403 Forbidden", te.Status)
			assert.Equal(t, tt.want, te.Message)
		})
	}
}

func TestHTTP_SOAPFault(t *testing.T) {
	tr := server(t, respond(http.StatusInternalServerError, "text/xml", faultResponse))

	_, err := tr.Send(context.Background(), "<env/>", soap.OperationExecute)

	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 500, te.StatusCode)
	assert.Equal(t, "account With Id = 42 Does Not Exist", te.Message)
	assert.Equal(t, "Error : 500 Internal Server Error: account With Id = 42 Does Not Exist", te.Error())

	var fault *soap.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "s:Client", fault.Code)
}

func TestHTTP_FaultWithSuccessStatus(t *testing.T) {
	tr := server(t, respond(http.StatusOK, "text/xml", faultResponse))

	_, err := tr.Send(context.Background(), "<env/>", soap.OperationExecute)
	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusOK, te.StatusCode)
}

func TestHTTP_InvalidXML(t *testing.T) {
	tr := server(t, respond(http.StatusOK, "text/xml", "<unclosed>"))

	_, err := tr.Send(context.Background(), "<env/>", soap.OperationExecute)
	require.Error(t, err)
	var te *Error
	assert.False(t, errors.As(err, &te))
}

func TestHTTP_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		respond(http.StatusOK, "text/xml", okResponse)(w, r)
	}))
	t.Cleanup(ts.Close)

	tr := NewHTTP(ts.URL, WithTimeout(20*time.Millisecond))
	_, err := tr.Send(context.Background(), "<env/>", soap.OperationExecute)
	assert.Error(t, err)
}

func TestHTTP_SendAsync(t *testing.T) {
	tr := server(t, respond(http.StatusOK, "text/xml", okResponse))

	done := make(chan struct{})
	var gotDoc *etree.Document
	var gotErr error
	calls := 0
	tr.SendAsync(context.Background(), "<env/>", soap.OperationExecute, func(doc *etree.Document, err error) {
		calls++
		gotDoc, gotErr = doc, err
		close(done)
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback not called")
	}
	require.NoError(t, gotErr)
	assert.NotNil(t, gotDoc)
	assert.Equal(t, 1, calls)
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "Error : 404", (&Error{StatusCode: 404}).Error())
	assert.Nil(t, (&Error{StatusCode: 404}).Unwrap())
}

func TestFunc(t *testing.T) {
	var tr Transport = Func(func(ctx context.Context, envelope, operation string) (*etree.Document, error) {
		return nil, errors.New(operation)
	})
	_, err := tr.Send(context.Background(), "", "Execute")
	assert.EqualError(t, err, "Execute")
}
