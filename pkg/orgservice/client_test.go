package orgservice

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrmkit/xrmsoap/pkg/entity"
	"github.com/xrmkit/xrmsoap/pkg/orgmock"
	"github.com/xrmkit/xrmsoap/pkg/request"
	"github.com/xrmkit/xrmsoap/pkg/soap"
	"github.com/xrmkit/xrmsoap/pkg/transport"
)

const (
	accountID = "8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60"
	userID    = "11111111-1111-1111-1111-111111111111"
	unitID    = "22222222-2222-2222-2222-222222222222"
)

// --- Helpers ---

// newMockClient starts a mock Organization service and returns a client
// talking to it over HTTP.
func newMockClient(t *testing.T, cfg *orgmock.Config, opts ...Option) (*Client, *orgmock.Handler) {
	t.Helper()
	h, err := orgmock.New(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(transport.NewHTTP(srv.URL), opts...), h
}

// canned returns a client whose every request name in responses is answered
// with the given body.
func canned(t *testing.T, responses map[string]string) *Client {
	t.Helper()
	cfg := &orgmock.Config{}
	for name, body := range responses {
		cfg.Operations = append(cfg.Operations, orgmock.Operation{Request: name, Response: body})
	}
	c, _ := newMockClient(t, cfg)
	return c
}

// responseDoc parses a response body the way the transport would deliver it.
func responseDoc(t *testing.T, body string) *etree.Document {
	t.Helper()
	doc, err := soap.ParseResponse([]byte(`<s:Envelope xmlns:s="` + soap.SOAP11Namespace + `"><s:Body>` + body + `</s:Body></s:Envelope>`))
	require.NoError(t, err)
	return doc
}

// wait blocks until done is closed or fails the test.
func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback not called")
	}
}

const emptyResult = `<ExecuteResponse xmlns="` + soap.NSServices + `"><ExecuteResult xmlns:a="` + soap.NSContracts + `">` +
	`<a:ResponseName>Retrieve</a:ResponseName><a:Results /></ExecuteResult></ExecuteResponse>`

// --- Tests ---

func TestClient_CRUD(t *testing.T) {
	c, h := newMockClient(t, &orgmock.Config{Stateful: true})
	ctx := context.Background()

	acc := entity.New("account").
		Set("name", entity.String("Contoso <East>")).
		Set("numberofemployees", entity.Int(40))
	id, err := c.Create(ctx, acc)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, h.Store().Count("account"))

	got, err := c.Retrieve(ctx, "account", id, []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, "account", got.LogicalName)
	assert.True(t, entity.GUIDsEqual(id, got.ID))
	assert.Equal(t, "Contoso <East>", got.MustGet("name").Text)
	assert.Equal(t, 1, got.Len())

	upd := entity.New("account").Set("numberofemployees", entity.Int(41))
	upd.ID = id
	result, err := c.Update(ctx, upd)
	require.NoError(t, err)
	assert.Empty(t, result)

	got, err = c.Retrieve(ctx, "account", id, nil)
	require.NoError(t, err)
	n, err := got.MustGet("numberofemployees").Int()
	require.NoError(t, err)
	assert.Equal(t, 41, n)

	_, err = c.Delete(ctx, "account", id)
	require.NoError(t, err)
	assert.Zero(t, h.Store().Count("account"))

	_, err = c.Retrieve(ctx, "account", id, nil)
	var te *transport.Error
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Message, "Does Not Exist")
}

func TestClient_BuildErrorsAreReturned(t *testing.T) {
	c := New(transport.Func(func(ctx context.Context, envelope, operation string) (*etree.Document, error) {
		t.Fatal("nothing should be sent")
		return nil, nil
	}))
	ctx := context.Background()

	_, err := c.Retrieve(ctx, "account", "not-a-guid", nil)
	assert.ErrorIs(t, err, request.ErrInvalidID)

	_, err = c.Create(ctx, entity.New(""))
	assert.Error(t, err)

	called := false
	err = c.DeleteAsync(ctx, "account", "not-a-guid", func(string, error) { called = true })
	assert.ErrorIs(t, err, request.ErrInvalidID)

	err = c.FetchAsync(ctx, "<fetch><attribute name='x' /></fetch>", false, func([]*entity.BusinessEntity, error) { called = true })
	assert.Error(t, err)
	assert.False(t, called)
}

func TestClient_RetrieveWithoutValue(t *testing.T) {
	c := canned(t, map[string]string{"Retrieve": emptyResult})

	_, err := c.Retrieve(context.Background(), "account", accountID, nil)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestClient_CreateWithoutValue(t *testing.T) {
	c := canned(t, map[string]string{"Create": emptyResult})

	_, err := c.Create(context.Background(), entity.New("account"))
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestClient_RetrieveMultiple(t *testing.T) {
	body, err := orgmock.NewResponse(request.NameRetrieveMultiple).Collection("EntityCollection", orgmock.Collection{
		EntityName: "account",
		Entities: []*entity.BusinessEntity{
			entity.New("account").Set("name", entity.String("A")),
			entity.New("account").Set("name", entity.String("B")),
		},
	}).Body()
	require.NoError(t, err)

	c := canned(t, map[string]string{"RetrieveMultiple": body})
	records, err := c.RetrieveMultiple(context.Background(), "<a:EntityName>account</a:EntityName>")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "B", records[1].MustGet("name").Text)

	c = canned(t, map[string]string{"RetrieveMultiple": emptyResult})
	records, err = c.RetrieveMultiple(context.Background(), "<a:EntityName>account</a:EntityName>")
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestClient_SetStateAssignAccess(t *testing.T) {
	c, h := newMockClient(t, &orgmock.Config{Stateful: true, Records: []orgmock.Record{{Entity: "incident", ID: accountID}}})
	ctx := context.Background()
	target := entity.EntityReference{ID: accountID, LogicalName: "incident"}
	user := entity.EntityReference{ID: userID, LogicalName: "systemuser"}

	result, err := c.SetState(ctx, "incident", accountID, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "SetState", result)

	_, err = c.Assign(ctx, target, user)
	require.NoError(t, err)
	assert.Equal(t, userID, h.Store().Get("incident", accountID).MustGet("ownerid").Reference.ID)

	_, err = c.GrantAccess(ctx, target, user, []string{"ReadAccess", "ShareAccess"})
	require.NoError(t, err)
	rights, err := c.RetrievePrincipalAccess(ctx, target, user)
	require.NoError(t, err)
	assert.Equal(t, "ReadAccess ShareAccess", rights)

	_, err = c.ModifyAccess(ctx, target, user, []string{"WriteAccess"})
	require.NoError(t, err)
	rights, err = c.RetrievePrincipalAccess(ctx, target, user)
	require.NoError(t, err)
	assert.Equal(t, "WriteAccess", rights)

	_, err = c.RevokeAccess(ctx, target, user)
	require.NoError(t, err)
	rights, err = c.RetrievePrincipalAccess(ctx, target, user)
	require.NoError(t, err)
	assert.Equal(t, "None", rights)
}

func TestClient_AssociateDisassociate(t *testing.T) {
	c, h := newMockClient(t, &orgmock.Config{Stateful: true})
	ctx := context.Background()
	target := entity.EntityReference{ID: accountID, LogicalName: "account"}
	related := []entity.EntityReference{{ID: userID}}

	_, err := c.Associate(ctx, "contact_customer_accounts", target, "contact", related)
	require.NoError(t, err)
	_, err = c.Disassociate(ctx, "contact_customer_accounts", target, "contact", related)
	require.NoError(t, err)

	recs := h.Recordings()
	require.Len(t, recs, 2)
	assert.Equal(t, "Associate", recs[0].RequestName)
	assert.Equal(t, "Disassociate", recs[1].RequestName)
}

func TestClient_Execute(t *testing.T) {
	c, _ := newMockClient(t, &orgmock.Config{Stateful: true, Identity: orgmock.Identity{UserID: userID}})
	ctx := context.Background()

	body, err := request.WhoAmI().Body()
	require.NoError(t, err)
	doc, err := c.Execute(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, userID, soap.SelectSingleNodeText(doc, "//b:value"))

	doc, err = c.ExecuteRequest(ctx, request.WhoAmI())
	require.NoError(t, err)
	assert.Equal(t, "WhoAmI", soap.SelectSingleNodeText(doc, "//a:ResponseName"))
}

func TestClient_Fault(t *testing.T) {
	h, err := orgmock.New(&orgmock.Config{Operations: []orgmock.Operation{{
		Request: "*",
		Fault:   &soap.Fault{Code: "s:Client", Message: "Principal user is missing prvCreateAccount privilege"},
	}}})
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(transport.NewHTTP(srv.URL))

	_, err = c.Create(context.Background(), entity.New("account"))
	var fault *soap.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "Principal user is missing prvCreateAccount privilege", fault.Message)
}

// --- Async ---

func TestClient_AsyncThroughHTTP(t *testing.T) {
	c, _ := newMockClient(t, &orgmock.Config{Stateful: true})

	done := make(chan struct{})
	var id string
	var gotErr error
	err := c.CreateAsync(context.Background(), entity.New("account").Set("name", entity.String("Async")), func(v string, err error) {
		id, gotErr = v, err
		close(done)
	})
	require.NoError(t, err)
	wait(t, done)
	require.NoError(t, gotErr)

	done = make(chan struct{})
	var got *entity.BusinessEntity
	err = c.RetrieveAsync(context.Background(), "account", id, nil, func(e *entity.BusinessEntity, err error) {
		got, gotErr = e, err
		close(done)
	})
	require.NoError(t, err)
	wait(t, done)
	require.NoError(t, gotErr)
	assert.Equal(t, "Async", got.MustGet("name").Text)
}

func TestClient_AsyncWithBlockingTransport(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	c := New(transport.Func(func(ctx context.Context, envelope, operation string) (*etree.Document, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		assert.Contains(t, envelope, "<a:RequestName>Delete</a:RequestName>")
		return nil, errors.New("connection reset")
	}))

	done := make(chan struct{})
	var gotErr error
	err := c.DeleteAsync(context.Background(), "account", accountID, func(_ string, err error) {
		gotErr = err
		close(done)
	})
	require.NoError(t, err)
	wait(t, done)

	assert.EqualError(t, gotErr, "connection reset")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestClient_AsyncMapsLikeSync(t *testing.T) {
	c := canned(t, map[string]string{"Retrieve": emptyResult})

	done := make(chan struct{})
	var gotErr error
	err := c.RetrieveAsync(context.Background(), "account", accountID, nil, func(e *entity.BusinessEntity, err error) {
		assert.Nil(t, e)
		gotErr = err
		close(done)
	})
	require.NoError(t, err)
	wait(t, done)
	assert.ErrorIs(t, gotErr, ErrNoResult)
}

func TestPageError(t *testing.T) {
	cause := errors.New("timeout")
	err := &PageError{Page: 3, Err: cause}

	assert.Equal(t, "fetch page 3: timeout", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, strings.HasPrefix(err.Error(), "fetch page"))
}
