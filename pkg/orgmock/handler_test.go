package orgmock

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrmkit/xrmsoap/pkg/entity"
	"github.com/xrmkit/xrmsoap/pkg/fetchxml"
	"github.com/xrmkit/xrmsoap/pkg/request"
	"github.com/xrmkit/xrmsoap/pkg/soap"
	"github.com/xrmkit/xrmsoap/pkg/transport"
)

// --- Helpers ---

func newHandler(t *testing.T, cfg *Config) *Handler {
	t.Helper()
	h, err := New(cfg)
	require.NoError(t, err)
	return h
}

// send posts req to h through the HTTP transport.
func send(t *testing.T, h *Handler, req *request.Request) (*etree.Document, error) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	envelope, err := req.Envelope()
	require.NoError(t, err)
	return transport.NewHTTP(srv.URL).Send(context.Background(), envelope, soap.OperationExecute)
}

func mustSend(t *testing.T, h *Handler, req *request.Request, err error) *etree.Document {
	t.Helper()
	require.NoError(t, err)
	doc, err := send(t, h, req)
	require.NoError(t, err)
	return doc
}

func faultMessage(t *testing.T, err error) string {
	t.Helper()
	var te *transport.Error
	require.ErrorAs(t, err, &te)
	return te.Message
}

// --- Protocol ---

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := newHandler(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_InvalidEnvelope(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"not xml", "<unclosed", "Failed to parse SOAP envelope"},
		{"not an envelope", "<Body/>", "root element must be Envelope"},
		{"no request name", soap.WrapExecute("<request/>"), "no RequestName"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHandler(t, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, soap.SOAP11ContentType, rec.Header().Get("Content-Type"))

			doc, err := soap.ParseResponse(rec.Body.Bytes())
			require.NoError(t, err)
			fault := soap.ParseFault(doc)
			require.NotNil(t, fault)
			assert.Equal(t, "s:Client", fault.Code)
			assert.Contains(t, fault.Message, tt.want)
		})
	}
}

func TestHandler_UnknownRequestWhenStateless(t *testing.T) {
	h := newHandler(t, nil)

	_, err := send(t, h, request.WhoAmI())

	assert.Equal(t, "Unknown request: WhoAmI", faultMessage(t, err))
}

// --- Canned operations ---

func TestHandler_TemplatedResponse(t *testing.T) {
	h := newHandler(t, &Config{Operations: []Operation{{
		Request:  "retrieve",
		Response: `<Echo><Name>{{xpath://a:LogicalName}}</Name><Id>{{uuid}}</Id><At>{{now}}</At><Keep>{{other}}</Keep></Echo>`,
	}}})

	req, err := request.Retrieve("account", "8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60", nil)
	doc := mustSend(t, h, req, err)

	assert.Equal(t, "account", soap.SelectSingleNodeText(doc, "//Name"))
	assert.Len(t, soap.SelectSingleNodeText(doc, "//Id"), 36)
	_, perr := time.Parse(time.RFC3339, soap.SelectSingleNodeText(doc, "//At"))
	assert.NoError(t, perr)
	assert.Equal(t, "{{other}}", soap.SelectSingleNodeText(doc, "//Keep"))
}

func TestHandler_FirstMatchWins(t *testing.T) {
	h := newHandler(t, &Config{Operations: []Operation{
		{
			Request: "Retrieve",
			Match:   &Match{XPath: map[string]string{"//a:LogicalName": "contact"}},
			Fault:   &soap.Fault{Code: "s:Client", Message: "contacts are locked"},
		},
		{
			Request:  "Retrieve",
			Match:    &Match{Contains: []string{"AllColumns>true"}},
			Response: `<Result>all columns</Result>`,
		},
		{Request: "*", Response: `<Result>catch all</Result>`},
	}})

	id := "8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60"

	req, err := request.Retrieve("contact", id, nil)
	require.NoError(t, err)
	_, err = send(t, h, req)
	assert.Equal(t, "contacts are locked", faultMessage(t, err))

	req, err = request.Retrieve("account", id, nil)
	doc := mustSend(t, h, req, err)
	assert.Equal(t, "all columns", soap.SelectSingleNodeText(doc, "//Result"))

	req, err = request.Retrieve("account", id, []string{"name"})
	doc = mustSend(t, h, req, err)
	assert.Equal(t, "catch all", soap.SelectSingleNodeText(doc, "//Result"))
}

func TestHandler_FaultDetail(t *testing.T) {
	h := newHandler(t, &Config{Operations: []Operation{{
		Request: "WhoAmI",
		Fault:   &soap.Fault{Code: "s:Sender", Message: "denied", Detail: "Principal user is missing prvReadUser"},
	}}})

	_, err := send(t, h, request.WhoAmI())

	var fault *soap.Fault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "s:Sender", fault.Code)
	assert.Equal(t, "denied", fault.Message)
	assert.Equal(t, "Principal user is missing prvReadUser", fault.Detail)
}

func TestHandler_Delay(t *testing.T) {
	h := newHandler(t, &Config{Operations: []Operation{{
		Request: "WhoAmI", Delay: "50", Response: "<Done/>",
	}}})

	start := time.Now()
	_, err := send(t, h, request.WhoAmI())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestHandler_Recordings(t *testing.T) {
	h := newHandler(t, &Config{Stateful: true})

	_, err := send(t, h, request.WhoAmI())
	require.NoError(t, err)
	req, err := request.Delete("account", "8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60")
	require.NoError(t, err)
	_, err = send(t, h, req)
	require.Error(t, err)

	recs := h.Recordings()
	require.Len(t, recs, 2)
	assert.Equal(t, "WhoAmI", recs[0].RequestName)
	assert.Equal(t, http.StatusOK, recs[0].ResponseStatus)
	assert.Equal(t, soap.ActionFor(soap.OperationExecute), recs[0].SOAPAction)
	assert.False(t, recs[0].HasFault)
	assert.Equal(t, "Delete", recs[1].RequestName)
	assert.True(t, recs[1].HasFault)
	assert.Contains(t, recs[1].FaultMessage, "Does Not Exist")

	h.ClearRecordings()
	assert.Empty(t, h.Recordings())
}

// --- Stateful ---

func TestStateful_CRUD(t *testing.T) {
	h := newHandler(t, &Config{Stateful: true})

	acc := entity.New("account")
	acc.Set("name", entity.String("Contoso & Sons"))
	acc.Set("numberofemployees", entity.Int(12))
	req, err := request.Create(acc)
	doc := mustSend(t, h, req, err)
	id := soap.SelectSingleNodeText(doc, "//b:value")
	require.NotEmpty(t, id)
	assert.Equal(t, 1, h.Store().Count("account"))

	req, err = request.Retrieve("account", id, []string{"name"})
	doc = mustSend(t, h, req, err)
	got := entity.Deserialize(soap.SelectSingleNode(doc, "//b:value"))
	assert.True(t, entity.GUIDsEqual(id, got.ID))
	assert.Equal(t, "Contoso & Sons", got.MustGet("name").Text)
	_, hasEmployees := got.Get("numberofemployees")
	assert.False(t, hasEmployees, "column set should limit attributes")

	upd := entity.New("account")
	upd.ID = id
	upd.Set("name", entity.String("Contoso"))
	req, err = request.Update(upd)
	mustSend(t, h, req, err)

	req, err = request.Retrieve("account", id, nil)
	doc = mustSend(t, h, req, err)
	got = entity.Deserialize(soap.SelectSingleNode(doc, "//b:value"))
	assert.Equal(t, "Contoso", got.MustGet("name").Text)
	assert.Equal(t, "12", got.MustGet("numberofemployees").Text)
	assert.True(t, entity.GUIDsEqual(id, got.MustGet("accountid").Text))

	req, err = request.Delete("account", id)
	mustSend(t, h, req, err)

	req, err = request.Retrieve("account", id, nil)
	require.NoError(t, err)
	_, err = send(t, h, req)
	assert.Contains(t, faultMessage(t, err), "Does Not Exist")
}

func TestStateful_CreateDuplicate(t *testing.T) {
	h := newHandler(t, &Config{Stateful: true})
	acc := entity.New("account")
	acc.ID = "8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60"

	req, err := request.Create(acc)
	mustSend(t, h, req, err)
	_, err = send(t, h, req)
	assert.Equal(t, "Cannot insert duplicate key", faultMessage(t, err))
}

func TestStateful_UpdateMissing(t *testing.T) {
	h := newHandler(t, &Config{Stateful: true})
	acc := entity.New("account")
	acc.ID = "8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60"

	req, err := request.Update(acc)
	require.NoError(t, err)
	_, err = send(t, h, req)
	assert.Contains(t, faultMessage(t, err), "account With Id = 8f1c3e22")
}

func TestStateful_FetchPaging(t *testing.T) {
	cfg := &Config{Stateful: true, PageSize: 2}
	for _, name := range []string{"e", "b", "d", "a", "c"} {
		cfg.Records = append(cfg.Records, Record{Entity: "account", Attributes: map[string]string{"name": name}})
	}
	h := newHandler(t, cfg)

	core := `<entity name='account'><attribute name='name' /><order attribute='name' descending='false' /></entity>`

	req, err := request.Fetch(`<fetch mapping="logical">` + core + `</fetch>`)
	doc := mustSend(t, h, req, err)
	assert.Equal(t, "true", soap.SelectSingleNodeText(doc, "//a:MoreRecords"))
	page := entity.DeserializeAll(soap.SelectSingleNode(doc, "//a:Entities"))
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].MustGet("name").Text)
	assert.Equal(t, "b", page[1].MustGet("name").Text)
	assert.Equal(t, 1, page[0].Len(), "only requested attributes are returned")

	cookie := soap.SelectSingleNodeText(doc, "//a:PagingCookie")
	assert.Contains(t, cookie, `<cookie page="1">`)

	req, err = request.Fetch(fetchxml.Page(core, 3, 2, cookie))
	doc = mustSend(t, h, req, err)
	assert.Equal(t, "false", soap.SelectSingleNodeText(doc, "//a:MoreRecords"))
	page = entity.DeserializeAll(soap.SelectSingleNode(doc, "//a:Entities"))
	require.Len(t, page, 1)
	assert.Equal(t, "e", page[0].MustGet("name").Text)
}

func TestStateful_FetchFilters(t *testing.T) {
	h := newHandler(t, &Config{Stateful: true, Records: []Record{
		{Entity: "contact", Attributes: map[string]string{"lastname": "Smith", "city": "Oslo"}},
		{Entity: "contact", Attributes: map[string]string{"lastname": "Smithers", "city": "Bergen"}},
		{Entity: "contact", Attributes: map[string]string{"lastname": "Jones"}},
	}})

	tests := []struct {
		name   string
		filter string
		want   int
	}{
		{"eq", `<condition attribute='lastname' operator='eq' value='smith' />`, 1},
		{"like prefix", `<condition attribute='lastname' operator='like' value='Smith%' />`, 2},
		{"null", `<condition attribute='city' operator='null' />`, 1},
		{"not-null", `<condition attribute='city' operator='not-null' />`, 2},
		{"in", `<condition attribute='city' operator='in'><value>Oslo</value><value>Bergen</value></condition>`, 2},
		{"ne", `<condition attribute='lastname' operator='ne' value='Jones' />`, 2},
		{"no conditions", ``, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := request.Fetch(`<fetch mapping="logical"><entity name='contact'><all-attributes /><filter type='and'>` +
				tt.filter + `</filter></entity></fetch>`)
			doc := mustSend(t, h, req, err)
			assert.Len(t, soap.Select(soap.SelectSingleNode(doc, "//a:Entities"), "a:Entity"), tt.want)
		})
	}
}

func TestStateful_FetchUnsupportedOperator(t *testing.T) {
	h := newHandler(t, &Config{Stateful: true, Records: []Record{{Entity: "contact"}}})

	req, err := request.Fetch(`<fetch mapping="logical"><entity name='contact'><filter><condition attribute='x' operator='above' value='1' /></filter></entity></fetch>`)
	require.NoError(t, err)
	_, err = send(t, h, req)
	assert.Contains(t, faultMessage(t, err), `unsupported condition operator "above"`)
}

func TestStateful_QueryExpressionRejected(t *testing.T) {
	h := newHandler(t, &Config{Stateful: true})

	req, err := request.RetrieveMultiple("<a:EntityName>account</a:EntityName>")
	require.NoError(t, err)
	_, err = send(t, h, req)
	assert.Equal(t, "Only FetchExpression queries are supported", faultMessage(t, err))
}

func TestStateful_WhoAmI(t *testing.T) {
	identity := Identity{
		UserID:         "11111111-1111-1111-1111-111111111111",
		BusinessUnitID: "22222222-2222-2222-2222-222222222222",
		OrganizationID: "33333333-3333-3333-3333-333333333333",
	}
	h := newHandler(t, &Config{Stateful: true, Identity: identity})

	doc, err := send(t, h, request.WhoAmI())
	require.NoError(t, err)

	values := soap.SelectNodes(doc, "//b:value")
	require.Len(t, values, 3)
	assert.Equal(t, identity.UserID, soap.NodeText(values[0]))
	assert.Equal(t, identity.BusinessUnitID, soap.NodeText(values[1]))
	assert.Equal(t, identity.OrganizationID, soap.NodeText(values[2]))
}

func TestStateful_GeneratedIdentity(t *testing.T) {
	h := newHandler(t, &Config{Stateful: true})
	id := h.Identity()
	for _, v := range []string{id.UserID, id.BusinessUnitID, id.OrganizationID} {
		_, err := entity.CanonicalID(v)
		assert.NoError(t, err)
	}
}

func TestStateful_SetStateAndAssign(t *testing.T) {
	id := "8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60"
	owner := "44444444-4444-4444-4444-444444444444"
	h := newHandler(t, &Config{Stateful: true, Records: []Record{{Entity: "incident", ID: id}}})

	req, err := request.SetState("incident", id, 1, 5)
	doc := mustSend(t, h, req, err)
	assert.Equal(t, "SetState", soap.SelectSingleNodeText(doc, "//ser:ExecuteResult"))

	req, err = request.Assign(
		entity.EntityReference{ID: id, LogicalName: "incident"},
		entity.EntityReference{ID: owner, LogicalName: "systemuser"})
	mustSend(t, h, req, err)

	stored := h.Store().Get("incident", id)
	require.NotNil(t, stored)
	assert.Equal(t, "1", stored.MustGet("statecode").Text)
	assert.Equal(t, "5", stored.MustGet("statuscode").Text)
	assert.Equal(t, owner, stored.MustGet("ownerid").Reference.ID)
}

func TestStateful_Access(t *testing.T) {
	h := newHandler(t, &Config{Stateful: true})
	target := entity.EntityReference{ID: "8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60", LogicalName: "account"}
	user := entity.EntityReference{ID: "44444444-4444-4444-4444-444444444444", LogicalName: "systemuser"}

	rights := func() string {
		req, err := request.RetrievePrincipalAccess(target, user)
		doc := mustSend(t, h, req, err)
		return soap.SelectSingleNodeText(doc, "//b:value")
	}

	assert.Equal(t, "None", rights())

	req, err := request.GrantAccess(target, user, []string{"ReadAccess", "WriteAccess"})
	mustSend(t, h, req, err)
	assert.Equal(t, "ReadAccess WriteAccess", rights())

	req, err = request.ModifyAccess(target, user, []string{"ReadAccess"})
	mustSend(t, h, req, err)
	assert.Equal(t, "ReadAccess", rights())

	req, err = request.RevokeAccess(target, user)
	mustSend(t, h, req, err)
	assert.Equal(t, "None", rights())
}

func TestStateful_Associate(t *testing.T) {
	h := newHandler(t, &Config{Stateful: true})

	req, err := request.Associate("contact_customer_accounts",
		entity.EntityReference{ID: "8f1c3e22-5b6d-4a8e-9f0a-1b2c3d4e5f60", LogicalName: "account"},
		"contact",
		[]entity.EntityReference{{ID: "44444444-4444-4444-4444-444444444444"}})
	doc := mustSend(t, h, req, err)
	assert.Equal(t, "Associate", soap.SelectSingleNodeText(doc, "//a:ResponseName"))
}

func TestStateful_Roles(t *testing.T) {
	h := newHandler(t, &Config{Stateful: true, Roles: []string{"Salesperson", "System Administrator"}})

	req, err := request.Fetch(`<fetch mapping="logical" distinct="true"><entity name='role'><attribute name='name' />` +
		`<link-entity name='systemuserroles' from='roleid' to='roleid'><filter><condition attribute='systemuserid' operator='eq-userid' /></filter></link-entity>` +
		`</entity></fetch>`)
	doc := mustSend(t, h, req, err)

	roles := entity.DeserializeAll(soap.SelectSingleNode(doc, "//a:Entities"))
	require.Len(t, roles, 2)
	assert.Equal(t, "Salesperson", roles[0].MustGet("name").Text)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&Config{Operations: []Operation{{Request: "WhoAmI"}}})
	assert.Error(t, err)
}

func TestProcessTemplate_XPathIsEncoded(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(`<a><b>x&lt;y</b></a>`))

	assert.Equal(t, "<v>x&#60;y</v>", processTemplate("<v>{{xpath://b}}</v>", doc))
}

func TestBuildFault_DefaultsCode(t *testing.T) {
	doc, err := soap.ParseResponse([]byte(buildFault(&soap.Fault{Message: "boom"})))
	require.NoError(t, err)
	fault := soap.ParseFault(doc)
	require.NotNil(t, fault)
	assert.Equal(t, "s:Client", fault.Code)
	assert.Equal(t, "boom", fault.Message)
}

func TestHandler_ResponseIsWrapped(t *testing.T) {
	h := newHandler(t, &Config{Stateful: true})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	envelope, err := request.WhoAmI().Envelope()
	require.NoError(t, err)
	resp, err := http.Post(srv.URL, soap.SOAP11ContentType, strings.NewReader(envelope))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(string(body), `<?xml version="1.0" encoding="UTF-8"?><s:Envelope`))
	assert.Contains(t, string(body), `<a:ResponseName>WhoAmI</a:ResponseName>`)
}
