package orgmock

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/xrmkit/xrmsoap/internal/storage"
	"github.com/xrmkit/xrmsoap/pkg/entity"
	"github.com/xrmkit/xrmsoap/pkg/request"
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

// stateful answers requests from a record store.
type stateful struct {
	store    storage.RecordStore
	identity Identity
	pageSize int

	mu     sync.Mutex
	access map[accessKey]string
}

type accessKey struct {
	target    string
	principal string
}

func newStateful(store storage.RecordStore, cfg *Config, identity Identity) (*stateful, error) {
	s := &stateful{
		store:    store,
		identity: identity,
		pageSize: cfg.pageSize(),
		access:   make(map[accessKey]string),
	}
	for _, r := range cfg.Records {
		if err := s.store.Set(withPrimaryID(r.toEntity())); err != nil {
			return nil, fmt.Errorf("seed %s: %w", r.Entity, err)
		}
	}
	for _, name := range cfg.Roles {
		role := entity.New("role")
		role.ID = uuid.NewString()
		role.Set("name", entity.String(name))
		role.Set("businessunitid", entity.Reference(entity.EntityReference{
			ID: identity.BusinessUnitID, LogicalName: "businessunit",
		}))
		if err := s.store.Set(withPrimaryID(role)); err != nil {
			return nil, fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	return s, nil
}

// withPrimaryID sets the <entity>id attribute the service always returns.
func withPrimaryID(e *entity.BusinessEntity) *entity.BusinessEntity {
	key := e.LogicalName + "id"
	if _, ok := e.Get(key); !ok {
		e.Set(key, entity.GUID(e.ID))
	}
	return e
}

// params maps parameter keys to their value elements.
type params map[string]*etree.Element

func readParams(doc *etree.Document) params {
	out := params{}
	for _, kvp := range soap.SelectNodes(doc, "//a:Parameters/a:KeyValuePairOfstringanyType") {
		key := strings.TrimSpace(soap.SelectText(kvp, "b:key"))
		if key == "" {
			continue
		}
		out[key] = soap.SelectOne(kvp, "b:value")
	}
	return out
}

func (p params) reference(key string) (entity.EntityReference, *soap.Fault) {
	el := p[key]
	if el == nil || soap.IsNil(el) {
		return entity.EntityReference{}, clientFault("Required parameter %s is missing", key)
	}
	ref := entity.ReadReference(el)
	if err := ref.Validate(); err != nil {
		return entity.EntityReference{}, clientFault("Parameter %s: %v", key, err)
	}
	return ref, nil
}

func (p params) record(key string) (*entity.BusinessEntity, *soap.Fault) {
	el := p[key]
	if el == nil || soap.IsNil(el) || soap.TypeAttr(el) != "Entity" {
		return nil, clientFault("Required parameter %s is missing", key)
	}
	e := entity.Deserialize(el)
	if err := entity.ValidateLogicalName(e.LogicalName); err != nil {
		return nil, clientFault("Parameter %s: %v", key, err)
	}
	return e, nil
}

func (p params) optionSet(key string) (int, *soap.Fault) {
	el := p[key]
	if el == nil {
		return 0, clientFault("Required parameter %s is missing", key)
	}
	n, err := strconv.Atoi(strings.TrimSpace(soap.SelectText(el, "a:Value")))
	if err != nil {
		return 0, clientFault("Parameter %s is not an option set value", key)
	}
	return n, nil
}

func clientFault(format string, args ...any) *soap.Fault {
	msg := fmt.Sprintf(format, args...)
	return &soap.Fault{Code: "s:Client", Message: msg, Detail: msg}
}

func notFound(ref entity.EntityReference) *soap.Fault {
	return clientFault("%s With Id = %s Does Not Exist", ref.LogicalName, ref.ID)
}

// execute runs a request against the store and returns the response body.
func (s *stateful) execute(name string, doc *etree.Document) (string, *soap.Fault) {
	p := readParams(doc)

	var resp *Response
	var fault *soap.Fault
	switch name {
	case request.NameCreate:
		resp, fault = s.create(p)
	case request.NameUpdate:
		resp, fault = s.update(p)
	case request.NameDelete:
		resp, fault = s.delete(p)
	case request.NameRetrieve:
		resp, fault = s.retrieve(p)
	case request.NameRetrieveMultiple:
		resp, fault = s.retrieveMultiple(p)
	case request.NameSetState:
		resp, fault = s.setState(p)
	case request.NameAssign:
		resp, fault = s.assign(p)
	case request.NameAssociate, request.NameDisassociate:
		resp, fault = s.associate(name, p)
	case request.NameGrantAccess, request.NameModifyAccess:
		resp, fault = s.grantAccess(name, p)
	case request.NameRevokeAccess:
		resp, fault = s.revokeAccess(p)
	case request.NameRetrievePrincipalAccess:
		resp, fault = s.retrievePrincipalAccess(p)
	case request.NameWhoAmI:
		resp = NewResponse(name).
			Guid("UserId", s.identity.UserID).
			Guid("BusinessUnitId", s.identity.BusinessUnitID).
			Guid("OrganizationId", s.identity.OrganizationID)
	default:
		return "", clientFault("Unknown request: %s", name)
	}
	if fault != nil {
		return "", fault
	}

	body, err := resp.Body()
	if err != nil {
		return "", &soap.Fault{Code: "s:Server", Message: "Failed to build response: " + err.Error()}
	}
	return body, nil
}

func (s *stateful) create(p params) (*Response, *soap.Fault) {
	e, fault := p.record("Target")
	if fault != nil {
		return nil, fault
	}
	if e.ID == "" || entity.GUIDsEqual(e.ID, entity.EmptyID) {
		e.ID = uuid.NewString()
	}
	if s.store.Get(e.LogicalName, e.ID) != nil {
		return nil, clientFault("Cannot insert duplicate key")
	}
	if err := s.store.Set(withPrimaryID(e)); err != nil {
		return nil, clientFault("%v", err)
	}
	return NewResponse(request.NameCreate).Guid("id", e.ID), nil
}

func (s *stateful) update(p params) (*Response, *soap.Fault) {
	e, fault := p.record("Target")
	if fault != nil {
		return nil, fault
	}
	table := storage.NewTable(s.store, e.LogicalName)
	stored := table.Get(e.ID)
	if stored == nil {
		return nil, notFound(e.Reference())
	}
	for _, k := range e.Keys() {
		stored.Set(k, e.MustGet(k))
	}
	if err := table.Set(stored); err != nil {
		return nil, clientFault("%v", err)
	}
	return NewResponse(request.NameUpdate), nil
}

func (s *stateful) delete(p params) (*Response, *soap.Fault) {
	ref, fault := p.reference("Target")
	if fault != nil {
		return nil, fault
	}
	if !s.store.Delete(ref.LogicalName, ref.ID) {
		return nil, notFound(ref)
	}
	return NewResponse(request.NameDelete), nil
}

func (s *stateful) retrieve(p params) (*Response, *soap.Fault) {
	ref, fault := p.reference("Target")
	if fault != nil {
		return nil, fault
	}
	e := s.store.Get(ref.LogicalName, ref.ID)
	if e == nil {
		return nil, notFound(ref)
	}
	return NewResponse(request.NameRetrieve).Entity("Entity", project(e, columnSet(p["ColumnSet"]))), nil
}

// columnSet returns the requested columns, or nil for all columns.
func columnSet(el *etree.Element) []string {
	if el == nil || strings.TrimSpace(soap.SelectText(el, "a:AllColumns")) != "false" {
		return nil
	}
	cols := []string{}
	for _, c := range soap.Select(el, "a:Columns/*") {
		cols = append(cols, strings.TrimSpace(c.Text()))
	}
	return cols
}

func (s *stateful) retrieveMultiple(p params) (*Response, *soap.Fault) {
	query := p["Query"]
	if query == nil {
		return nil, clientFault("Required parameter Query is missing")
	}
	if soap.TypeAttr(query) != "FetchExpression" {
		return nil, clientFault("Only FetchExpression queries are supported")
	}

	q, err := parseFetch(soap.SelectText(query, "a:Query"), s.pageSize)
	if err != nil {
		return nil, clientFault("%v", err)
	}

	ev := evaluator{userID: s.identity.UserID}
	var matched []*entity.BusinessEntity
	for _, e := range s.store.List(q.entityName) {
		ok, err := ev.matches(q, e)
		if err != nil {
			return nil, clientFault("%v", err)
		}
		if ok {
			matched = append(matched, e)
		}
	}
	sortRecords(matched, q.orders)

	start := min((q.page-1)*q.count, len(matched))
	end := min(start+q.count, len(matched))
	page := matched[start:end]
	for i, e := range page {
		page[i] = project(e, q.columns)
	}

	return NewResponse(request.NameRetrieveMultiple).Collection("EntityCollection", Collection{
		EntityName:   q.entityName,
		Entities:     page,
		MoreRecords:  end < len(matched),
		PagingCookie: pagingCookie(q.entityName, q.page, page),
	}), nil
}

func (s *stateful) setState(p params) (*Response, *soap.Fault) {
	ref, fault := p.reference("EntityMoniker")
	if fault != nil {
		return nil, fault
	}
	state, fault := p.optionSet("State")
	if fault != nil {
		return nil, fault
	}
	status, fault := p.optionSet("Status")
	if fault != nil {
		return nil, fault
	}
	return NewResponse(request.NameSetState), s.modify(ref, func(e *entity.BusinessEntity) {
		e.Set("statecode", entity.OptionSet(state))
		e.Set("statuscode", entity.OptionSet(status))
	})
}

func (s *stateful) assign(p params) (*Response, *soap.Fault) {
	target, fault := p.reference("Target")
	if fault != nil {
		return nil, fault
	}
	assignee, fault := p.reference("Assignee")
	if fault != nil {
		return nil, fault
	}
	return NewResponse(request.NameAssign), s.modify(target, func(e *entity.BusinessEntity) {
		e.Set("ownerid", entity.Reference(assignee))
	})
}

func (s *stateful) modify(ref entity.EntityReference, fn func(*entity.BusinessEntity)) *soap.Fault {
	e := s.store.Get(ref.LogicalName, ref.ID)
	if e == nil {
		return notFound(ref)
	}
	fn(e)
	if err := s.store.Set(e); err != nil {
		return clientFault("%v", err)
	}
	return nil
}

// associate checks the request shape; relationships are not stored.
func (s *stateful) associate(name string, p params) (*Response, *soap.Fault) {
	if _, fault := p.reference("Target"); fault != nil {
		return nil, fault
	}
	rel := p["Relationship"]
	if rel == nil || strings.TrimSpace(soap.SelectText(rel, "a:SchemaName")) == "" {
		return nil, clientFault("Required parameter Relationship is missing")
	}
	related := p["RelatedEntities"]
	if related == nil || len(soap.Select(related, "a:EntityReference")) == 0 {
		return nil, clientFault("Required parameter RelatedEntities is missing")
	}
	return NewResponse(name), nil
}

func (s *stateful) grantAccess(name string, p params) (*Response, *soap.Fault) {
	target, fault := p.reference("Target")
	if fault != nil {
		return nil, fault
	}
	pa := p["PrincipalAccess"]
	if pa == nil {
		return nil, clientFault("Required parameter PrincipalAccess is missing")
	}
	var mask string
	var principal entity.EntityReference
	for _, c := range pa.ChildElements() {
		switch c.Tag {
		case "AccessMask":
			mask = strings.TrimSpace(c.Text())
		case "Principal":
			principal = entity.ReadReference(c)
		}
	}
	if err := principal.Validate(); err != nil {
		return nil, clientFault("Parameter PrincipalAccess: %v", err)
	}

	s.mu.Lock()
	s.access[newAccessKey(target, principal)] = mask
	s.mu.Unlock()
	return NewResponse(name), nil
}

func (s *stateful) revokeAccess(p params) (*Response, *soap.Fault) {
	target, fault := p.reference("Target")
	if fault != nil {
		return nil, fault
	}
	revokee, fault := p.reference("Revokee")
	if fault != nil {
		return nil, fault
	}
	s.mu.Lock()
	delete(s.access, newAccessKey(target, revokee))
	s.mu.Unlock()
	return NewResponse(request.NameRevokeAccess), nil
}

func (s *stateful) retrievePrincipalAccess(p params) (*Response, *soap.Fault) {
	target, fault := p.reference("Target")
	if fault != nil {
		return nil, fault
	}
	principal, fault := p.reference("Principal")
	if fault != nil {
		return nil, fault
	}
	s.mu.Lock()
	mask, ok := s.access[newAccessKey(target, principal)]
	s.mu.Unlock()
	if !ok || mask == "" {
		mask = "None"
	}
	return NewResponse(request.NameRetrievePrincipalAccess).
		Typed("AccessRights", "AccessRights", soap.NSCrmContracts, mask), nil
}

func newAccessKey(target, principal entity.EntityReference) accessKey {
	t, _ := entity.CanonicalID(target.ID)
	p, _ := entity.CanonicalID(principal.ID)
	return accessKey{target: t, principal: p}
}
