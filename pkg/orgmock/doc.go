// Package orgmock provides an in-process mock of the Organization service
// Execute endpoint.
//
// The Handler answers SOAP 1.1 Execute envelopes. Each request is matched
// by its a:RequestName against the configured operations, first match wins,
// and answered with the operation's templated response or fault. With
// Config.Stateful set, unmatched requests run against an in-memory record
// store: Create, Retrieve, Update, Delete, RetrieveMultiple (FetchExpression
// only, paged with cookies), SetState, Assign, the access requests and
// WhoAmI.
//
// The store ignores link-entity elements, so a role fetch filtered with
// eq-userid returns every seeded role. That is the behaviour callers of
// CurrentUserRoles expect from a single-user mock.
//
// Basic usage:
//
//	h, err := orgmock.New(&orgmock.Config{Stateful: true})
//	srv := httptest.NewServer(h)
//	client := orgservice.New(transport.NewHTTP(srv.URL))
package orgmock
