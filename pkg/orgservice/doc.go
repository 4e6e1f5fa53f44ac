// Package orgservice is a client for the Organization service Execute
// endpoint.
//
// Every operation comes in two forms. The blocking form returns the mapped
// result:
//
//	id, err := client.Create(ctx, account)
//
// The Async form returns caller errors (a bad id, a FetchXML fragment
// without an entity) immediately and otherwise hands the request to the
// transport, invoking onComplete exactly once with the mapped result:
//
//	err := client.CreateAsync(ctx, account, func(id string, err error) { ... })
//
// Both forms share request building and response mapping; only the hand-off
// to the transport differs. Transports implementing
// transport.AsyncTransport deliver the response themselves; for other
// transports the client runs Send on a goroutine.
//
// Fetch with fetchAll set follows MoreRecords across pages, strictly one
// page at a time. A failed follow-up page aborts the call with a *PageError
// and no partial results.
package orgservice
