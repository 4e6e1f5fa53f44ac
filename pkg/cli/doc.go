// Package cli provides the command-line interface for xrmsoap.
//
// Record commands:
//   - create: Create a record from --attr values
//   - update: Change attributes of a record
//   - retrieve: Show one record
//   - delete: Delete a record
//   - setstate: Change a record's state and status codes
//   - assign: Give a record to another user or team
//
// Query commands:
//   - fetch: Run a FetchXML query, optionally following every page
//   - query: Select records by attribute values
//
// Caller and metadata:
//   - whoami: Show the calling user and business unit
//   - roles: List or check the calling user's security roles
//   - metadata: Show entity and attribute metadata
//
// Tooling:
//   - envelope: Print the SOAP envelope of a request without sending it
//   - mock serve: Run the mock Organization service
//   - version: Show xrmsoap version
//
// Every command accepts --json; when it is set, only the JSON result is
// written to stdout.
package cli
