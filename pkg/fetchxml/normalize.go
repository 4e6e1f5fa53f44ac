// Package fetchxml prepares FetchXML queries for the RetrieveMultiple
// request: it normalizes caller fragments into a <fetch> document, builds
// follow-up page requests from a paging cookie, and assembles simple
// attribute queries.
package fetchxml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

var (
	// ErrNoEntity is returned when a fetch fragment has no entity node.
	ErrNoEntity = errors.New("fetchxml: the query has no entity node")
	// ErrNoXMLSupport is returned when the entity node parsed but could not
	// be written back out.
	ErrNoXMLSupport = errors.New("fetchxml: the XML serializer is unavailable")
)

// Markers detected on the raw text.
const (
	markerAggregate = "aggregate="
	markerDistinct  = "distinct="
	markerFirstPage = "page='1'"
	markerCount     = "count='"
)

// Normalized is a fetch query ready to send.
type Normalized struct {
	// Query is the text sent in the FetchExpression.
	Query string
	// Core is the single-quoted <entity> fragment, reused for later pages.
	Core string
	// Distinct is the detected distinct value, "false" when absent.
	Distinct string
	// Aggregate is set when the query carries an aggregate attribute.
	Aggregate bool
	// LimitedPage is set when the query asks for the first page with an
	// explicit count.
	LimitedPage bool
}

// PassThrough reports whether Query is the caller's text unchanged.
func (n *Normalized) PassThrough() bool {
	return n.Aggregate || n.LimitedPage
}

// Normalize turns a bare <entity> fragment or a <fetch> document into the
// query sent to the server.
//
// A bare fragment is wrapped in <fetch mapping="logical">. Anything else is
// parsed for its entity node, which becomes the paging core; the query is
// rewrapped with the detected distinct value unless it is an aggregate or
// explicitly paged query, which pass through untouched.
func Normalize(fetch string) (*Normalized, error) {
	trimmed := strings.TrimSpace(fetch)
	if strings.HasPrefix(trimmed, "<entity") {
		core := singleQuoted(fetch)
		return &Normalized{
			Query:    `<fetch mapping="logical">` + core + `</fetch>`,
			Core:     core,
			Distinct: "false",
		}, nil
	}

	n := &Normalized{
		Aggregate:   strings.Contains(fetch, markerAggregate),
		LimitedPage: strings.Contains(fetch, markerFirstPage) && strings.Contains(fetch, markerCount),
		Distinct:    detectDistinct(fetch),
	}

	core, err := entityFragment(fetch)
	if err != nil {
		return nil, err
	}
	n.Core = core

	if n.PassThrough() {
		n.Query = fetch
	} else {
		n.Query = `<fetch mapping="logical" distinct="` + n.Distinct + `">` + core + `</fetch>`
	}
	return n, nil
}

// detectDistinct reads the value of the first distinct= marker, using
// whichever quote character follows it.
func detectDistinct(fetch string) string {
	idx := strings.Index(fetch, markerDistinct)
	if idx < 0 {
		return "false"
	}
	start := idx + len(markerDistinct)
	if start >= len(fetch) {
		return "false"
	}
	quote := fetch[start]
	if quote != '\'' && quote != '"' {
		return "false"
	}
	end := strings.IndexByte(fetch[start+1:], quote)
	if end < 0 {
		return "false"
	}
	return fetch[start+1 : start+1+end]
}

func entityFragment(fetch string) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(fetch); err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoEntity, err)
	}
	node := doc.FindElement("//entity")
	if node == nil {
		return "", ErrNoEntity
	}

	out := etree.NewDocument()
	out.SetRoot(node.Copy())
	text, err := out.WriteToString()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoXMLSupport, err)
	}
	return singleQuoted(text), nil
}

func singleQuoted(s string) string {
	return strings.ReplaceAll(s, `"`, `'`)
}
