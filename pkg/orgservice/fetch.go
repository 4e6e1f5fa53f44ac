package orgservice

import (
	"context"
	"fmt"

	"github.com/beevik/etree"

	"github.com/xrmkit/xrmsoap/pkg/entity"
	"github.com/xrmkit/xrmsoap/pkg/fetchxml"
	"github.com/xrmkit/xrmsoap/pkg/request"
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

// pager accumulates the records of a fetch across pages. It is driven by
// both the blocking and the callback form of Fetch, one response at a time.
type pager struct {
	client   *Client
	core     string
	fetchAll bool
	page     int
	records  []*entity.BusinessEntity
}

func (c *Client) newPager(fetch string, fetchAll bool) (*pager, *request.Request, error) {
	n, err := fetchxml.Normalize(fetch)
	if err != nil {
		return nil, nil, err
	}
	req, err := request.Fetch(n.Query)
	if err != nil {
		return nil, nil, err
	}
	return &pager{client: c, core: n.Core, fetchAll: fetchAll, page: 1, records: []*entity.BusinessEntity{}}, req, nil
}

// next consumes the response to the current page. It returns the request
// for the following page, or nil when the fetch is complete.
func (p *pager) next(doc *etree.Document, err error) (*request.Request, error) {
	if err != nil {
		return nil, p.fail(err)
	}

	node := soap.SelectSingleNode(doc, "//a:Entities")
	if node == nil {
		return nil, nil
	}
	records := entity.DeserializeAll(node)
	p.records = append(p.records, records...)

	p.client.logger.Debug("fetched page",
		"page", p.page,
		"records", len(records),
		"total", len(p.records))

	if !p.fetchAll || soap.SelectSingleNodeText(doc, "//a:MoreRecords") != "true" {
		return nil, nil
	}

	p.page++
	cookie := soap.SelectSingleNodeText(doc, "//a:PagingCookie")
	req, err := request.Fetch(fetchxml.Page(p.core, p.page, p.client.pageSize, cookie))
	if err != nil {
		return nil, p.fail(err)
	}
	return req, nil
}

// fail wraps errors of follow-up pages; the first page fails plainly.
func (p *pager) fail(err error) error {
	if p.page < 2 {
		return err
	}
	p.client.logger.Debug("fetch page failed", "page", p.page, "error", err)
	return &PageError{Page: p.page, Err: err}
}

// Fetch runs a FetchXML query. fetch may be a bare <entity> fragment or a
// full <fetch> document. With fetchAll set, follow-up pages are requested
// until the server reports no more records and the records of every page
// are returned in order. A failed follow-up page aborts the call with a
// *PageError and no records.
func (c *Client) Fetch(ctx context.Context, fetch string, fetchAll bool) ([]*entity.BusinessEntity, error) {
	p, req, err := c.newPager(fetch, fetchAll)
	if err != nil {
		return nil, err
	}
	for req != nil {
		doc, err := c.send(ctx, req)
		if req, err = p.next(doc, err); err != nil {
			return nil, err
		}
	}
	return p.records, nil
}

// FetchAsync is the asynchronous form of Fetch. Pages are still requested
// one after another; onComplete runs once, after the last page.
func (c *Client) FetchAsync(ctx context.Context, fetch string, fetchAll bool, onComplete func([]*entity.BusinessEntity, error)) error {
	p, req, err := c.newPager(fetch, fetchAll)
	if err != nil {
		return err
	}
	return c.sendAsync(ctx, req, p.asyncStep(ctx, onComplete))
}

func (p *pager) asyncStep(ctx context.Context, onComplete func([]*entity.BusinessEntity, error)) func(*etree.Document, error) {
	return func(doc *etree.Document, err error) {
		req, err := p.next(doc, err)
		switch {
		case err != nil:
			onComplete(nil, err)
		case req == nil:
			onComplete(p.records, nil)
		default:
			if err := p.client.sendAsync(ctx, req, p.asyncStep(ctx, onComplete)); err != nil {
				onComplete(nil, p.fail(err))
			}
		}
	}
}

func queryFragment(q fetchxml.Query) (string, error) {
	fragment, err := q.Fragment()
	if err != nil {
		return "", fmt.Errorf("build query: %w", err)
	}
	return fragment, nil
}

// QueryByAttribute returns the first page of records matching q.
func (c *Client) QueryByAttribute(ctx context.Context, q fetchxml.Query) ([]*entity.BusinessEntity, error) {
	fragment, err := queryFragment(q)
	if err != nil {
		return nil, err
	}
	return c.Fetch(ctx, fragment, false)
}

// QueryByAttributeAsync is the asynchronous form of QueryByAttribute.
func (c *Client) QueryByAttributeAsync(ctx context.Context, q fetchxml.Query, onComplete func([]*entity.BusinessEntity, error)) error {
	fragment, err := queryFragment(q)
	if err != nil {
		return err
	}
	return c.FetchAsync(ctx, fragment, false, onComplete)
}

// QueryAll returns every record matching q, following all pages.
func (c *Client) QueryAll(ctx context.Context, q fetchxml.Query) ([]*entity.BusinessEntity, error) {
	fragment, err := queryFragment(q)
	if err != nil {
		return nil, err
	}
	return c.Fetch(ctx, fragment, true)
}

// QueryAllAsync is the asynchronous form of QueryAll.
func (c *Client) QueryAllAsync(ctx context.Context, q fetchxml.Query, onComplete func([]*entity.BusinessEntity, error)) error {
	fragment, err := queryFragment(q)
	if err != nil {
		return err
	}
	return c.FetchAsync(ctx, fragment, true, onComplete)
}
