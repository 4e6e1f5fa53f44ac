package orgservice

import (
	"context"
	"fmt"

	"github.com/beevik/etree"

	"github.com/xrmkit/xrmsoap/pkg/entity"
	"github.com/xrmkit/xrmsoap/pkg/request"
	"github.com/xrmkit/xrmsoap/pkg/soap"
)

// currentUserRolesFetch selects the security roles of the calling user.
const currentUserRolesFetch = `<fetch version='1.0' output-format='xml-platform' mapping='logical' distinct='true'>` +
	`<entity name='role'>` +
	`<attribute name='name' />` +
	`<attribute name='businessunitid' />` +
	`<attribute name='roleid' />` +
	`<order attribute='name' descending='false' />` +
	`<link-entity name='systemuserroles' from='roleid' to='roleid' visible='false' intersect='true'>` +
	`<link-entity name='systemuser' from='systemuserid' to='systemuserid' alias='aa'>` +
	`<filter type='and'>` +
	`<condition attribute='systemuserid' operator='eq-userid' />` +
	`</filter>` +
	`</link-entity>` +
	`</link-entity>` +
	`</entity>` +
	`</fetch>`

// whoAmIValue reads one of the WhoAmI results: user, business unit and
// organization id, in that order.
func whoAmIValue(index int) func(*etree.Document) (string, error) {
	return func(doc *etree.Document) (string, error) {
		values := soap.SelectNodes(doc, "//b:value")
		if len(values) <= index {
			return "", fmt.Errorf("%w: WhoAmI value %d", ErrNoResult, index)
		}
		return soap.NodeText(values[index]), nil
	}
}

func whoAmIOp(index int) operation[string] {
	return operation[string]{
		build: func() (*request.Request, error) { return request.WhoAmI(), nil },
		parse: whoAmIValue(index),
	}
}

// CurrentUserID returns the id of the calling user.
func (c *Client) CurrentUserID(ctx context.Context) (string, error) {
	return execute(ctx, c, whoAmIOp(0))
}

// CurrentUserIDAsync is the asynchronous form of CurrentUserID.
func (c *Client) CurrentUserIDAsync(ctx context.Context, onComplete func(string, error)) error {
	return executeAsync(ctx, c, whoAmIOp(0), onComplete)
}

// CurrentBusinessUnitID returns the id of the calling user's business unit.
func (c *Client) CurrentBusinessUnitID(ctx context.Context) (string, error) {
	return execute(ctx, c, whoAmIOp(1))
}

// CurrentBusinessUnitIDAsync is the asynchronous form of
// CurrentBusinessUnitID.
func (c *Client) CurrentBusinessUnitIDAsync(ctx context.Context, onComplete func(string, error)) error {
	return executeAsync(ctx, c, whoAmIOp(1), onComplete)
}

func roleNames(records []*entity.BusinessEntity) []string {
	roles := make([]string, 0, len(records))
	for _, r := range records {
		if v, ok := r.Get("name"); ok {
			roles = append(roles, v.Display())
		}
	}
	return roles
}

// CurrentUserRoles returns the names of the calling user's security roles,
// sorted by name.
func (c *Client) CurrentUserRoles(ctx context.Context) ([]string, error) {
	records, err := c.Fetch(ctx, currentUserRolesFetch, false)
	if err != nil {
		return nil, err
	}
	return roleNames(records), nil
}

// CurrentUserRolesAsync is the asynchronous form of CurrentUserRoles.
func (c *Client) CurrentUserRolesAsync(ctx context.Context, onComplete func([]string, error)) error {
	return c.FetchAsync(ctx, currentUserRolesFetch, false, func(records []*entity.BusinessEntity, err error) {
		if err != nil {
			onComplete(nil, err)
			return
		}
		onComplete(roleNames(records), nil)
	})
}

// IsCurrentUserInRole reports whether the calling user holds any of the
// named roles. Names compare case-sensitively.
func (c *Client) IsCurrentUserInRole(ctx context.Context, roles ...string) (bool, error) {
	held, err := c.CurrentUserRoles(ctx)
	if err != nil {
		return false, err
	}
	return anyRole(held, roles), nil
}

func anyRole(held, wanted []string) bool {
	for _, h := range held {
		for _, w := range wanted {
			if h == w {
				return true
			}
		}
	}
	return false
}
