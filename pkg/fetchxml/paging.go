package fetchxml

import (
	"strconv"
	"strings"
)

// DefaultPageSize is the record count requested per follow-up page.
const DefaultPageSize = 5000

// EscapePagingCookie prepares a server paging cookie for use as an attribute
// value: double quotes become single quotes, then angle brackets and the
// single quotes are escaped as entities.
func EscapePagingCookie(cookie string) string {
	cookie = strings.ReplaceAll(cookie, `"`, `'`)
	cookie = strings.ReplaceAll(cookie, "<", "&lt;")
	cookie = strings.ReplaceAll(cookie, ">", "&gt;")
	return strings.ReplaceAll(cookie, "'", "&quot;")
}

// Page builds the fetch document requesting the given page of core. cookie
// is the raw cookie from the previous page.
func Page(core string, page, count int, cookie string) string {
	if count <= 0 {
		count = DefaultPageSize
	}
	var b strings.Builder
	b.WriteString("<fetch mapping='logical' page='")
	b.WriteString(strconv.Itoa(page))
	b.WriteString("' count='")
	b.WriteString(strconv.Itoa(count))
	b.WriteString("' paging-cookie='")
	b.WriteString(EscapePagingCookie(cookie))
	b.WriteString("'>")
	b.WriteString(core)
	b.WriteString("</fetch>")
	return b.String()
}
