// Package parse splits the key/value and list arguments CLI flags take.
package parse

import (
	"net/http"
	"strings"
	"unicode/utf8"
)

// KeyValue splits s at the first of seps, or at the first ':' when no
// separator is given. ok is false when s has none of them.
func KeyValue(s string, seps ...rune) (key, value string, ok bool) {
	if len(seps) == 0 {
		seps = []rune{':'}
	}
	i := strings.IndexAny(s, string(seps))
	if i < 0 {
		return "", "", false
	}
	_, size := utf8.DecodeRuneInString(s[i:])
	return s[:i], s[i+size:], true
}

// Headers reads "Name: value" header flags. Names are canonicalized and
// entries without a name are dropped; a later entry replaces an earlier one.
func Headers(entries []string) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		name, value, ok := KeyValue(e, ':')
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		out[http.CanonicalHeaderKey(name)] = strings.TrimSpace(value)
	}
	return out
}

// List splits a separated list, dropping blank items. An empty s gives nil.
func List(s, sep string) []string {
	var out []string
	for _, item := range strings.Split(s, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
