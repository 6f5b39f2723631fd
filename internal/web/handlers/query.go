package handlers

import (
	"net/url"
	"slices"
	"strings"
)

// rebuildQuery returns rawQuery without the pairs whose key is in skip.
// Remaining pairs keep their order and their original encoding.
func rebuildQuery(rawQuery string, skip ...string) string {
	if rawQuery == "" {
		return ""
	}

	kept := make([]string, 0, strings.Count(rawQuery, "&")+1)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if slices.Contains(skip, key) {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

// withParam appends key=value to a query string
func withParam(query, key, value string) string {
	pair := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	if query == "" {
		return pair
	}
	return query + "&" + pair
}

// link turns a query string into a relative URL for path
func link(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}
