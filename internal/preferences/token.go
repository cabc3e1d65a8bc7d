package preferences

import (
	"net/url"
	"strings"
)

const tokenSeparator = ","

// EncodeToken percent-encodes every identifier as a path segment and joins
// them with commas. Separators inside identifiers are escaped.
func EncodeToken(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = url.PathEscape(id)
	}
	return strings.Join(parts, tokenSeparator)
}

// DecodeToken reverses EncodeToken. Empty segments and segments that are not
// valid percent-encoding are dropped.
func DecodeToken(token string) []string {
	ids := []string{}
	for _, part := range strings.Split(token, tokenSeparator) {
		if part == "" {
			continue
		}
		id, err := url.PathUnescape(part)
		if err != nil || id == "" {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// BuildShareURL returns origin + path + "#" + token
func BuildShareURL(ids []string, origin, path string) string {
	return origin + path + "#" + EncodeToken(ids)
}
