package dsn

import (
	"fmt"
	"net/url"
	"strings"
)

/*
Pair is one key/value entry of a query string. A dedicated pair list (rather
than a map) preserves encounter order, so EncodeQuery(DecodeQuery(s))
round-trips the original ordering.
*/
type Pair struct {
	Key   string
	Value string
}

/*
DecodeQuery parses a raw query string ("a=1&b=two") into ordered pairs.
Blank values are kept; a key without '=' decodes to an empty value. Fails
with ErrParse on invalid percent-escapes; the failure is fatal to this
parse call only.
*/
func DecodeQuery(query string) ([]Pair, error) {
	if query == "" {
		return nil, nil
	}

	var pairs []Pair
	for _, field := range strings.Split(query, "&") {
		if field == "" {
			continue
		}

		key, value, _ := strings.Cut(field, "=")
		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid query key %q: %v", ErrParse, key, err)
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid query value %q: %v", ErrParse, value, err)
		}

		pairs = append(pairs, Pair{Key: decodedKey, Value: decodedValue})
	}

	return pairs, nil
}

// EncodeQuery is the inverse of DecodeQuery, preserving pair order.
func EncodeQuery(pairs []Pair) string {
	parts := make([]string, len(pairs))
	for i, pair := range pairs {
		parts[i] = url.QueryEscape(pair.Key) + "=" + url.QueryEscape(pair.Value)
	}

	return strings.Join(parts, "&")
}

// QueryValue returns the first value stored under key.
func QueryValue(pairs []Pair, key string) (string, bool) {
	for _, pair := range pairs {
		if pair.Key == key {
			return pair.Value, true
		}
	}

	return "", false
}
