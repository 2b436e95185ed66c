package requestqueue

import (
	"bytes"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
)

// RequestSpec identifies one runtime request: method, resource path and a
// normalized parameter set. It is immutable once built; accessors return copies.
type RequestSpec struct {
	method string
	path   string
	query  url.Values
	body   []byte
	key    string
}

// NewRequestSpec builds a spec. Query values are copied and sorted, and a JSON
// body is re-encoded with sorted object keys, so equal parameter sets always
// produce equal keys regardless of the order the caller built them in.
func NewRequestSpec(method, path string, query url.Values, body []byte) RequestSpec {
	s := RequestSpec{
		method: strings.ToUpper(method),
		path:   path,
		query:  normalizeQuery(query),
		body:   canonicalBody(body),
	}
	s.key = canonicalKey(s.method, s.path, s.query, s.body)
	return s
}

// Method returns the upper-cased HTTP method
func (s RequestSpec) Method() string { return s.method }

// Path returns the resource path relative to the runtime base URL
func (s RequestSpec) Path() string { return s.path }

// Query returns a copy of the normalized query parameters
func (s RequestSpec) Query() url.Values {
	out := make(url.Values, len(s.query))
	for k, v := range s.query {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Body returns a copy of the request body, nil when there is none
func (s RequestSpec) Body() []byte {
	if s.body == nil {
		return nil
	}
	return append([]byte(nil), s.body...)
}

// Key returns the dedup identity of the request.
func (s RequestSpec) Key() string {
	if s.key == "" {
		return canonicalKey(s.method, s.path, s.query, s.body)
	}
	return s.key
}

// String implements fmt.Stringer
func (s RequestSpec) String() string {
	return s.Key()
}

func normalizeQuery(query url.Values) url.Values {
	out := make(url.Values, len(query))
	for k, v := range query {
		vals := append([]string(nil), v...)
		sort.Strings(vals)
		out[k] = vals
	}
	return out
}

func canonicalBody(body []byte) []byte {
	if len(body) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil || dec.More() {
		// Not a single JSON document, keep as opaque bytes
		return append([]byte(nil), body...)
	}

	out, err := json.Marshal(v)
	if err != nil {
		return append([]byte(nil), body...)
	}
	return out
}

func canonicalKey(method, path string, query url.Values, body []byte) string {
	var b strings.Builder
	b.WriteString(method)
	b.WriteByte(' ')
	b.WriteString(path)
	if len(query) > 0 {
		// Encode sorts by key; values were sorted by normalizeQuery
		b.WriteByte('?')
		b.WriteString(query.Encode())
	}
	if len(body) > 0 {
		b.WriteString(" body=")
		b.Write(body)
	}
	return b.String()
}
