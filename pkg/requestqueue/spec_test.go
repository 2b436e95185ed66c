package requestqueue

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestSpec_KeyNormalization(t *testing.T) {
	tests := []struct {
		name  string
		a, b  RequestSpec
		equal bool
	}{
		{
			name:  "query order",
			a:     NewRequestSpec("GET", "/null-count/x", url.Values{"columnName": {"x"}, "priority": {"1"}}, nil),
			b:     NewRequestSpec("GET", "/null-count/x", url.Values{"priority": {"1"}, "columnName": {"x"}}, nil),
			equal: true,
		},
		{
			name:  "method case",
			a:     NewRequestSpec("get", "/t", nil, nil),
			b:     NewRequestSpec("GET", "/t", nil, nil),
			equal: true,
		},
		{
			name:  "json key order",
			a:     NewRequestSpec("POST", "/topk", nil, []byte(`{"columnName":"c","k":75,"agg":"count(*)"}`)),
			b:     NewRequestSpec("POST", "/topk", nil, []byte(`{ "agg":"count(*)", "k":75, "columnName":"c" }`)),
			equal: true,
		},
		{
			name:  "nil and empty query",
			a:     NewRequestSpec("GET", "/t", nil, nil),
			b:     NewRequestSpec("GET", "/t", url.Values{}, nil),
			equal: true,
		},
		{
			name:  "different param",
			a:     NewRequestSpec("GET", "/t", url.Values{"columnName": {"a"}}, nil),
			b:     NewRequestSpec("GET", "/t", url.Values{"columnName": {"b"}}, nil),
			equal: false,
		},
		{
			name:  "different body",
			a:     NewRequestSpec("POST", "/topk", nil, []byte(`{"k":75}`)),
			b:     NewRequestSpec("POST", "/topk", nil, []byte(`{"k":10}`)),
			equal: false,
		},
		{
			name:  "different method",
			a:     NewRequestSpec("GET", "/t", nil, nil),
			b:     NewRequestSpec("POST", "/t", nil, nil),
			equal: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.equal {
				assert.Equal(t, tt.a.Key(), tt.b.Key())
			} else {
				assert.NotEqual(t, tt.a.Key(), tt.b.Key())
			}
		})
	}
}

func TestRequestSpec_KeyFormat(t *testing.T) {
	spec := NewRequestSpec("post", "/queries/topk/x", url.Values{"priority": {"2"}}, []byte(`{"k":75,"agg":"count(*)"}`))
	assert.Equal(t, `POST /queries/topk/x?priority=2 body={"agg":"count(*)","k":75}`, spec.Key())
	assert.Equal(t, spec.Key(), spec.String())
}

func TestRequestSpec_NonJSONBodyIsOpaque(t *testing.T) {
	spec := NewRequestSpec("POST", "/raw", nil, []byte("a=1&b=2"))
	assert.Equal(t, []byte("a=1&b=2"), spec.Body())
}

func TestRequestSpec_Immutable(t *testing.T) {
	query := url.Values{"columnName": {"x"}}
	body := []byte(`{"k":1}`)
	spec := NewRequestSpec("POST", "/t", query, body)
	key := spec.Key()

	query.Set("columnName", "y")
	body[2] = 'z'
	assert.Equal(t, key, spec.Key())

	q := spec.Query()
	q.Set("columnName", "mutated")
	assert.Equal(t, "x", spec.Query().Get("columnName"))

	b := spec.Body()
	b[0] = '['
	assert.Equal(t, `{"k":1}`, string(spec.Body()))
}

func TestRequestSpec_LargeNumbersKeepPrecision(t *testing.T) {
	spec := NewRequestSpec("POST", "/t", nil, []byte(`{"id":9007199254740993}`))
	assert.Equal(t, `{"id":9007199254740993}`, string(spec.Body()))
}

func TestRequestSpec_ZeroValueKey(t *testing.T) {
	var spec RequestSpec
	assert.Equal(t, " ", spec.Key())
}
