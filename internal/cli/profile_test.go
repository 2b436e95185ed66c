package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/harun/profiler/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColumns(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []profile.Column
		wantErr bool
	}{
		{
			name: "typed columns",
			in:   "country:varchar, amount:DOUBLE",
			want: []profile.Column{{Name: "country", Type: "VARCHAR"}, {Name: "amount", Type: "DOUBLE"}},
		},
		{
			name: "missing type",
			in:   "id",
			want: []profile.Column{{Name: "id", Type: "VARCHAR"}},
		},
		{
			name: "trailing comma",
			in:   "ts:TIMESTAMP,",
			want: []profile.Column{{Name: "ts", Type: "TIMESTAMP"}},
		},
		{name: "empty", in: " , ", wantErr: true},
		{name: "missing name", in: ":INTEGER", wantErr: true},
		{name: "duplicate", in: "a:INTEGER,a:VARCHAR", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseColumns(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newRuntimeServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case strings.Contains(path, "/table-cardinality/"):
			_, _ = w.Write([]byte(`{"cardinality":"100"}`))
		case strings.Contains(path, "/null-count/"):
			_, _ = w.Write([]byte(`{"count":"10"}`))
		case strings.Contains(path, "/column-cardinality/"):
			_, _ = w.Write([]byte(`{"categoricalSummary":{"cardinality":"4"}}`))
		case strings.Contains(path, "/topk/"):
			_, _ = w.Write([]byte(`{"categoricalSummary":{"topK":{"entries":[{"value":"US","count":60}]}}}`))
		case strings.Contains(path, "/descriptive-statistics/"):
			_, _ = w.Write([]byte(`{"numericSummary":{"numericStatistics":{"min":1,"max":5,"mean":3}}}`))
		case strings.Contains(path, "/numeric-histogram/"):
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"histogram unavailable"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestProfileCommand(t *testing.T) {
	server := newRuntimeServer(t)

	t.Run("json output", func(t *testing.T) {
		out, err := execute(t, "",
			"profile", "--config", writeConfig(t, ""),
			"--url", server.URL,
			"--table", "orders",
			"--columns", "country:VARCHAR,amount:DOUBLE",
			"--active", "amount",
			"--json",
		)
		require.NoError(t, err)

		var result profile.TableProfile
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.Equal(t, "orders", result.Table)
		assert.Equal(t, int64(100), result.Rows)
		require.Len(t, result.Columns, 2)
		assert.True(t, result.Columns[1].Active)
		assert.Equal(t, 1, result.Failed())
		assert.Contains(t, result.Columns[1].Errors["numeric-histogram"], "histogram unavailable")
	})

	t.Run("table output", func(t *testing.T) {
		out, err := execute(t, "",
			"profile", "--config", writeConfig(t, ""),
			"--url", server.URL,
			"--table", "orders",
			"--columns", "country:VARCHAR",
			"--concurrency", "1",
		)
		require.NoError(t, err)
		assert.Contains(t, out, "Table: orders (100 rows)")
		assert.Contains(t, out, "country")
		assert.Contains(t, out, "10.0")
		assert.Contains(t, out, "top=US")
	})

	t.Run("requires table", func(t *testing.T) {
		_, err := execute(t, "", "profile", "--config", writeConfig(t, ""), "--columns", "a")
		assert.Error(t, err)
	})

	t.Run("unknown active column", func(t *testing.T) {
		_, err := execute(t, "", "profile", "--config", writeConfig(t, ""), "--table", "t", "--columns", "a", "--active", "b")
		assert.ErrorContains(t, err, "active column")
	})
}
