package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/harun/profiler/pkg/priority"
	"github.com/harun/profiler/pkg/requestqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(method, path string, query url.Values, body []byte, p int) requestqueue.Call {
	return requestqueue.Call{
		Spec:     requestqueue.NewRequestSpec(method, path, query, body),
		Priority: p,
	}
}

func TestHTTP_GetSuccess(t *testing.T) {
	var gotPath, gotColumn, gotPriority, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotColumn = r.URL.Query().Get("columnName")
		gotPriority = r.URL.Query().Get(PriorityParam)
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count":"12"}`))
	}))
	defer server.Close()

	tr := NewHTTP(server.URL+"/", WithBearerToken("secret"))
	p := priority.For(priority.NullCount, true)

	resp, err := tr.Do(context.Background(), call(http.MethodGet, "/v1/instances/default/queries/null-count/tables/t", url.Values{"columnName": {"c"}}, nil, p))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"count":"12"}`, string(resp.Body))
	assert.Equal(t, "/v1/instances/default/queries/null-count/tables/t", gotPath)
	assert.Equal(t, "c", gotColumn)
	assert.Equal(t, "150", gotPriority)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestHTTP_PostBody(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"meta":[],"data":[]}`))
	}))
	defer server.Close()

	tr := NewHTTP(server.URL)
	_, err := tr.Do(context.Background(), call(http.MethodPost, "/topk", nil, []byte(`{"k":75,"columnName":"c"}`), 30))
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"columnName":"c","k":75}`, string(gotBody))
}

func TestHTTP_BasePathPreserved(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tr := NewHTTP(server.URL + "/proxy")
	_, err := tr.Do(context.Background(), call(http.MethodGet, "v1/ping", nil, nil, 0))
	require.NoError(t, err)
	assert.Equal(t, "/proxy/v1/ping", gotPath)
}

func TestHTTP_StatusError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field", http.StatusBadRequest, `{"code":3,"message":"column not found"}`, "column not found"},
		{"error field", http.StatusInternalServerError, `{"error":"driver failed"}`, "driver failed"},
		{"plain text", http.StatusBadGateway, "upstream down", "upstream down"},
		{"empty body", http.StatusServiceUnavailable, "", "Service Unavailable"},
		{"json without message", http.StatusNotFound, `{"code":5}`, "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resp, err := NewHTTP(server.URL).Do(context.Background(), call(http.MethodGet, "/x", nil, nil, 0))
			assert.Nil(t, resp)

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.message, statusErr.Message)
		})
	}
}

func TestHTTP_MissingBaseURL(t *testing.T) {
	resp, err := NewHTTP("").Do(context.Background(), call(http.MethodGet, "/x", nil, nil, 0))
	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestHTTP_InvalidBaseURL(t *testing.T) {
	_, err := NewHTTP("not a url").Do(context.Background(), call(http.MethodGet, "/x", nil, nil, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid runtime base URL")
}

func TestHTTP_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	_, err := NewHTTP(server.URL, WithTimeout(50*time.Millisecond)).Do(context.Background(), call(http.MethodGet, "/slow", nil, nil, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestHTTP_ThroughQueue(t *testing.T) {
	var hits int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		_, _ = w.Write([]byte(`{"cardinality":"4"}`))
	}))
	defer server.Close()

	q := requestqueue.New(NewHTTP(server.URL), requestqueue.WithConcurrency(2))
	defer q.Close()

	spec := requestqueue.NewRequestSpec(http.MethodGet, "/column-cardinality/t", url.Values{"columnName": {"c"}}, nil)
	w1 := q.Submit(context.Background(), spec, 10)
	w2 := q.Submit(context.Background(), spec, 110)
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r1, err := w1.Wait(ctx)
	require.NoError(t, err)
	r2, err := w2.Wait(ctx)
	require.NoError(t, err)

	assert.Same(t, r1, r2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
