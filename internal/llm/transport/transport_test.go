package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_OrderIsFirstOutermost(t *testing.T) {
	var order []string

	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
				order = append(order, name+" in")
				resp, err := next.Handle(ctx, req)
				order = append(order, name+" out")
				return resp, err
			})
		}
	}

	core := HandlerFunc(func(context.Context, *Request) (*Response, error) {
		order = append(order, "core")
		return &Response{}, nil
	})

	_, err := Chain(core, mark("a"), mark("b")).Handle(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a in", "b in", "core", "b out", "a out"}, order)
}

// echoAdapter turns any HTTP 200 into a fixed response; used to exercise the
// core handler without provider specifics.
type echoAdapter struct {
	endpoint string
}

func (a *echoAdapter) Build(ctx context.Context, _ *Request) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint, nil)
}

func (a *echoAdapter) Parse(*http.Response) (*Response, error) {
	return &Response{Content: "parsed"}, nil
}

func (a *echoAdapter) Name() string { return "echo" }

func TestHTTPHandler_RoundTrip(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	handler := NewHTTPHandler(ts.Client(), &echoAdapter{endpoint: ts.URL})

	resp, err := handler.Handle(context.Background(), &Request{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "parsed", resp.Content)
	assert.GreaterOrEqual(t, resp.LatencyMs, int64(0))
}

func TestHTTPHandler_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()
	defer close(release)

	handler := NewHTTPHandler(ts.Client(), &echoAdapter{endpoint: ts.URL})

	_, err := handler.Handle(context.Background(), &Request{Model: "m", Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
