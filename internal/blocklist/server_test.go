package blocklist

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

type testResponse struct {
	statusCode int
	content    []byte
	delay      time.Duration
}

// listServer serves canned blocklist responses keyed by URL path.
type listServer struct {
	server       *httptest.Server
	responses    map[string]testResponse
	requestCount int64
	inFlight     int64
	maxInFlight  int64
}

func newListServer(t *testing.T, responses map[string]testResponse) *listServer {
	t.Helper()

	ls := &listServer{responses: responses}
	ls.server = httptest.NewServer(http.HandlerFunc(ls.handleRequest))
	t.Cleanup(ls.server.Close)
	return ls
}

func (ls *listServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&ls.requestCount, 1)
	n := atomic.AddInt64(&ls.inFlight, 1)
	defer atomic.AddInt64(&ls.inFlight, -1)
	for {
		max := atomic.LoadInt64(&ls.maxInFlight)
		if n <= max || atomic.CompareAndSwapInt64(&ls.maxInFlight, max, n) {
			break
		}
	}

	response, ok := ls.responses[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}

	if response.delay > 0 {
		select {
		case <-time.After(response.delay):
		case <-r.Context().Done():
			return
		}
	}

	w.WriteHeader(response.statusCode)
	w.Write(response.content)
}

// URL returns the absolute URL for path.
func (ls *listServer) URL(path string) string {
	return ls.server.URL + path
}

func (ls *listServer) Client() *http.Client {
	return ls.server.Client()
}

func (ls *listServer) RequestCount() int64 {
	return atomic.LoadInt64(&ls.requestCount)
}

func (ls *listServer) MaxInFlight() int64 {
	return atomic.LoadInt64(&ls.maxInFlight)
}

func ok(body string) testResponse {
	return testResponse{statusCode: http.StatusOK, content: []byte(body)}
}
