package blocklist

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ulikunitz/xz"
)

func xzCompress(t *testing.T, s string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(s)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestFetch(t *testing.T) {
	t.Parallel()

	ls := newListServer(t, map[string]testResponse{
		"/plain.txt":   ok("a.com\n# comment\n\n  b.com  \n"),
		"/empty.txt":   ok(""),
		"/bom.txt":     ok("\ufeffa.com\nb.com"),
		"/latin1.txt":  {statusCode: http.StatusOK, content: []byte("caf\xe9.com\n")},
		"/gone.txt":    {statusCode: http.StatusNotFound, content: []byte("not found")},
		"/broken.txt":  {statusCode: http.StatusInternalServerError},
		"/list.txt.xz": {statusCode: http.StatusOK, content: xzCompress(t, "x.com\n#c\ny.com\n")},
		"/bad.txt.xz":  ok("definitely not xz"),
	})
	f := NewFetcher(ls.Client(), 0)

	tests := []struct {
		name      string
		path      string
		wantLines []string
		wantErr   error
	}{
		{"plain", "/plain.txt", []string{"a.com", "b.com"}, nil},
		{"empty", "/empty.txt", nil, nil},
		{"byte order mark", "/bom.txt", []string{"a.com", "b.com"}, nil},
		{"xz", "/list.txt.xz", []string{"x.com", "y.com"}, nil},
		{"not utf-8", "/latin1.txt", nil, ErrDecode},
		{"corrupt xz", "/bad.txt.xz", nil, ErrDecode},
		{"404", "/gone.txt", nil, ErrBadStatus},
		{"500", "/broken.txt", nil, ErrBadStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := Source{Name: tt.name, URL: ls.URL(tt.path)}
			r := f.Fetch(context.Background(), src)

			if r.Source != src {
				t.Errorf("r.Source = %v, want %v", r.Source, src)
			}
			if tt.wantErr != nil {
				if r.OK() {
					t.Fatalf("expected failure, got %d lines", len(r.Lines))
				}
				if !errors.Is(r.Err, tt.wantErr) {
					t.Errorf("r.Err = %v, want %v", r.Err, tt.wantErr)
				}
				if r.Lines != nil {
					t.Errorf("failed result carries lines: %q", r.Lines)
				}
				return
			}

			if !r.OK() {
				t.Fatalf("unexpected failure: %v", r.Err)
			}
			if !reflect.DeepEqual(r.Lines, tt.wantLines) {
				t.Errorf("r.Lines = %q, want %q", r.Lines, tt.wantLines)
			}
		})
	}
}

func TestFetchInvalidURL(t *testing.T) {
	t.Parallel()

	f := NewFetcher(nil, 0)
	for _, raw := range []string{"", "not a url", "ftp://example.com/list.txt", "://missing"} {
		r := f.Fetch(context.Background(), Source{Name: "bad", URL: raw})
		if r.Status != StatusFailed {
			t.Errorf("%q: status = %s, want failed", raw, r.Status)
		}
		if !errors.Is(r.Err, ErrInvalidURL) {
			t.Errorf("%q: error = %v, want ErrInvalidURL", raw, r.Err)
		}
	}
}

func TestFetchTransportError(t *testing.T) {
	t.Parallel()

	ls := newListServer(t, nil)
	url := ls.URL("/list.txt")
	client := ls.Client()
	ls.server.Close()

	r := NewFetcher(client, 0).Fetch(context.Background(), Source{Name: "down", URL: url})
	if r.OK() {
		t.Fatal("expected failure from a closed server")
	}
	if !errors.Is(r.Err, ErrTransport) {
		t.Errorf("r.Err = %v, want ErrTransport", r.Err)
	}
}

func TestFetchXZConnectionLost(t *testing.T) {
	t.Parallel()

	compressed := xzCompress(t, strings.Repeat("tracker.example\nads.example\n", 2000))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// the connection is closed before Content-Length bytes are sent
		w.Header().Set("Content-Length", strconv.Itoa(len(compressed)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(compressed[:len(compressed)/2])
	}))
	defer srv.Close()

	r := NewFetcher(srv.Client(), 0).Fetch(context.Background(), Source{Name: "cut", URL: srv.URL + "/list.txt.xz"})
	if r.OK() {
		t.Fatal("expected failure for a truncated body")
	}
	if !errors.Is(r.Err, ErrTransport) {
		t.Errorf("r.Err = %v, want ErrTransport", r.Err)
	}
	if errors.Is(r.Err, ErrDecode) {
		t.Errorf("r.Err = %v, must not be ErrDecode", r.Err)
	}
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	ls := newListServer(t, map[string]testResponse{
		"/slow.txt": {statusCode: http.StatusOK, content: []byte("a.com"), delay: 5 * time.Second},
	})

	start := time.Now()
	r := NewFetcher(ls.Client(), 50*time.Millisecond).Fetch(context.Background(), Source{Name: "slow", URL: ls.URL("/slow.txt")})
	if r.OK() {
		t.Fatal("expected timeout")
	}
	if !errors.Is(r.Err, ErrTransport) {
		t.Errorf("r.Err = %v, want ErrTransport", r.Err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout not honoured, took %s", elapsed)
	}
}

func TestStatusString(t *testing.T) {
	t.Parallel()

	if StatusOK.String() != "ok" {
		t.Error(`StatusOK.String() != "ok"`)
	}
	if StatusFailed.String() != "failed" {
		t.Error(`StatusFailed.String() != "failed"`)
	}
	if Status(42).String() != "unknown" {
		t.Error(`Status(42).String() != "unknown"`)
	}
}
