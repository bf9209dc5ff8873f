package blocklist

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/ulikunitz/xz"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Failure reasons carried by a failed Result. Use errors.Is to match them.
var (
	ErrInvalidURL = errors.New("invalid url")
	ErrTransport  = errors.New("transport error")
	ErrBadStatus  = errors.New("unexpected http status")
	ErrDecode     = errors.New("cannot decode body as utf-8")
)

// Status tells whether a fetch succeeded.
type Status int

// Fetch statuses.
const (
	StatusOK Status = iota
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result is the outcome of fetching one source.
//
// A failed result has no lines and a non-nil Err. A successful result
// may have no lines when the source is empty.
type Result struct {
	Source   Source
	Status   Status
	Lines    []string
	Err      error
	Duration time.Duration
}

// OK returns true if the fetch succeeded.
func (r *Result) OK() bool {
	return r.Status == StatusOK
}

// Fetcher downloads blocklists over HTTP.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewFetcher creates a Fetcher.
//
// timeout limits every request; zero means no limit other than ctx.
func NewFetcher(client *http.Client, timeout time.Duration) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{
		client:  client,
		timeout: timeout,
	}
}

// Fetch downloads src and returns its normalized lines.
//
// Fetch never fails; errors are logged and returned in the Result.
func (f *Fetcher) Fetch(ctx context.Context, src Source) *Result {
	start := time.Now()
	lines, err := f.fetch(ctx, src.URL)
	r := &Result{
		Source:   src,
		Lines:    lines,
		Err:      err,
		Duration: time.Since(start),
	}
	if err != nil {
		r.Status = StatusFailed
		r.Lines = nil
		slog.Warn("failed to download blocklist", "source", src.Name, "url", src.URL, "error", err)
		return r
	}

	r.Status = StatusOK
	slog.Info("downloaded blocklist", "source", src.Name, "url", src.URL, "lines", len(lines), "duration", r.Duration)
	return r
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]string, error) {
	u, err := parseSourceURL(rawURL)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, rawURL), ErrInvalidURL)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "creating request"), ErrInvalidURL)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "GET "+rawURL), ErrTransport)
	}
	defer closeRespBody(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ErrBadStatus, "status %d for %s", resp.StatusCode, rawURL)
	}

	body := &bodyReader{r: resp.Body}
	var reader io.Reader = body
	if strings.HasSuffix(u.Path, ".xz") {
		xr, err := xz.NewReader(body)
		if err != nil {
			return nil, readError(err, body, rawURL)
		}
		reader = xr
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, readError(err, body, rawURL)
	}

	text, err := decodeUTF8(data)
	if err != nil {
		return nil, errors.Wrap(err, rawURL)
	}
	return ParseLines(text), nil
}

// bodyReader remembers the first error returned by the response body
// other than io.EOF.
type bodyReader struct {
	r   io.Reader
	err error
}

func (b *bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && err != io.EOF && b.err == nil {
		b.err = err
	}
	return n, err
}

// readError marks err as a transport failure if the body failed, and as
// a decode failure otherwise.
func readError(err error, body *bodyReader, rawURL string) error {
	if body.err != nil {
		return errors.Mark(errors.Wrap(err, "reading body of "+rawURL), ErrTransport)
	}
	return errors.Mark(errors.Wrap(err, "xz"), ErrDecode)
}

// decodeUTF8 rejects invalid UTF-8 and strips a leading byte order mark.
func decodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", ErrDecode
	}
	body, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), data)
	if err != nil {
		return "", errors.Mark(err, ErrDecode)
	}
	return string(body), nil
}

// closeRespBody closes HTTP response body.
func closeRespBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err)
	}
}

// newHTTPClient creates an HTTP client with its own transport and TLS configuration.
func newHTTPClient(tlsConfig *TLSConfig) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.MaxIdleConnsPerHost = 4
	tr.IdleConnTimeout = 90 * time.Second

	if tlsConfig != nil {
		customTLSConfig, err := tlsConfig.BuildTLSConfig()
		if err != nil {
			return nil, errors.Wrap(err, "tls")
		}
		tr.TLSClientConfig = customTLSConfig
	}

	return &http.Client{
		Transport: tr,
		Timeout:   0, // no timeout; timeout is controlled by context
	}, nil
}
