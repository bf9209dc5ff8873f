package blocklist

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(ls *listServer, sources []Source, output string, maxConns int) *Builder {
	return NewBuilder(NewFetcher(ls.Client(), 0), sources, output, maxConns)
}

func TestBuildCombinesSources(t *testing.T) {
	t.Parallel()

	ls := newListServer(t, map[string]testResponse{
		"/a.txt": ok("a.com\n#comment\n\nb.com\n"),
		"/b.txt": ok("b.com\nc.com"),
	})
	output := filepath.Join(t.TempDir(), "combined.txt")
	sources := []Source{
		{Name: "A", URL: ls.URL("/a.txt")},
		{Name: "B", URL: ls.URL("/b.txt")},
	}

	summary, err := newTestBuilder(ls, sources, output, 0).Build(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, Separator+"\na.com\nb.com\nc.com", string(data))

	assert.Equal(t, 4, summary.UniqueLines)
	assert.Equal(t, []string{"b.com"}, summary.Duplicates)
	assert.Equal(t, 2, summary.Succeeded())
	assert.Equal(t, 0, summary.Failed())
	require.Len(t, summary.Sources, 2)
	assert.Equal(t, "A", summary.Sources[0].Name)
	assert.Equal(t, 2, summary.Sources[0].Lines)
	assert.Equal(t, "B", summary.Sources[1].Name)

	require.NotNil(t, summary.Output)
	assert.Equal(t, uint64(len(data)), summary.Output.Size())
	assert.Len(t, summary.Output.SHA256Sum(), 64)

	st, err := os.Stat(output)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), st.Mode().Perm())
}

func TestBuildSkipsFailedSources(t *testing.T) {
	t.Parallel()

	ls := newListServer(t, map[string]testResponse{
		"/good.txt":  ok("good.com\n"),
		"/error.txt": {statusCode: http.StatusInternalServerError},
	})
	output := filepath.Join(t.TempDir(), "combined.txt")
	sources := []Source{
		{Name: "good", URL: ls.URL("/good.txt")},
		{Name: "error", URL: ls.URL("/error.txt")},
		{Name: "missing", URL: ls.URL("/missing.txt")},
		{Name: "invalid", URL: "not a url"},
	}

	summary, err := newTestBuilder(ls, sources, output, 0).Build(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, Separator+"\ngood.com", string(data))

	assert.Equal(t, 1, summary.Succeeded())
	assert.Equal(t, 3, summary.Failed())
	for _, report := range summary.Sources[1:] {
		assert.Equal(t, "failed", report.Status, report.Name)
		assert.NotEmpty(t, report.Error, report.Name)
		assert.Zero(t, report.Lines, report.Name)
	}
}

func TestBuildAllSourcesFailed(t *testing.T) {
	t.Parallel()

	ls := newListServer(t, nil)
	output := filepath.Join(t.TempDir(), "combined.txt")
	sources := []Source{
		{Name: "one", URL: ls.URL("/one.txt")},
		{Name: "two", URL: ls.URL("/two.txt")},
	}

	summary, err := newTestBuilder(ls, sources, output, 0).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UniqueLines)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, Separator, string(data))
}

func TestBuildEmptySourceTable(t *testing.T) {
	t.Parallel()

	ls := newListServer(t, nil)
	output := filepath.Join(t.TempDir(), "combined.txt")

	summary, err := newTestBuilder(ls, nil, output, 0).Build(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.UniqueLines)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestBuildIsIdempotent(t *testing.T) {
	t.Parallel()

	ls := newListServer(t, map[string]testResponse{
		"/a.txt": ok("zebra\napple\nApple\n"),
		"/b.txt": ok("apple\nmango\n"),
	})
	output := filepath.Join(t.TempDir(), "combined.txt")
	sources := []Source{
		{Name: "A", URL: ls.URL("/a.txt")},
		{Name: "B", URL: ls.URL("/b.txt")},
	}
	builder := newTestBuilder(ls, sources, output, 0)

	_, err := builder.Build(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(output)
	require.NoError(t, err)

	_, err = builder.Build(context.Background())
	require.NoError(t, err)
	second, err := os.ReadFile(output)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, Separator+"\nApple\napple\nmango\nzebra", string(second))
}

func TestBuildReplacesPreviousOutput(t *testing.T) {
	t.Parallel()

	ls := newListServer(t, map[string]testResponse{
		"/a.txt": ok("new.com"),
	})
	dir := t.TempDir()
	output := filepath.Join(dir, "combined.txt")
	require.NoError(t, os.WriteFile(output, []byte("stale.com\nlots of old content\n"), 0600))

	_, err := newTestBuilder(ls, []Source{{Name: "A", URL: ls.URL("/a.txt")}}, output, 0).Build(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, Separator+"\nnew.com", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestBuildCancelledDoesNotWrite(t *testing.T) {
	t.Parallel()

	ls := newListServer(t, map[string]testResponse{
		"/slow.txt": {statusCode: http.StatusOK, content: []byte("slow.com"), delay: 5 * time.Second},
	})
	output := filepath.Join(t.TempDir(), "combined.txt")
	require.NoError(t, os.WriteFile(output, []byte("previous"), 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := newTestBuilder(ls, []Source{{Name: "slow", URL: ls.URL("/slow.txt")}}, output, 0).Build(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestBuildOutputDirectoryMissing(t *testing.T) {
	t.Parallel()

	ls := newListServer(t, map[string]testResponse{"/a.txt": ok("a.com")})
	output := filepath.Join(t.TempDir(), "no", "such", "dir", "combined.txt")

	_, err := newTestBuilder(ls, []Source{{Name: "A", URL: ls.URL("/a.txt")}}, output, 0).Build(context.Background())
	assert.Error(t, err)
}

func TestCollectLimitsConcurrency(t *testing.T) {
	t.Parallel()

	responses := make(map[string]testResponse)
	var sources []Source
	for i := 0; i < 8; i++ {
		path := fmt.Sprintf("/%d.txt", i)
		responses[path] = testResponse{
			statusCode: http.StatusOK,
			content:    []byte(fmt.Sprintf("host%d.example\n", i)),
			delay:      50 * time.Millisecond,
		}
		sources = append(sources, Source{Name: path})
	}
	ls := newListServer(t, responses)
	for i := range sources {
		sources[i].URL = ls.URL(sources[i].Name)
	}

	rs, reports := newTestBuilder(ls, sources, "unused", 2).Collect(context.Background())

	assert.Equal(t, int64(8), ls.RequestCount())
	assert.LessOrEqual(t, ls.MaxInFlight(), int64(2))
	assert.Equal(t, 9, rs.Len())
	require.Len(t, reports, 8)
	for i, report := range reports {
		assert.Equal(t, sources[i].Name, report.Name)
		assert.Equal(t, "ok", report.Status)
	}
}
