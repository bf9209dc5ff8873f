package blocklist

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mirrorctl/listctl/internal/digest"
)

// SourceReport records how one source contributed to a build.
type SourceReport struct {
	Name     string  `json:"name"`
	URL      string  `json:"url"`
	Status   string  `json:"status"`
	Lines    int     `json:"lines"`
	Error    string  `json:"error,omitempty"`
	Duration float64 `json:"duration_seconds"`
}

func newSourceReport(r *Result) SourceReport {
	report := SourceReport{
		Name:     r.Source.Name,
		URL:      r.Source.URL,
		Status:   r.Status.String(),
		Lines:    len(r.Lines),
		Duration: r.Duration.Seconds(),
	}
	if r.Err != nil {
		report.Error = r.Err.Error()
	}
	return report
}

// Summary describes a finished build.
type Summary struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Duration    float64          `json:"duration_seconds"`
	UniqueLines int              `json:"unique_lines"`
	Output      *digest.FileInfo `json:"output"`
	Sources     []SourceReport   `json:"sources"`

	// Duplicates are lines contributed more than once, sorted.
	Duplicates []string `json:"-"`
}

// Succeeded returns the number of sources fetched successfully.
func (s *Summary) Succeeded() int {
	n := 0
	for _, src := range s.Sources {
		if src.Status == StatusOK.String() {
			n++
		}
	}
	return n
}

// Failed returns the number of sources that could not be fetched.
func (s *Summary) Failed() int {
	return len(s.Sources) - s.Succeeded()
}

// Builder fetches sources concurrently and writes the combined list.
type Builder struct {
	fetcher  *Fetcher
	sources  []Source
	output   string
	maxConns int
	progress bool
}

// NewBuilder creates a Builder.
//
// maxConns limits concurrent downloads; zero means one goroutine per source.
func NewBuilder(fetcher *Fetcher, sources []Source, output string, maxConns int) *Builder {
	return &Builder{
		fetcher:  fetcher,
		sources:  sources,
		output:   output,
		maxConns: maxConns,
	}
}

// SetProgress enables the progress bar on stderr.
func (b *Builder) SetProgress(enabled bool) {
	b.progress = enabled
}

// fetched is a result tagged with the position of its source.
type fetched struct {
	index  int
	result *Result
}

// Collect fetches every source and merges the lines into a ResultSet.
//
// Failed sources are reported but never make Collect fail.
// Reports are in source table order.
func (b *Builder) Collect(ctx context.Context) (*ResultSet, []SourceReport) {
	results := make(chan fetched, len(b.sources))
	var rs *ResultSet
	var reports []SourceReport

	bar := newProgressBar(len(b.sources), b.progress)
	defer bar.Finish()

	// neither goroutine returns an error; errgroup is only the join barrier.
	var g errgroup.Group
	g.Go(func() error {
		b.fetchAll(ctx, results)
		return nil
	})
	g.Go(func() error {
		rs, reports = b.recvResults(results, bar)
		return nil
	})
	_ = g.Wait()

	return rs, reports
}

// fetchAll starts one download per source and closes results when all are done.
func (b *Builder) fetchAll(ctx context.Context, results chan<- fetched) {
	defer close(results)

	var workers errgroup.Group
	if b.maxConns > 0 {
		workers.SetLimit(b.maxConns)
	}
	for i, src := range b.sources {
		i, src := i, src
		workers.Go(func() error {
			results <- fetched{index: i, result: b.fetcher.Fetch(ctx, src)}
			return nil
		})
	}
	_ = workers.Wait()
}

// recvResults is the only writer of the ResultSet.
func (b *Builder) recvResults(results <-chan fetched, bar *progressBar) (*ResultSet, []SourceReport) {
	rs := NewResultSet()
	reports := make([]SourceReport, len(b.sources))

	for f := range results {
		// failed results carry no lines; the source still adds the separator.
		rs.AddSource(f.result.Lines)
		reports[f.index] = newSourceReport(f.result)
		bar.Increment()
	}
	return rs, reports
}

// Build fetches all sources, writes the sorted combined list and
// returns a summary.
//
// Only a cancelled ctx or a failure to replace the output file makes
// Build fail.
func (b *Builder) Build(ctx context.Context) (*Summary, error) {
	start := time.Now()
	slog.Info("build starts", "sources", len(b.sources), "output", b.output)

	rs, reports := b.Collect(ctx)
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "build cancelled before writing output")
	}

	fi, err := WriteOutput(b.output, []byte(rs.Content()))
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		GeneratedAt: start.UTC(),
		Duration:    time.Since(start).Seconds(),
		UniqueLines: rs.Len(),
		Output:      fi,
		Sources:     reports,
		Duplicates:  rs.Duplicates(),
	}

	slog.Info("combined deduplicated list written",
		"path", b.output,
		"unique_lines", summary.UniqueLines,
		"sources_ok", summary.Succeeded(),
		"sources_failed", summary.Failed(),
		"size", fi.Size(),
		"sha256", fi.SHA256Sum())
	return summary, nil
}
