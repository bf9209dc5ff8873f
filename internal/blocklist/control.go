package blocklist

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron/v3"
)

// RunOptions are per-invocation settings that do not belong in the configuration file.
type RunOptions struct {
	// Progress shows a progress bar on stderr.
	Progress bool
}

// Run builds the combined list once from the compiled-in sources and
// writes the files enabled in config next to the output.
func Run(ctx context.Context, config *Config, opts RunOptions) (*Summary, error) {
	return run(ctx, config, DefaultSources(), opts)
}

func run(ctx context.Context, config *Config, sources []Source, opts RunOptions) (*Summary, error) {
	client, err := newHTTPClient(&config.TLS)
	if err != nil {
		return nil, errors.Wrap(err, "Run")
	}

	release, err := lockOutput(config.Output)
	if err != nil {
		return nil, err
	}
	defer release()

	builder := NewBuilder(NewFetcher(client, config.Timeout.Duration), sources, config.Output, config.MaxConns)
	builder.SetProgress(opts.Progress)

	summary, err := builder.Build(ctx)
	if err != nil {
		return nil, err
	}

	if err := publish(config, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

// publish writes the optional files that accompany the output.
func publish(config *Config, summary *Summary) error {
	if config.Checksum {
		path := ChecksumPath(config.Output)
		if err := summary.SaveChecksum(path); err != nil {
			return err
		}
		slog.Info("checksum written", "path", path)
	}

	if config.Signing.Enabled() {
		if err := SignFile(&config.Signing, config.Output); err != nil {
			return err
		}
		slog.Info("signature written", "path", SignaturePath(config.Output))
	}

	if config.Manifest {
		path := ManifestPath(config.Output)
		if summary.outputUnchanged(path) {
			slog.Info("combined list unchanged since last build", "sha256", summary.Output.SHA256Sum())
		}
		if err := summary.SaveManifest(path); err != nil {
			return err
		}
		slog.Info("manifest written", "path", path)
	}

	if config.MetricsPath != "" {
		if err := WriteMetrics(config.MetricsPath, summary); err != nil {
			return err
		}
		slog.Debug("metrics written", "path", config.MetricsPath)
	}
	return nil
}

// cronLogger routes cron's log output to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// RunScheduled rebuilds the list on config.Schedule until ctx is cancelled.
//
// A build that is still running when the next one is due causes the
// next one to be skipped. Build failures are logged and do not stop
// the scheduler.
func RunScheduled(ctx context.Context, config *Config, opts RunOptions) error {
	return runScheduled(ctx, config, DefaultSources(), opts)
}

func runScheduled(ctx context.Context, config *Config, sources []Source, opts RunOptions) error {
	if config.Schedule == "" {
		return errors.New("no schedule configured")
	}

	c := cron.New(
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	_, err := c.AddFunc(config.Schedule, func() {
		if _, err := run(ctx, config, sources, opts); err != nil {
			slog.Error("scheduled build failed", "error", err)
		}
	})
	if err != nil {
		return errors.Wrapf(err, "invalid schedule %q", config.Schedule)
	}

	c.Start()
	slog.Info("scheduler started", "schedule", config.Schedule, "output", config.Output)

	<-ctx.Done()

	slog.Info("shutting down scheduler")
	<-c.Stop().Done()
	return nil
}
