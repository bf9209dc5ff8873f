// Package main implements the listctl command-line tool for building a combined blocklist.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/mirrorctl/listctl/internal/blocklist"
)

var (
	// Build information, set with -ldflags "-X main.version=..."
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"

	// Command-line flags
	configPath string
	logLevel   string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "listctl",
	Short: "Build a combined, deduplicated DNS blocklist",
	Long: `listctl downloads a fixed set of public blocklists, merges them,
removes duplicate lines, sorts the result and writes a single combined file.

Find more information at: https://github.com/mirrorctl/listctl`,
	SilenceUsage: true,
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Download all blocklists and write the combined list",
	Long: `Downloads every compiled-in blocklist concurrently and writes the sorted,
deduplicated union to the output file, replacing any previous file.

Sources that cannot be downloaded are logged and skipped; they never make
the build fail.

Usage:
  # Build once into ./combined-adguard-list.txt
  listctl build

  # Write somewhere else
  listctl build --output /srv/www/lists/combined.txt

  # Print entries that appear in more than one place
  listctl build --report-duplicates

  # Rebuild every six hours until interrupted
  listctl build --schedule "0 */6 * * *"`,
	Args: cobra.NoArgs,
	Run:  runBuild,
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the compiled-in blocklists",
	Args:  cobra.NoArgs,
	Run:   runSources,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long:  `Validate the configuration file and report any issues.`,
	Args:  cobra.NoArgs,
	Run:   runValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information including build details",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("listctl %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", buildDate)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", blocklist.DefaultConfigPath, "configuration file path (.toml or .yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load LISTCTL_* variables from a dotenv file")
	rootCmd.PersistentFlags().Bool("verbose-errors", false, "show detailed error information including stack traces")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress all output except for errors")

	buildCmd.Flags().StringP("output", "o", "", "output file path (default \""+blocklist.DefaultOutput+"\")")
	buildCmd.Flags().Int("max-conns", 0, "maximum concurrent downloads (0 = one per source)")
	buildCmd.Flags().Duration("timeout", 0, "per-request timeout (0 = no timeout)")
	buildCmd.Flags().Bool("report-duplicates", false, "print entries that were contributed more than once")
	buildCmd.Flags().Bool("no-progress", false, "do not show a progress bar")
	buildCmd.Flags().String("schedule", "", "rebuild on a cron schedule instead of exiting after one build")
}

// formatError returns a human-friendly error message, optionally with stack trace
func formatError(err error, verbose bool) string {
	if verbose {
		return fmt.Sprintf("%+v", err) // Full details with stack trace
	}

	// For human-friendly output, try to extract the root message
	flattened := errors.FlattenDetails(err)
	if flattened != "" {
		return flattened
	}

	return err.Error()
}

// loadConfig reads the configuration file, applies environment and
// command-line overrides and configures logging.
//
// A missing file at the default location yields the built-in defaults.
func loadConfig(cmd *cobra.Command) (*blocklist.Config, error) {
	if envFile != "" {
		if err := blocklist.LoadEnvFile(envFile); err != nil {
			return nil, err
		}
	}

	config, err := blocklist.LoadConfig(configPath)
	switch {
	case err == nil:
	case os.IsNotExist(err) && !cmd.Flags().Changed("config"):
		slog.Debug("no configuration file, using defaults", "path", configPath)
		config = blocklist.NewConfig()
	case os.IsNotExist(err):
		return nil, errors.Newf("configuration file not found: %s", configPath)
	default:
		return nil, errors.Wrap(err, "failed to decode config file")
	}

	if err := config.ApplyEnvironmentVariables(); err != nil {
		return nil, errors.Wrap(err, "environment")
	}

	if logLevel != "" {
		config.Log.Level = logLevel
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		config.Log.Level = "error"
	}
	if err := config.Log.Apply(); err != nil {
		return nil, errors.Wrap(err, "failed to apply log config")
	}
	return config, nil
}

// exitWithError logs err and terminates the process.
func exitWithError(cmd *cobra.Command, msg string, err error) {
	verboseErrors, _ := cmd.Flags().GetBool("verbose-errors")
	slog.Error(msg, "error", formatError(err, verboseErrors))
	if !verboseErrors {
		slog.Info("run with --verbose-errors for detailed stack traces")
	}
	os.Exit(1)
}

func applyBuildFlags(cmd *cobra.Command, config *blocklist.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		config.Output, _ = flags.GetString("output")
	}
	if flags.Changed("max-conns") {
		config.MaxConns, _ = flags.GetInt("max-conns")
	}
	if flags.Changed("timeout") {
		config.Timeout.Duration, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("schedule") {
		config.Schedule, _ = flags.GetString("schedule")
	}
}

func runBuild(cmd *cobra.Command, _ []string) {
	config, err := loadConfig(cmd)
	if err != nil {
		exitWithError(cmd, "configuration error", err)
	}
	applyBuildFlags(cmd, config)
	if err := config.Check(); err != nil {
		exitWithError(cmd, "invalid configuration", err)
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	opts := blocklist.RunOptions{Progress: !quiet && !noProgress}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Schedule != "" {
		if err := blocklist.RunScheduled(ctx, config, opts); err != nil {
			exitWithError(cmd, "scheduler failed", err)
		}
		return
	}

	summary, err := blocklist.Run(ctx, config, opts)
	if err != nil {
		exitWithError(cmd, "build failed", err)
	}

	if reportDuplicates, _ := cmd.Flags().GetBool("report-duplicates"); reportDuplicates {
		printDuplicates(summary.Duplicates)
	}
}

func printDuplicates(duplicates []string) {
	if len(duplicates) == 0 {
		fmt.Println("\nNo duplicated entries found.")
		return
	}
	fmt.Println("\nDuplicated Entries:")
	for _, dup := range duplicates {
		fmt.Println(dup)
	}
}

func runSources(_ *cobra.Command, _ []string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tURL")
	for _, src := range blocklist.DefaultSources() {
		fmt.Fprintf(w, "%s\t%s\n", src.Name, src.URL)
	}
	w.Flush()
}

func runValidate(cmd *cobra.Command, _ []string) {
	config, err := loadConfig(cmd)
	if err != nil {
		exitWithError(cmd, "configuration error", err)
	}

	var validationErrors []error
	if err := config.Check(); err != nil {
		validationErrors = append(validationErrors, errors.Wrap(err, "config"))
	}
	if config.Signing.Enabled() {
		if _, err := blocklist.SignDetached(&config.Signing, []byte("listctl")); err != nil {
			validationErrors = append(validationErrors, errors.Wrap(err, "signing"))
		}
	}
	for _, src := range blocklist.DefaultSources() {
		if err := src.Check(); err != nil {
			validationErrors = append(validationErrors, errors.Wrap(err, "source \""+src.Name+"\""))
		}
	}

	if len(validationErrors) > 0 {
		slog.Error("the configuration is not valid", "path", configPath)
		for _, err := range validationErrors {
			slog.Error(err.Error())
		}
		os.Exit(1)
	}

	slog.Info("the configuration passes validation checks", "path", configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
