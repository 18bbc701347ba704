package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/domain"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/core/ports/driving"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/hashing"
	"github.com/calebscott1892-bot/Sumo-Sauce-sub000/internal/logger"
)

// version is overridden at link time.
var version = "dev"

// Services are the pipeline operations the commands drive.
type Services struct {
	Builder  driving.Builder
	Differ   driving.Differ
	Loader   driving.Loader
	Ingestor driving.Ingestor
	Verifier driving.Verifier

	// Close releases whatever the services hold open. May be nil.
	Close func() error
}

// Options are the global settings a Wiring receives.
type Options struct {
	// ConfigPath is the TOML config file. Empty means the default file.
	ConfigPath string

	// IngestMode overrides the configured ingestion mode when set.
	IngestMode domain.IngestMode

	// VerifyDBPath, when set, enables the repeated-load check of verify
	// against a database at that path.
	VerifyDBPath string
}

// Wiring builds the services for one invocation.
type Wiring func(opts Options) (*Services, error)

var (
	wire    Wiring
	opts    Options
	verbose bool

	builder  driving.Builder
	differ   driving.Differ
	loader   driving.Loader
	ingestor driving.Ingestor
	verifier driving.Verifier
	closer   func() error
)

var rootCmd = &cobra.Command{
	Use:   "sumo-pipeline",
	Short: "Deterministic sumo data ingestion pipeline",
	Long: `sumo-pipeline captures upstream sumo pages as content-addressed snapshots,
canonicalises them into reproducible builds, and applies build diffs to the
canonical store.

Every command prints one JSON summary line on stdout. Logs go to stderr.`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return setup()
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		return teardown()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default pipeline.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
}

// setup wires the services unless they are already set.
func setup() error {
	if wire == nil {
		return nil
	}
	mode, err := parseIngestMode(ingestModeFlag)
	if err != nil {
		return err
	}
	opts.IngestMode = mode
	s, err := wire(opts)
	if err != nil {
		return err
	}
	setServices(s)
	return nil
}

func teardown() error {
	if closer == nil {
		return nil
	}
	err := closer()
	closer = nil
	return err
}

func setServices(s *Services) {
	builder = s.Builder
	differ = s.Differ
	loader = s.Loader
	ingestor = s.Ingestor
	verifier = s.Verifier
	closer = s.Close
}

// reportedError is a failure whose summary line has already been printed.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// Execute runs the command line with the given wiring. A failure prints one
// JSON error line on stdout and is returned so the caller can exit non-zero.
func Execute(w Wiring) error {
	wire = w
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		// Close even when the command failed before its post-run hook.
		_ = teardown()
		var reported reportedError
		if !errors.As(err, &reported) {
			_ = printError(rootCmd.OutOrStdout(), err)
		}
	}
	return err
}

// printJSON writes v as one stable-serialised line.
func printJSON(w io.Writer, v any) error {
	line, err := hashing.Serialize(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = w.Write(line)
	return err
}

// errorLine is the summary printed for a failed command.
type errorLine struct {
	Error   string                 `json:"error"`
	Code    domain.IngestErrorCode `json:"code,omitempty"`
	BashoID string                 `json:"bashoId,omitempty"`
	Details []string               `json:"details,omitempty"`
}

func printError(w io.Writer, err error) error {
	line := errorLine{Error: err.Error()}
	var ie *domain.IngestError
	if errors.As(err, &ie) {
		line.Code = ie.Code
		line.BashoID = ie.BashoID
		line.Details = ie.Details
	}
	return printJSON(w, line)
}
