// Package cli implements the weblib command line.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kroma-labs/weblib/httpclient"
)

// serviceName identifies the CLI in spans and metrics.
const serviceName = "weblib-cli"

// app holds state shared by every command of one invocation.
type app struct {
	debug   bool
	trace   bool
	timeout time.Duration

	logger   zerolog.Logger
	shutdown func(context.Context) error
}

// NewRootCommand creates the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	a := &app{
		logger:   zerolog.Nop(),
		shutdown: func(context.Context) error { return nil },
	}

	cmd := &cobra.Command{
		Use:   "weblib",
		Short: "weblib - a small HTTP client with retries",
		Long: `weblib issues HTTP requests and prints the response body.

It can fetch, query, post, authenticate with HTTP Basic credentials and
retry a GET under a per-attempt timeout. 'weblib serve' runs a local
httpbin-style echo server to try the other commands against.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.shutdown(context.WithoutCancel(cmd.Context()))
		},
	}

	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Log requests and responses to stderr")
	cmd.PersistentFlags().BoolVar(&a.trace, "trace", false, "Print OpenTelemetry spans to stderr")
	cmd.PersistentFlags().DurationVar(&a.timeout, "client-timeout", 30*time.Second, "Overall timeout of one round trip")

	cmd.AddCommand(
		newGetCmd(a),
		newQueryCmd(a),
		newPostCmd(a),
		newBasicAuthCmd(a),
		newRetryCmd(a),
		newServeCmd(a),
		newDemoCmd(a),
	)

	return cmd
}

// setup builds the logger and, with --trace, installs the global tracer provider.
func (a *app) setup(stderr io.Writer) error {
	if a.debug {
		a.logger = zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
	} else {
		a.logger = zerolog.New(stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}

	if a.trace {
		shutdown, err := setupTracing(stderr)
		if err != nil {
			return err
		}
		a.shutdown = shutdown
	}

	return nil
}

// client builds a one-invocation client from the global flags.
func (a *app) client(opts ...httpclient.Option) *httpclient.Client {
	cfg := httpclient.ConservativeConfig()
	cfg.Timeout = a.timeout

	base := []httpclient.Option{
		httpclient.WithConfig(cfg),
		httpclient.WithServiceName(serviceName),
		httpclient.WithLogger(a.logger),
		httpclient.WithDebug(a.debug),
	}
	return httpclient.New(append(base, opts...)...)
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)

	if err := cmd.ExecuteContext(ctx); err != nil {
		cmd.PrintErrln("Error:", err)
		return 1
	}
	return 0
}

// Main is the entry point used by cmd/weblib.
func Main() {
	os.Exit(Execute(context.Background(), os.Args[1:]))
}
