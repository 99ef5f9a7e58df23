package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/cobra"

	"github.com/kroma-labs/weblib/httpbin"
	"github.com/kroma-labs/weblib/httpclient"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get URL",
		Short: "GET a URL and print the body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.client()
			defer c.Close()

			body, err := c.FetchText(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printBody(cmd.OutOrStdout(), body)
		},
	}
}

func newQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "query URL QUERY",
		Short: "GET a URL with a raw query string",
		Long: `GET URL?QUERY and print the body.

QUERY is sent verbatim, so it must already be encoded:

  weblib query https://httpbin.org/get 'key1=value1&key2=value2'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.client()
			defer c.Close()

			body, err := c.FetchWithQuery(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printBody(cmd.OutOrStdout(), body)
		},
	}
}

func newPostCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "post URL DATA",
		Short: "POST raw DATA to a URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.client()
			defer c.Close()

			body, err := c.Post(cmd.Context(), args[0], []byte(args[1]))
			if err != nil {
				return err
			}
			return printBody(cmd.OutOrStdout(), body)
		},
	}
}

func newBasicAuthCmd(a *app) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "basic-auth URL USER PASS",
		Short: "GET a URL with HTTP Basic credentials",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.client(httpclient.WithAuthCheck(check))
			defer c.Close()

			body, err := c.FetchWithBasicAuth(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return printBody(cmd.OutOrStdout(), body)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Fail when the server answers 401 or 403")

	return cmd
}

func newRetryCmd(a *app) *cobra.Command {
	var (
		attempts uint
		timeout  time.Duration
		pause    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "retry URL",
		Short: "GET a URL, retrying failed attempts",
		Long: `GET URL up to --attempts times, each attempt bounded by --timeout.

Transport failures and timeouts are retried; any HTTP status ends the
sequence. With --backoff, attempts are spaced by exponential pauses
starting at that duration.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.client()
			defer c.Close()

			policy := httpclient.RetryPolicy{
				MaxAttempts:       attempts,
				PerAttemptTimeout: timeout,
			}
			if pause > 0 {
				eb := backoff.NewExponentialBackOff()
				eb.InitialInterval = pause
				policy.BackOff = eb
			}

			resp, err := c.FetchWithRetries(cmd.Context(), args[0], policy)
			if err != nil {
				var retryErr *httpclient.RetryError
				if errors.As(err, &retryErr) {
					a.logger.Warn().
						Int("attempts", retryErr.Attempts()).
						Interface("reasons", retryErr.Reasons()).
						Msg("all attempts failed")
				}
				return err
			}

			text, err := resp.Text()
			if err != nil {
				return err
			}

			a.logger.Debug().
				Int("attempt", resp.Attempt()).
				Int("status", resp.StatusCode).
				Msg("retry sequence finished")

			return printBody(cmd.OutOrStdout(), text)
		},
	}

	cmd.Flags().UintVar(&attempts, "attempts", httpclient.DefaultMaxAttempts, "Total number of attempts")
	cmd.Flags().DurationVar(&timeout, "timeout", httpclient.DefaultPerAttemptTimeout, "Timeout of each attempt")
	cmd.Flags().DurationVar(&pause, "backoff", 0, "Initial pause between attempts (0 retries immediately)")

	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var (
		addr     string
		maxDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the httpbin-style echo server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server := httpbin.New(
				httpbin.WithAddr(addr),
				httpbin.WithLogger(a.logger),
				httpbin.WithMaxDelay(maxDelay),
			)
			if err := server.ListenAndServe(cmd.Context()); err != nil {
				return fmt.Errorf("serve on %s: %w", addr, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().DurationVar(&maxDelay, "max-delay", 10*time.Second, "Cap of /delay/{duration}")

	return cmd
}

// newDemoCmd runs the fetch, query and post walkthrough against an httpbin host.
func newDemoCmd(a *app) *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Fetch, query and post against an httpbin host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			c := a.client()
			defer c.Close()

			steps := []struct {
				name string
				run  func() (string, error)
			}{
				{"ip", func() (string, error) { return c.FetchText(ctx, base+"/ip") }},
				{"query", func() (string, error) {
					return c.FetchWithQuery(ctx, base+"/get", "key1=value1&key2=value2")
				}},
				{"post", func() (string, error) {
					return c.Post(ctx, base+"/post", []byte("key1=value1&key2=value2"))
				}},
			}

			for _, step := range steps {
				body, err := step.run()
				if err != nil {
					return fmt.Errorf("%s: %w", step.name, err)
				}
				if err := printBody(out, body); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "https://httpbin.org", "Base URL of the httpbin host")

	return cmd
}

func printBody(w io.Writer, body string) error {
	_, err := fmt.Fprintln(w, body)
	return err
}
