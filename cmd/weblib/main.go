// Command weblib fetches, queries, posts to and retries HTTP endpoints from
// the command line, and can serve a local echo server to try them against.
package main

import "github.com/kroma-labs/weblib/internal/cli"

func main() {
	cli.Main()
}
