// Command jsonapistore normalizes JSON:API documents into a versioned
// SQLite store and reads entity views back out of it.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/jsonapistore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
