// Command lucq compiles Lucene query syntax into Elasticsearch request
// bodies and parameterized SQL.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/lucq/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()

	// Commands report their own failures and return an ExitError; flag
	// parsing and unknown commands are printed here.
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
