// Command classkit validates class specs, constructs instances and
// replays recorded construction runs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/classkit/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
