// Command tvsctl inspects shape-analysis definitions and abstract heaps.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tvs/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
