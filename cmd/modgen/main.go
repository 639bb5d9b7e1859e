// Command modgen generates schema bindings and the module registry of a host
// program. It is normally run from the host's build step.
package main

import (
	"fmt"
	"os"

	"github.com/platinummonkey/modgen/pkg/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
