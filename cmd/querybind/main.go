// Command querybind compiles widget definitions and drives them against a
// reference query store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/querybind/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
