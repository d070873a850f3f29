// Command resonance drives the directory identification and library
// reorganization pipeline from the command line. The core packages under
// internal/ do all the real work; this file and cmd/resonance/commands/
// are just a cobra command tree wiring flags to them.
package main

import (
	"fmt"
	"os"

	"github.com/resonance-core/resonance/cmd/resonance/commands"
)

func main() {
	root := commands.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(commands.ExitCodeFor(err))
	}
}
