package main

import (
	"github.com/driftbench/probeshot/cmd"
)

// main delegates to the cobra root command, which owns configuration,
// logging, and execution.
func main() {
	cmd.Execute()
}
