// The main package for the progress-pipeline executable.
package main

import (
	"github.com/JakeFAU/progress-pipeline/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
