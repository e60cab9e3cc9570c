// The main package for the etimad-scraper executable.
package main

import (
	"github.com/alialtamimi/etimad-scraper/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
