// The main package for the film-scraper executable.
package main

import (
	"github.com/JakeFAU/film-scraper/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
