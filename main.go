// The main package for the indexer executable.
package main

import (
	"github.com/textmachine/sitemap-indexer/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
