// The main package for the lexcrawler executable.
package main

import (
	"github.com/openlawwa/lexcrawler/cmd"
)

func main() {
	cmd.Execute()
}
