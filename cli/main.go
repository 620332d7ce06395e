// Command coconut runs stored procedures and text queries through coconutdal.
package main

import (
	"os"

	"github.com/satishbabariya/coconutdal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
