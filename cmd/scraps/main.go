// Command scraps records clipboard history.
package main

import (
	"os"

	"github.com/mesh-intelligence/scraps/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
