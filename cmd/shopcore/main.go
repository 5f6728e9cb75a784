// shopcore runs the offline-first sync engine and its localhost API.
package main

import (
	"os"

	"github.com/ovida/shopcore/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
