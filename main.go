package main

import (
	"os"

	"github.com/deso-protocol/rosetta-aptos/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
