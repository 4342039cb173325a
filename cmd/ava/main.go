package main

import (
	"os"

	"github.com/nbella/ava-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
