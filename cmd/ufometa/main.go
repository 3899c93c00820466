package main

import (
	"os"

	"github.com/ufo-models/ufometa/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
