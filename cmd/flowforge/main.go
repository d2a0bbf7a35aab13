package main

import (
	"os"

	"flowforge/cmd/flowforge/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
