package main

import (
	"os"

	"github.com/fcanovai/rescache/cmd/rescachectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("Error: %v", err)
		os.Exit(1)
	}
}
