package main

import (
	"os"

	"github.com/celerix-dev/celerix-profiles/cmd/celerix/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
