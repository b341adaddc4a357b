package main

import (
	"os"

	"github.com/hitoshi/disneydex/cmd/disneyctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
