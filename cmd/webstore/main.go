package main

import (
	"fmt"
	"os"

	"github.com/yndnr/webstore-go/internal/cli/command"
)

func main() {
	app := command.App()

	// Exit-coded errors (not found, usage) exit inside Run.
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
