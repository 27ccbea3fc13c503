package main

import (
	"os"

	"github.com/ewagner-dev/nestup/cmd/nestup/commands"
)

func main() {
	rootCmd := commands.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
