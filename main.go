package main

import (
	"os"

	"github.com/odyssey/handoff/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
