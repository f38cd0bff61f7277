package main

import (
	"os"

	"github.com/bianoble/repolock/cmd/repolock/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
