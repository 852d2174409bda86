package main

import (
	"os"

	"github.com/AnatoleLucet/sig/v2/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
