package main

import (
	"os"

	"github.com/solatis/queryforge/cmd/queryforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
