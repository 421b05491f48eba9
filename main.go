package main

import (
	"os"

	"github.com/spigell/jobrag/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
