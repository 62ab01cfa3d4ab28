package main

import (
	"os"

	"github.com/in-c0/langtern/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
