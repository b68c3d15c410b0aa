package main

import (
	"os"

	"github.com/gistr/gistr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
