package main

import (
	"os"

	"github.com/conneroisu/poolserve/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
