package main

import (
	"os"

	"github.com/gameportal/gameportal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
