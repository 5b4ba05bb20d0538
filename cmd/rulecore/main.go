package main

import (
	"os"

	"github.com/roshni-games/rulecore/cmd/rulecore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
