package main

import (
	"os"

	"github.com/devwiki/wikitools/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
