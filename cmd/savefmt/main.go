package main

import (
	"fmt"
	"os"

	"github.com/nvimkit/savefmt/internal/cli"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	err := cli.Run(os.Args[1:], cli.Options{
		BuildInfo: cli.BuildInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "savefmt: %v\n", err)
		os.Exit(1)
	}
}
