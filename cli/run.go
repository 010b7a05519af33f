// Package cli re-exports the command-line entry point for embedding.
package cli

import internalcli "github.com/nvimkit/savefmt/internal/cli"

type BuildInfo = internalcli.BuildInfo
type Options = internalcli.Options

func Run(args []string, opts Options) error {
	return internalcli.Run(args, opts)
}
