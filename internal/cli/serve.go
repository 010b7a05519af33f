package cli

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/neovim/go-client/nvim"
	"github.com/spf13/cobra"

	"github.com/nvimkit/savefmt/internal/extension"
	"github.com/nvimkit/savefmt/internal/host"
)

type ServeRuntimeOptions struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	BuildInfo BuildInfo
}

type ServeRunner func(opts ServeRuntimeOptions) error

func newServeCmd(opts Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Attach to Neovim over stdio and serve save events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeWithOptions(opts)
		},
	}
}

func runServeWithOptions(opts Options) error {
	return opts.ServeRunner(ServeRuntimeOptions{
		Stdin:     opts.Stdin,
		Stdout:    opts.Stdout,
		Stderr:    opts.Stderr,
		BuildInfo: opts.BuildInfo,
	})
}

func defaultServeRunner(opts ServeRuntimeOptions) error {
	logger := log.New(opts.Stderr, "savefmt: ", log.LstdFlags|log.Lshortfile)
	v, err := nvim.New(opts.Stdin, opts.Stdout, nopCloser{opts.Stdout}, logger.Printf)
	if err != nil {
		return fmt.Errorf("attach editor: %w", err)
	}

	h := host.NewNvim(v, logger)
	ext := extension.New(h, h, logger)

	// Activation issues blocking requests, so it runs once the serve
	// loop is reading responses.
	go func() {
		if err := ext.Activate(context.Background()); err != nil {
			logger.Printf("activate: %v", err)
		}
	}()

	if err := v.Serve(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
