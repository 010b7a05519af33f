package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvimkit/savefmt/internal/sortjson"
)

func newSortCmd(opts Options) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "sort [file|-]",
		Short: "Sort a settings JSON file's keys",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return errors.New("sort accepts at most one file path")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = strings.TrimSpace(args[0])
				if path == "" {
					path = "-"
				}
			}

			src, err := readSortSource(path, opts.Stdin)
			if err != nil {
				return err
			}
			sorted, err := sortjson.Sort(src)
			if err != nil {
				return err
			}
			if write {
				return writeSortedOutput(path, src, sorted)
			}
			_, err = opts.Stdout.Write(sorted)
			return err
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write result back to file")
	return cmd
}

func readSortSource(path string, in io.Reader) ([]byte, error) {
	if path == "-" {
		src, err := io.ReadAll(in)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return src, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", path, err)
	}
	return src, nil
}

func writeSortedOutput(path string, src, sorted []byte) error {
	if path == "-" {
		return errors.New("--write requires a file path")
	}
	if bytes.Equal(src, sorted) {
		return nil
	}
	mode := os.FileMode(0o644)
	if st, statErr := os.Stat(path); statErr == nil {
		mode = st.Mode().Perm()
	}
	if err := os.WriteFile(path, sorted, mode); err != nil {
		return fmt.Errorf("write file %q: %w", path, err)
	}
	return nil
}
