package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// readInput reads a file argument, "-" meaning stdin.
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// writeOutput writes body to path, or to the command's stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, body []byte) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(body)
		return err
	}
	return os.WriteFile(path, body, 0o644)
}
