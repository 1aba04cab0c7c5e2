package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bellian/Godot-Translation-Tool/internal/export"
)

func (c *CLI) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <project-id> <dialog-id> <file|->",
		Short: "Replace a dialog's structure with an exported JSON document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[2])
			if err != nil {
				return err
			}
			doc, err := export.ParseDocument(data)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.repo.ImportDialog(ctx, projectID, args[1], doc)
			if err != nil {
				return err
			}
			for _, key := range res.Unresolved {
				c.Logger.Warn("Unresolved text key kept verbatim", "key", key)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d sections into %s\n", len(res.Sections), args[1])
			return nil
		},
	}
}
