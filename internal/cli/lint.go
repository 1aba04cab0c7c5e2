package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bellian/Godot-Translation-Tool/internal/lint"
	"github.com/Bellian/Godot-Translation-Tool/internal/model"
)

// errLintFailed is returned when any dialog has error-level findings.
var errLintFailed = errors.New("lint found errors")

type dialogFindings struct {
	Dialog   string         `json:"dialog"`
	Findings []lint.Finding `json:"findings"`
}

func (c *CLI) lintCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "lint <project-id> [dialog-id...]",
		Short: "Check dialogs for structural and translation problems",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			e, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			catalogue, err := e.catalogue()
			if err != nil {
				return err
			}
			dialogs, err := e.repo.ListDialogs(ctx, projectID)
			if err != nil {
				return err
			}
			if len(args) > 1 {
				dialogs, err = selectDialogs(dialogs, args[1:])
				if err != nil {
					return err
				}
			}
			sections, err := e.repo.DialogSectionIDs(ctx, projectID)
			if err != nil {
				return err
			}

			results := make([]dialogFindings, 0, len(dialogs))
			failed := false
			for _, d := range dialogs {
				b, err := e.repo.DialogExport(ctx, projectID, d.ID)
				if err != nil {
					return err
				}
				findings := catalogue.Check(lint.Input{
					Dialog:          b.Dialog,
					Group:           b.Group,
					ProjectSections: sections,
					Policy:          e.repo.Policy(),
				})
				if findings == nil {
					findings = []lint.Finding{}
				}
				failed = failed || lint.HasErrors(findings)
				results = append(results, dialogFindings{Dialog: d.ID, Findings: findings})
				c.Logger.Debug("Checked dialog", "dialog", d.ID, "findings", len(findings))
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					for _, f := range r.Findings {
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Dialog, f.Severity, f.Code, location(f), f.Message)
					}
				}
			}
			if failed {
				return errLintFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print findings as JSON")
	return cmd
}

func selectDialogs(all []model.Dialog, ids []string) ([]model.Dialog, error) {
	byID := make(map[string]model.Dialog, len(all))
	for _, d := range all {
		byID[d.ID] = d
	}
	selected := make([]model.Dialog, 0, len(ids))
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("dialog %q not found", id)
		}
		selected = append(selected, d)
	}
	return selected, nil
}

func location(f lint.Finding) string {
	switch {
	case f.Section == "":
		return "-"
	case f.LineID == 0:
		return f.Section
	default:
		return fmt.Sprintf("%s#%d", f.Section, f.LineID)
	}
}
