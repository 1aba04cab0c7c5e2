package cli

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bellian/Godot-Translation-Tool/internal/export"
	"github.com/Bellian/Godot-Translation-Tool/internal/repo"
	"github.com/Bellian/Godot-Translation-Tool/internal/storage"
)

type exportFlags struct {
	out    string
	stdout bool
}

func (c *CLI) exportCommand() *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write dialog and translation exports",
	}
	cmd.PersistentFlags().StringVarP(&f.out, "out", "o", "", "output directory (default: storage.local_path)")
	cmd.PersistentFlags().BoolVar(&f.stdout, "stdout", false, "write to stdout instead of a file")

	cmd.AddCommand(&cobra.Command{
		Use:   "dialog <project-id> <dialog-id>",
		Short: "Export one dialog as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd, f, args[0], func(ctx context.Context, r *repo.Repo, projectID int64) (string, string, []byte, error) {
				b, err := r.DialogExport(ctx, projectID, args[1])
				if err != nil {
					return "", "", nil, err
				}
				body, err := export.Marshal(b.Document())
				return b.Project.Name, export.Filename(args[1]), body, err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "zip <project-id>",
		Short: "Export every dialog of a project as a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd, f, args[0], func(ctx context.Context, r *repo.Repo, projectID int64) (string, string, []byte, error) {
				p, bundles, err := r.ProjectDialogExports(ctx, projectID)
				if err != nil {
					return "", "", nil, err
				}
				now := time.Now()
				var buf bytes.Buffer
				if err := export.WriteProjectZip(&buf, repo.ExportFiles(bundles), now); err != nil {
					return "", "", nil, err
				}
				return p.Name, export.ZipFilename(p.Name, now), buf.Bytes(), nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "csv <project-id>",
		Short: "Export every translation of a project as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd, f, args[0], func(ctx context.Context, r *repo.Repo, projectID int64) (string, string, []byte, error) {
				p, groups, err := r.ProjectCSVData(ctx, projectID)
				if err != nil {
					return "", "", nil, err
				}
				return p.Name, export.CSVFilename(p.Name), []byte(export.ProjectCSV(p.Name, groups, p.Languages)), nil
			})
		},
	})
	return cmd
}

type exportFunc func(ctx context.Context, r *repo.Repo, projectID int64) (project, filename string, body []byte, err error)

func (c *CLI) runExport(cmd *cobra.Command, f exportFlags, projectArg string, fn exportFunc) error {
	projectID, err := parseProjectID(projectArg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	e, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	p := newProgress(c.Logger)
	project, filename, body, err := fn(ctx, e.repo, projectID)
	if err != nil {
		return err
	}
	if f.stdout {
		_, err := cmd.OutOrStdout().Write(body)
		return err
	}

	dir := f.out
	if dir == "" {
		dir = e.cfg.Storage.LocalPath
	}
	path, err := storage.NewLocalStorage(dir).Save(ctx, project, filename, bytes.NewReader(body))
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Wrote %s", path))
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
