package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/moments/moments-agent/internal/config"
	"github.com/moments/moments-agent/internal/export"
	"github.com/moments/moments-agent/internal/logging"
	"github.com/moments/moments-agent/internal/project"
)

func newProjectsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Inspect and manage saved projects",
	}
	cmd.AddCommand(newProjectsListCommand())
	cmd.AddCommand(newProjectsRenameCommand())
	cmd.AddCommand(newProjectsDeleteCommand())
	cmd.AddCommand(newProjectsExportCommand())
	return cmd
}

// withStore opens the project store for one command.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, st *store) error) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := logging.NewLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel())
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(cmd.Context(), st)
}

func newProjectsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved projects, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store) error {
				list := st.projects.List(ctx)
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No saved projects")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderProjects(list, time.Now()))
				return nil
			})
		},
	}
}

func newProjectsRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a saved project",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store) error {
				p, err := st.findProject(ctx, args[0])
				if err != nil {
					return err
				}
				name := strings.Join(args[1:], " ")
				if err := st.projects.Rename(ctx, p.ID, name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", shortID(p.ID), name)
				return nil
			})
		},
	}
}

func newProjectsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved project and its library video",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store) error {
				p, err := st.findProject(ctx, args[0])
				if err != nil {
					return err
				}
				if err := st.projects.Delete(ctx, p.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%s)\n", shortID(p.ID), p.Name)
				return nil
			})
		},
	}
}

func newProjectsExportCommand() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a project's timeline as a CMX 3600 EDL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(outputDir)
			if err != nil {
				return fmt.Errorf("resolve output directory: %w", err)
			}
			return withStore(cmd, func(ctx context.Context, st *store) error {
				p, err := st.findProject(ctx, args[0])
				if err != nil {
					return err
				}
				path, err := export.WriteProjectEDL(dir, p)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", shortID(p.ID), path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory the EDL is written to")
	return cmd
}

func renderProjects(list []*project.Project, now time.Time) string {
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		rows = append(rows, []string{
			shortID(p.ID),
			p.Name,
			p.Template.Title,
			strconv.Itoa(len(p.Selection)),
			humanize.RelTime(p.CreatedAt, now, "ago", "from now"),
			p.OutputRef,
		})
	}
	return renderTable(
		[]string{"ID", "Name", "Template", "Clips", "Saved", "Video"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
