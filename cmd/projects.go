package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/studio/internal/export"
	"github.com/lehigh-university-libraries/studio/internal/ids"
	"github.com/lehigh-university-libraries/studio/internal/persistence"
)

func newProjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage saved projects",
		Long:  `List, inspect, delete and export the projects saved in the data directory.`,
	}

	cmd.AddCommand(newProjectsListCmd(a))
	cmd.AddCommand(newProjectsShowCmd(a))
	cmd.AddCommand(newProjectsDeleteCmd(a))
	cmd.AddCommand(newProjectsExportCmd(a))

	return cmd
}

// withProjects opens the project store for the duration of fn.
func withProjects(a *app, fn func(*persistence.Store) error) error {
	kv, projects, err := openProjects(a.cfg, ids.NewGenerator(nil))
	if err != nil {
		return err
	}
	defer kv.Close()
	return fn(projects)
}

func newProjectsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved projects, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProjects(a, func(s *persistence.Store) error {
				records := s.List()
				persistence.SortNewestFirst(records)

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tSAVED")
				for _, r := range records {
					saved := time.UnixMilli(r.Timestamp).Local().Format("2006-01-02 15:04")
					fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Name, saved)
				}
				return tw.Flush()
			})
		},
	}
}

func newProjectsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved project as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProjects(a, func(s *persistence.Store) error {
				rec, err := s.Load(args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			})
		},
	}
}

func newProjectsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProjects(a, func(s *persistence.Store) error {
				return s.Delete(args[0])
			})
		},
	}
}

func newProjectsExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a summary of saved projects",
		Example: `  # Export as YAML
  studio projects export --output projects.yaml

  # Export as Parquet
  studio projects export --format parquet --output projects.parquet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProjects(a, func(s *persistence.Store) error {
				records := s.List()
				persistence.SortNewestFirst(records)
				if output == "-" {
					return export.WriteYAML(cmd.OutOrStdout(), export.Rows(records), time.Now())
				}
				return export.ToFile(output, format, export.Rows(records), time.Now())
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: yaml or parquet (default from the file extension)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, or - for YAML on stdout")

	return cmd
}
