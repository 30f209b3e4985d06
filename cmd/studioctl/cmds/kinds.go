package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newKindsCmd() *cobra.Command {
	var rawJSON bool

	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List configured job kinds and their endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := getRootOptions(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if rawJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "server: %s\nstream: %s?type=<kind>\n", cfg.Server, cfg.StreamPath)
			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"Kind", "Submit", "Description"})
			for _, j := range cfg.Jobs {
				tw.AppendRow(table.Row{j.Kind, j.SubmitPath, j.Description})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), tw.Render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&rawJSON, "json", false, "Print the effective config as JSON")
	return cmd
}
