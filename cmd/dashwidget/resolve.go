package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/timzifer/dashwidget/registry"
)

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "resolve <config-id>",
		Short: "Print the effective widget config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			resolved, err := registry.NewResolver(reg).Resolve(registry.ConfigID(args[0]))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch output {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(resolved); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resolved)
			default:
				return fmt.Errorf("unsupported output format %q", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "yaml", "Output format (yaml or json)")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the widget configs of the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := buildRegistry(cfg)
			if err != nil {
				return err
			}
			ids := reg.WidgetIDs()
			if all {
				ids = reg.IDs()
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tSOURCE")
			for _, id := range ids {
				c, _ := reg.Lookup(id)
				kind := "widget"
				if c.Abstract {
					kind = "base"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", id, kind, reg.Source(id))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include base configs")
	return cmd
}
