package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timzifer/dashwidget/registry"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate registry files and resolve every widget config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := buildRegistry(cfg)
			if err != nil {
				return fmt.Errorf("registry invalid: %w", err)
			}
			out := cmd.OutOrStdout()
			resolver := registry.NewResolver(reg)
			failed := 0
			for _, id := range reg.IDs() {
				if _, err := resolver.Resolve(id); err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s (%s): %v\n", id, reg.Source(id), err)
				}
			}
			if failed > 0 {
				fmt.Fprintln(out, "Registry check completed with errors.")
				return fmt.Errorf("%d of %d configs failed to resolve", failed, reg.Len())
			}
			if reg.Len() == 0 {
				return errors.New("registry is empty")
			}
			fmt.Fprintf(out, "Registry check completed successfully: %d configs, %d widgets.\n", reg.Len(), len(reg.WidgetIDs()))
			return nil
		},
	}
}
