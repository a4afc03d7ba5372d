// File: internal/cli/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// newConfigCommand prints the effective configuration as YAML.
func newConfigCommand(o *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(o.cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
