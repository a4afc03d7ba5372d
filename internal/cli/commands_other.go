//go:build !linux

// File: internal/cli/commands_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package cli

import "github.com/spf13/cobra"

// platformCommands is empty where the TCP transport is unavailable.
func platformCommands(*RootOptions) []*cobra.Command {
	return nil
}
