package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petrijr/comgr/pkg/api"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the supported interface version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			major, minor := api.Version()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "comgr %d.%d\n", major, minor)
			return err
		},
	}
}
