package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newJailCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jail <dir-id>",
		Short: "Jail a directory so resolve/run skip it until it's unjailed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Jail(args[0]); err != nil {
				return fmt.Errorf("jail: %w", err)
			}
			fmt.Printf("%s jailed\n", args[0])
			return nil
		},
	}
	return cmd
}
