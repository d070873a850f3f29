package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUnjailCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unjail <dir-id>",
		Short: "Move a JAILED directory back to NEW so it re-enters resolution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Unjail(args[0]); err != nil {
				return fmt.Errorf("unjail: %w", err)
			}
			fmt.Printf("%s unjailed, back to NEW\n", args[0])
			return nil
		},
	}
	return cmd
}
