package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/resonance-core/resonance/internal/acousticfp"
	"github.com/resonance-core/resonance/internal/scanner"
)

func newScanCommand() *cobra.Command {
	var exclude []string
	cmd := &cobra.Command{
		Use:   "scan <root>...",
		Short: "Walk one or more library roots and print discovered directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, roots []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			s := scanner.New(scanner.WithExcludePatterns(exclude), scanner.WithFingerprinter(acousticfp.NewReader()))
			batches, err := s.IterDirectories(roots)
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			for _, b := range batches {
				fmt.Printf("%s  dir_id=%s  tracks=%d  extras=%d\n", b.Directory, b.DirID, len(b.AudioFiles), len(b.NonAudioFiles))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "glob pattern to exclude (repeatable)")
	return cmd
}
