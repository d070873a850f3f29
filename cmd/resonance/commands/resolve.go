package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/resonance-core/resonance/internal/acousticfp"
	"github.com/resonance-core/resonance/internal/evidence"
	"github.com/resonance-core/resonance/internal/resolver"
	"github.com/resonance-core/resonance/internal/scanner"
)

func newResolveCommand() *cobra.Command {
	var exclude []string
	cmd := &cobra.Command{
		Use:   "resolve <root>...",
		Short: "Scan roots and resolve every discovered directory's identity",
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
				return fmt.Errorf("resolve: scanning: %w", err)
			}

			ctx := context.Background()
			for _, b := range batches {
				ev, err := evidence.NewExtractor(acousticfp.NewReader()).ExtractDirectoryEvidence(b.AudioFiles)
				if err != nil {
					return fmt.Errorf("resolve: extracting evidence for %s: %w", b.Directory, err)
				}

				outcome, err := resolver.ResolveDirectory(ctx, b.DirID, b.Directory, b.Signature.SignatureHash, b.Signature.SignatureVersion, ev, a.store, a.client, a.thresholds)
				if err != nil {
					return fmt.Errorf("resolve: %s: %w", b.Directory, err)
				}

				switch {
				case outcome.NeedsPrompt:
					fmt.Printf("%s  dir_id=%s  state=%s  NEEDS PROMPT: %v\n", b.Directory, outcome.DirID, outcome.State, outcome.Reasons)
				case outcome.PinnedReleaseID != "":
					fmt.Printf("%s  dir_id=%s  state=%s  pinned=%s/%s  confidence=%.2f\n",
						b.Directory, outcome.DirID, outcome.State, outcome.PinnedProvider, outcome.PinnedReleaseID, outcome.PinnedConfidence)
				default:
					fmt.Printf("%s  dir_id=%s  state=%s\n", b.Directory, outcome.DirID, outcome.State)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "glob pattern to exclude (repeatable)")
	return cmd
}
