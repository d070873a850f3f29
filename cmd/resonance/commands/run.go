package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/resonance-core/resonance/internal/acousticfp"
	"github.com/resonance-core/resonance/internal/applier"
	"github.com/resonance-core/resonance/internal/evidence"
	"github.com/resonance-core/resonance/internal/resolver"
	"github.com/resonance-core/resonance/internal/scanner"
	"github.com/resonance-core/resonance/internal/statestore"
	"github.com/resonance-core/resonance/internal/tagpatch"
)

// newRunCommand drives the full scan -> resolve -> plan -> apply pipeline
// in one pass, skipping any directory that isn't auto-resolvable (it's
// left QUEUED_PROMPT for a later `resonance prompt` call).
func newRunCommand() *cobra.Command {
	var exclude []string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run <root>...",
		Short: "Scan, resolve, plan, and apply every auto-resolvable directory under roots",
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
				return fmt.Errorf("run: scanning: %w", err)
			}

			writer, err := applier.NewTagWriter(a.settings.TagWriterBackend)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			ap := applier.New(gf.libraryRoot, writer, a.store, a.log)

			ctx := context.Background()
			var applied, queued, skipped int
			for _, b := range batches {
				ev, err := evidence.NewExtractor(acousticfp.NewReader()).ExtractDirectoryEvidence(b.AudioFiles)
				if err != nil {
					return fmt.Errorf("run: evidence for %s: %w", b.Directory, err)
				}

				outcome, err := resolver.ResolveDirectory(ctx, b.DirID, b.Directory, b.Signature.SignatureHash, b.Signature.SignatureVersion, ev, a.store, a.client, a.thresholds)
				if err != nil {
					return fmt.Errorf("run: resolving %s: %w", b.Directory, err)
				}

				if outcome.NeedsPrompt {
					a.log.Infof("queued for prompt: %s (%v)", b.Directory, outcome.Reasons)
					queued++
					continue
				}
				if outcome.State == statestore.StateApplied {
					skipped++
					continue
				}

				rec, err := a.store.Get(outcome.DirID)
				if err != nil {
					return fmt.Errorf("run: %w", err)
				}
				release, plan, err := loadPlan(ctx, a, outcome.DirID)
				if err != nil {
					a.log.Errorf("run: planning %s failed: %v", b.Directory, err)
					continue
				}
				resolved := tagpatch.ResolvedState{PinnedProvider: rec.PinnedProvider, PinnedReleaseID: rec.PinnedReleaseID}
				patches := tagpatch.BuildPatches(release, resolved, time.Now)

				report, err := ap.Apply(plan, patches, dryRun)
				if err != nil {
					a.log.Errorf("run: applying %s failed: %v", b.Directory, err)
					continue
				}
				if !dryRun {
					a.log.Infof("applied %s: %d tracks (invocation %s)", b.Directory, len(report.Moved), report.InvocationID)
				}
				applied++
			}

			fmt.Printf("run complete: %d applied, %d queued for prompt, %d already applied\n", applied, queued, skipped)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "glob pattern to exclude (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan and log without writing tags or moving files")
	return cmd
}
