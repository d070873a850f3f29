package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/resonance-core/resonance/internal/applier"
	"github.com/resonance-core/resonance/internal/tagpatch"
)

func newApplyCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "apply <dir-id>",
		Short: "Plan, write tags for and move a resolved directory's tracks into the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := context.Background()
			dirID := args[0]

			rec, err := a.store.Get(dirID)
			if err != nil {
				return fmt.Errorf("apply: %w", err)
			}

			release, plan, err := loadPlan(ctx, a, dirID)
			if err != nil {
				return err
			}
			resolved := tagpatch.ResolvedState{PinnedProvider: rec.PinnedProvider, PinnedReleaseID: rec.PinnedReleaseID}
			patches := tagpatch.BuildPatches(release, resolved, time.Now)

			writer, err := applier.NewTagWriter(a.settings.TagWriterBackend)
			if err != nil {
				return fmt.Errorf("apply: %w", err)
			}

			ap := applier.New(gf.libraryRoot, writer, a.store, a.log)
			report, err := ap.Apply(plan, patches, dryRun)
			if err != nil {
				return fmt.Errorf("apply: %w", err)
			}

			if dryRun {
				fmt.Printf("dry run: %d tracks would move under %s\n", len(plan.Tracks), gf.libraryRoot)
				return nil
			}
			fmt.Printf("applied %s: moved %d tracks, %d bytes (invocation %s)\n", dirID, len(report.Moved), report.BytesMoved, report.InvocationID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would happen without writing tags or moving files")
	return cmd
}
