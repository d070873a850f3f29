package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/resonance-core/resonance/internal/errs"
	"github.com/resonance-core/resonance/internal/identifier"
	"github.com/resonance-core/resonance/internal/planner"
	"github.com/resonance-core/resonance/internal/statestore"
)

// resolvedStates are the states plan/apply accept — a directory must
// already carry a pin before it can be planned.
var resolvedStates = map[statestore.DirectoryState]bool{
	statestore.StateResolvedAuto: true,
	statestore.StateResolvedUser: true,
	statestore.StateApplied:      true,
}

// loadPlan re-derives a resolved directory's pinned release and computes
// its destination layout, returning both — apply needs the release itself
// to build tag patches, not just the plan's destination paths.
func loadPlan(ctx context.Context, a *app, dirID string) (identifier.ProviderRelease, planner.Plan, error) {
	rec, err := a.store.Get(dirID)
	if err != nil {
		return identifier.ProviderRelease{}, planner.Plan{}, fmt.Errorf("plan: %w", err)
	}
	if !resolvedStates[rec.State] {
		return identifier.ProviderRelease{}, planner.Plan{}, fmt.Errorf("%w: plan: directory %s is in state %s, not a resolved state", errs.ErrInvalidInput, dirID, rec.State)
	}

	sourcePaths, err := listAudioFiles(rec.Path)
	if err != nil {
		return identifier.ProviderRelease{}, planner.Plan{}, err
	}

	release, err := resolvePinnedRelease(ctx, a, rec, sourcePaths)
	if err != nil {
		return identifier.ProviderRelease{}, planner.Plan{}, err
	}

	plan, err := planner.BuildPlan(dirID, release, sourcePaths, a.plannerConfig())
	return release, plan, err
}

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <dir-id>",
		Short: "Compute and print the destination layout for an already-resolved directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			_, plan, err := loadPlan(context.Background(), a, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("album folder: %s\n", plan.AlbumFolder)
			for _, tp := range plan.Tracks {
				fmt.Printf("  %s -> %s\n", tp.SourcePath, tp.DestPath)
			}
			return nil
		},
	}
	return cmd
}
