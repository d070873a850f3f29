package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/resonance-core/resonance/internal/errs"
	"github.com/resonance-core/resonance/internal/statestore"
)

// newPromptCommand lets a user manually resolve a directory the identifier
// queued as PROBABLE/UNSURE, pinning it to RESOLVED_USER. Once pinned this
// way the "no re-match once resolved" invariant applies exactly as it does
// to an auto-resolved pin — resolve/run will never re-query a provider for
// it again unless the directory's signature changes.
func newPromptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt <dir-id> <provider> <release-id>",
		Short: "Manually pin a QUEUED_PROMPT directory to a specific provider release",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dirID, provider, releaseID := args[0], args[1], args[2]
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.store.Get(dirID)
			if err != nil {
				return fmt.Errorf("prompt: %w", err)
			}
			if rec.State != statestore.StateQueuedPrompt {
				return fmt.Errorf("%w: prompt: directory %s is in state %s, not QUEUED_PROMPT", errs.ErrInvalidInput, dirID, rec.State)
			}

			if err := a.store.SetState(dirID, statestore.StateResolvedUser, statestore.SetStateOpts{
				PinnedProvider:  provider,
				PinnedReleaseID: releaseID,
				PinnedConfidence: 1.0,
			}); err != nil {
				return fmt.Errorf("prompt: pinning: %w", err)
			}
			_ = a.store.SetReasons(dirID, []string{"Manually resolved by user via prompt"})

			fmt.Printf("%s pinned to %s/%s (RESOLVED_USER)\n", dirID, provider, releaseID)
			return nil
		},
	}
	return cmd
}
