// Package resolver implements the "no re-match once resolved" invariant: it
// decides whether a directory needs identification at all, and if so,
// drives the identifier and pins the result into the state store.
package resolver

import (
	"context"
	"fmt"

	"github.com/resonance-core/resonance/internal/evidence"
	"github.com/resonance-core/resonance/internal/identifier"
	"github.com/resonance-core/resonance/internal/statestore"
)

// Outcome reports what happened to one directory during resolution.
type Outcome struct {
	DirID            string
	State            statestore.DirectoryState
	PinnedProvider   string
	PinnedReleaseID  string
	PinnedConfidence float64
	ScoringVersion   string
	Reasons          []string
	NeedsPrompt      bool
}

// alreadyResolvedStates are states ResolveDirectory never re-evaluates:
// once a directory lands here, provider lookups are skipped entirely.
var alreadyResolvedStates = map[statestore.DirectoryState]bool{
	statestore.StateResolvedAuto: true,
	statestore.StateResolvedUser: true,
	statestore.StateApplied:      true,
}

// ResolveDirectory resolves one directory, consulting the state store first
// so an already-resolved or jailed or already-queued directory never
// triggers a provider call — this is the mechanism backing the "no
// re-match once resolved" invariant.
func ResolveDirectory(
	ctx context.Context,
	dirID, path, signatureHash string,
	signatureVersion int,
	ev evidence.DirectoryEvidence,
	store *statestore.Store,
	client identifier.ProviderClient,
	thresholds identifier.Thresholds,
) (Outcome, error) {
	rec, err := store.GetOrCreate(dirID, path, signatureHash, signatureVersion)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolver: %w", err)
	}

	if alreadyResolvedStates[rec.State] {
		return outcomeFromRecord(rec, []string{"Already resolved - reusing pinned decision"}, false), nil
	}

	if rec.State == statestore.StateJailed {
		return outcomeFromRecord(rec, []string{"Directory is jailed"}, false), nil
	}

	if rec.State == statestore.StateQueuedPrompt {
		return outcomeFromRecord(rec, []string{"Directory already queued for user resolution"}, true), nil
	}

	if mbID, ok := musicbrainzReleaseFromTags(ev); ok {
		reasons := []string{"musicbrainz_albumid present in tags"}
		if err := store.SetState(dirID, statestore.StateResolvedAuto, statestore.SetStateOpts{
			PinnedProvider:   "musicbrainz",
			PinnedReleaseID:  mbID,
			PinnedConfidence: 1.0,
		}); err != nil {
			return Outcome{}, fmt.Errorf("resolver: pinning musicbrainz tag shortcut: %w", err)
		}
		_ = store.SetReasons(dirID, reasons)
		return Outcome{
			DirID: dirID, State: statestore.StateResolvedAuto,
			PinnedProvider: "musicbrainz", PinnedReleaseID: mbID, PinnedConfidence: 1.0,
			Reasons: reasons,
		}, nil
	}

	result, err := identifier.Identify(ctx, ev, client, thresholds)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolver: identify: %w", err)
	}

	switch result.Tier {
	case identifier.TierCertain:
		best, ok := result.BestCandidate()
		if !ok {
			return queueForPrompt(dirID, store, append(result.Reasons, "CERTAIN tier with no best candidate"))
		}
		if err := store.SetState(dirID, statestore.StateResolvedAuto, statestore.SetStateOpts{
			PinnedProvider:   best.Release.Provider,
			PinnedReleaseID:  best.Release.ReleaseID,
			PinnedConfidence: best.TotalScore,
			ScoringVersion:   result.ScoringVersion,
		}); err != nil {
			return Outcome{}, fmt.Errorf("resolver: pinning CERTAIN result: %w", err)
		}
		_ = store.SetReasons(dirID, result.Reasons)
		return Outcome{
			DirID: dirID, State: statestore.StateResolvedAuto,
			PinnedProvider: best.Release.Provider, PinnedReleaseID: best.Release.ReleaseID,
			PinnedConfidence: best.TotalScore, ScoringVersion: result.ScoringVersion,
			Reasons: result.Reasons,
		}, nil

	case identifier.TierProbable, identifier.TierUnsure:
		return queueForPrompt(dirID, store, result.Reasons)

	default:
		return queueForPrompt(dirID, store, append(result.Reasons, "Unknown confidence tier"))
	}
}

// queueForPrompt transitions dirID to QUEUED_PROMPT unconditionally. It is
// only reached for a directory that is not yet queued: ResolveDirectory
// returns early for one already in QUEUED_PROMPT.
func queueForPrompt(dirID string, store *statestore.Store, reasons []string) (Outcome, error) {
	if err := store.SetState(dirID, statestore.StateQueuedPrompt, statestore.SetStateOpts{}); err != nil {
		return Outcome{}, fmt.Errorf("resolver: queueing for prompt: %w", err)
	}
	_ = store.SetReasons(dirID, reasons)
	return Outcome{DirID: dirID, State: statestore.StateQueuedPrompt, Reasons: reasons, NeedsPrompt: true}, nil
}

func outcomeFromRecord(rec statestore.DirectoryRecord, reasons []string, needsPrompt bool) Outcome {
	return Outcome{
		DirID:            rec.DirID,
		State:            rec.State,
		PinnedProvider:   rec.PinnedProvider,
		PinnedReleaseID:  rec.PinnedReleaseID,
		PinnedConfidence: rec.PinnedConfidence,
		ScoringVersion:   rec.ScoringVersion,
		Reasons:          reasons,
		NeedsPrompt:      needsPrompt,
	}
}

// musicbrainzReleaseFromTags implements the tag-based shortcut: if every
// tagged track agrees on exactly one non-empty musicbrainz_albumid, that
// release is pinned without ever consulting a provider.
func musicbrainzReleaseFromTags(ev evidence.DirectoryEvidence) (string, bool) {
	seen := map[string]bool{}
	for _, t := range ev.Tracks {
		id := t.ExistingTags["musicbrainz_albumid"]
		if id != "" {
			seen[id] = true
		}
	}
	if len(seen) != 1 {
		return "", false
	}
	for id := range seen {
		return id, true
	}
	return "", false
}
