// Package applier performs the filesystem mutation a plan describes: tag
// writes followed by renames into the canonical layout. It guarantees that
// either every track in a plan lands at its destination or none do —
// partial failures roll back every file already moved.
package applier

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/resonance-core/resonance/internal/errs"
	"github.com/resonance-core/resonance/internal/planner"
	"github.com/resonance-core/resonance/internal/statestore"
	"github.com/resonance-core/resonance/internal/tagpatch"
	"github.com/resonance-core/resonance/pkg/logger"
)

// Report summarizes one Apply call.
type Report struct {
	InvocationID string
	Moved        []MovedFile
	BytesMoved   int64
}

// MovedFile records one completed move, kept so a failure partway through
// the batch can roll every prior move back.
type MovedFile struct {
	From string
	To   string
}

// Applier performs plan application against the real filesystem.
type Applier struct {
	libraryRoot string
	writer      TagWriter
	store       *statestore.Store
	log         *logger.Logger
}

func New(libraryRoot string, writer TagWriter, store *statestore.Store, log *logger.Logger) *Applier {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Applier{libraryRoot: libraryRoot, writer: writer, store: store, log: log}
}

// Apply writes plan's tag patches and moves every track to its destination
// under the library root. On any failure it rolls back every file already
// moved in this call and returns a wrapped ErrApplyPartial, leaving the
// directory's state untouched so a retry is safe. On success it
// transitions the directory to APPLIED.
func (a *Applier) Apply(plan planner.Plan, patches []tagpatch.Patch, dryRun bool) (Report, error) {
	if len(patches) != len(plan.Tracks) {
		return Report{}, fmt.Errorf("%w: applier: %d patches for %d planned tracks", errs.ErrInvalidInput, len(patches), len(plan.Tracks))
	}

	report := Report{InvocationID: uuid.NewString()}

	if err := a.stageConflictCheck(plan); err != nil {
		return Report{}, err
	}

	if dryRun {
		a.log.Infof("dry run: would apply %d tracks for %s", len(plan.Tracks), plan.DirID)
		return report, nil
	}

	for i, tp := range plan.Tracks {
		if err := a.writer.WriteTags(tp.SourcePath, patches[i]); err != nil {
			a.rollback(report)
			return Report{}, fmt.Errorf("%w: writing tags for %s: %v", errs.ErrApplyPartial, tp.SourcePath, err)
		}

		dest := filepath.Join(a.libraryRoot, tp.DestPath)
		if err := a.moveFile(tp.SourcePath, dest); err != nil {
			a.rollback(report)
			return Report{}, fmt.Errorf("%w: moving %s to %s: %v", errs.ErrApplyPartial, tp.SourcePath, dest, err)
		}

		size, _ := fileSize(dest)
		report.BytesMoved += size
		report.Moved = append(report.Moved, MovedFile{From: tp.SourcePath, To: dest})
	}

	if a.store != nil {
		if err := a.store.SetState(plan.DirID, statestore.StateApplied, statestore.SetStateOpts{
			PlannedDestPath: filepath.Join(a.libraryRoot, plan.AlbumFolder),
		}); err != nil {
			a.rollback(report)
			return Report{}, fmt.Errorf("%w: recording APPLIED state: %v", errs.ErrApplyPartial, err)
		}
	}

	return report, nil
}

// stageConflictCheck verifies every planned destination is either free or
// already occupied by its own source file, before any mutation happens.
// Planning already de-duplicates destinations within the same plan; this
// catches collisions against files already present in the library.
func (a *Applier) stageConflictCheck(plan planner.Plan) error {
	for _, tp := range plan.Tracks {
		dest := filepath.Join(a.libraryRoot, tp.DestPath)
		if dest == tp.SourcePath {
			continue
		}
		if _, err := os.Stat(dest); err == nil {
			return fmt.Errorf("%w: destination %s already exists", errs.ErrPlanningConflict, dest)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("%w: statting destination %s: %v", errs.ErrFilesystemDenied, dest, err)
		}
	}
	return nil
}

// moveFile renames src to dst, creating parent directories as needed. If
// the two paths are on different filesystems os.Rename fails with
// EXDEV; moveFile then falls back to copying into a temp sibling of dst,
// fsyncing it, renaming it onto dst and unlinking the source, so a cross-
// device library layout still works atomically from the reader's
// perspective (dst never appears half-written, and the source only
// disappears after the destination is durably written).
func (a *Applier) moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: creating destination dir: %v", errs.ErrFilesystemDenied, err)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		return copyFsyncUnlink(src, dst)
	}
	return fmt.Errorf("%w: %v", errs.ErrFilesystemDenied, err)
}

func copyFsyncUnlink(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: opening source: %v", errs.ErrFilesystemDenied, err)
	}
	defer in.Close()

	tmp := dst + ".tmp-" + uuid.NewString()
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("%w: creating destination: %v", errs.ErrFilesystemDenied, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: copying: %v", errs.ErrFilesystemDenied, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: fsync: %v", errs.ErrFilesystemDenied, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: closing destination: %v", errs.ErrFilesystemDenied, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: renaming temp file onto destination: %v", errs.ErrFilesystemDenied, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("%w: removing source after copy: %v", errs.ErrFilesystemDenied, err)
	}
	return nil
}

// rollback moves every already-moved file in report back to its source
// path, best-effort: a rollback failure is logged, not returned, since the
// caller is already propagating the original failure.
func (a *Applier) rollback(report Report) {
	for i := len(report.Moved) - 1; i >= 0; i-- {
		m := report.Moved[i]
		if err := os.Rename(m.To, m.From); err != nil {
			a.log.Errorf("rollback: failed to move %s back to %s: %v", m.To, m.From, err)
		}
	}
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
