// Package statestore persists DirectoryRecord rows — the sole source of
// truth for which directories have already been resolved and must never be
// re-matched. GetOrCreate and SetState (and Jail/Unjail, through SetState)
// write inside a GORM transaction so a crash mid-write never leaves a
// half-applied state transition behind; SetReasons is a single UPDATE.
package statestore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultDBFile is the state database's default filename when no path is
// given explicitly (the CLI's --state-db flag normally overrides this).
const DefaultDBFile = "resonance-state.sqlite3"

// DirectoryState is the finite state machine driving resolve/plan/apply.
type DirectoryState string

const (
	StateNew           DirectoryState = "NEW"
	StateQueuedPrompt  DirectoryState = "QUEUED_PROMPT"
	StateResolvedAuto  DirectoryState = "RESOLVED_AUTO"
	StateResolvedUser  DirectoryState = "RESOLVED_USER"
	StatePlanned       DirectoryState = "PLANNED"
	StateApplied       DirectoryState = "APPLIED"
	StateJailed        DirectoryState = "JAILED"
)

// DirectoryRecord is the persisted row for one directory identity. DirID is
// the primary key — it is the content-addressed identity computed by
// internal/signature, never a path (paths move; dir_id doesn't).
type DirectoryRecord struct {
	DirID            string `gorm:"primaryKey;column:dir_id"`
	Path             string `gorm:"index"`
	SignatureHash    string
	SignatureVersion int
	State            DirectoryState `gorm:"index"`
	PinnedProvider   string
	PinnedReleaseID  string
	PinnedConfidence float64
	ScoringVersion   string
	Reasons          string // newline-joined; reasons are diagnostic, never parsed back
	PlannedDestPath  string
	AppliedAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (DirectoryRecord) TableName() string { return "directory_records" }

// Store wraps a GORM handle over the state database.
type Store struct {
	db *gorm.DB
	rw *sql.DB
}

// Open opens (creating if absent) the state database at path and migrates
// its schema.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultDBFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("statestore: creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("statestore: opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("statestore: getting sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1) // a single writer keeps sqlite transaction semantics simple
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&DirectoryRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("statestore: auto migrate: %w", err)
	}

	return &Store{db: db, rw: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.rw == nil {
		return nil
	}
	return s.rw.Close()
}

// GetOrCreate returns the existing record for dirID, creating a fresh NEW
// record if none exists yet. If an existing record's signature_hash
// differs from the one supplied, the record is reset to NEW — a changed
// signature is the only path back out of a resolved/applied state.
func (s *Store) GetOrCreate(dirID, path, signatureHash string, signatureVersion int) (DirectoryRecord, error) {
	var rec DirectoryRecord
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("dir_id = ?", dirID).First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = DirectoryRecord{
				DirID:            dirID,
				Path:             path,
				SignatureHash:    signatureHash,
				SignatureVersion: signatureVersion,
				State:            StateNew,
			}
			return tx.Create(&rec).Error
		case err != nil:
			return err
		}

		changed := false
		if rec.SignatureHash != signatureHash {
			rec.SignatureHash = signatureHash
			rec.SignatureVersion = signatureVersion
			rec.State = StateNew
			rec.PinnedProvider = ""
			rec.PinnedReleaseID = ""
			rec.PinnedConfidence = 0
			rec.ScoringVersion = ""
			rec.PlannedDestPath = ""
			rec.AppliedAt = nil
			changed = true
		}
		if rec.Path != path {
			rec.Path = path
			changed = true
		}
		if changed {
			return tx.Save(&rec).Error
		}
		return nil
	})
	if err != nil {
		return DirectoryRecord{}, fmt.Errorf("statestore: get_or_create: %w", err)
	}
	return rec, nil
}

// Get returns the current record for dirID.
func (s *Store) Get(dirID string) (DirectoryRecord, error) {
	var rec DirectoryRecord
	if err := s.db.Where("dir_id = ?", dirID).First(&rec).Error; err != nil {
		return DirectoryRecord{}, err
	}
	return rec, nil
}

// SetStateOpts carries the optional pin fields a state transition may set.
type SetStateOpts struct {
	PinnedProvider   string
	PinnedReleaseID  string
	PinnedConfidence float64
	ScoringVersion   string
	PlannedDestPath  string
}

// SetState transitions dirID to newState inside a transaction, applying
// any pin fields given in opts. Callers (the resolver, planner, applier)
// are responsible for only requesting transitions the state diagram
// allows; SetState itself does not validate the transition graph because
// that validation depends on call-site context the store doesn't have.
func (s *Store) SetState(dirID string, newState DirectoryState, opts SetStateOpts) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var rec DirectoryRecord
		if err := tx.Where("dir_id = ?", dirID).First(&rec).Error; err != nil {
			return fmt.Errorf("statestore: set_state: %w", err)
		}
		rec.State = newState
		if opts.PinnedProvider != "" {
			rec.PinnedProvider = opts.PinnedProvider
		}
		if opts.PinnedReleaseID != "" {
			rec.PinnedReleaseID = opts.PinnedReleaseID
		}
		if opts.PinnedConfidence != 0 {
			rec.PinnedConfidence = opts.PinnedConfidence
		}
		if opts.ScoringVersion != "" {
			rec.ScoringVersion = opts.ScoringVersion
		}
		if opts.PlannedDestPath != "" {
			rec.PlannedDestPath = opts.PlannedDestPath
		}
		if newState == StateApplied {
			now := time.Now()
			rec.AppliedAt = &now
		}
		return tx.Save(&rec).Error
	})
}

// SetReasons overwrites the diagnostic reasons trail for dirID.
func (s *Store) SetReasons(dirID string, reasons []string) error {
	joined := ""
	for i, r := range reasons {
		if i > 0 {
			joined += "\n"
		}
		joined += r
	}
	return s.db.Model(&DirectoryRecord{}).Where("dir_id = ?", dirID).Update("reasons", joined).Error
}

// Jail marks dirID JAILED, removing it from automatic resolution until
// explicitly unjailed.
func (s *Store) Jail(dirID string) error {
	return s.SetState(dirID, StateJailed, SetStateOpts{})
}

// Unjail moves dirID from JAILED back to NEW so it re-enters resolution.
func (s *Store) Unjail(dirID string) error {
	rec, err := s.Get(dirID)
	if err != nil {
		return fmt.Errorf("statestore: unjail: %w", err)
	}
	if rec.State != StateJailed {
		return fmt.Errorf("statestore: unjail: directory %s is not jailed (state=%s)", dirID, rec.State)
	}
	return s.SetState(dirID, StateNew, SetStateOpts{})
}

// ListByState returns every record currently in the given state, ordered
// by dir_id for deterministic iteration.
func (s *Store) ListByState(state DirectoryState) ([]DirectoryRecord, error) {
	var recs []DirectoryRecord
	if err := s.db.Where("state = ?", state).Order("dir_id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("statestore: list_by_state: %w", err)
	}
	return recs, nil
}
