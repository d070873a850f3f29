// Package config loads and resolves resonance's settings: tag writer
// backend, identify scoring version, and plan conflict policy. Precedence
// is CLI flag > environment variable > config file > built-in default,
// enforced by layering a viper instance rather than hand-written
// if/else chains.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/viper"

	"github.com/resonance-core/resonance/internal/errs"
)

const (
	defaultTagWriterBackend     = "meta-json"
	defaultIdentifyScoringVersion = "v1"
	defaultConflictPolicy       = "FAIL"
)

var allowedTagWriterBackends = map[string]bool{"meta-json": true, "mutagen": true}

// allowedConflictPolicies lists every policy that PARSES. RENAME parses
// but is rejected in Load — see the Open Question resolution in DESIGN.md.
var allowedConflictPolicies = map[string]bool{"FAIL": true, "RENAME": true}
var implementedConflictPolicies = map[string]bool{"FAIL": true}

// Settings is the fully resolved configuration for one invocation.
type Settings struct {
	TagWriterBackend       string
	IdentifyScoringVersion string
	PlanConflictPolicy     string
}

// Overrides carries the CLI-flag-level values, which always win over
// environment, file, and default. A zero value means "not set on the CLI".
type Overrides struct {
	TagWriterBackend   string
	PlanConflictPolicy string
}

// DefaultConfigPath is where the config file lives when none is given
// explicitly, mirroring the original's ~/.config/resonance/settings.json.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".resonance", "settings.json")
	}
	return filepath.Join(home, ".config", "resonance", "settings.json")
}

// Load resolves Settings from configPath (may not exist — defaults apply),
// the RESONANCE_* environment variables, and overrides, in that precedence
// order (overrides win). It returns an error wrapping
// errs.ErrUnsupportedSettings for any value that parses but isn't
// implemented.
func Load(configPath string, overrides Overrides) (Settings, error) {
	v := viper.New()
	v.SetDefault("tag_writer_backend", defaultTagWriterBackend)
	v.SetDefault("identify_scoring_version", defaultIdentifyScoringVersion)
	v.SetDefault("plan_conflict_policy", defaultConflictPolicy)

	v.SetEnvPrefix("RESONANCE")
	v.AutomaticEnv()

	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return Settings{}, fmt.Errorf("config: stat %s: %w", configPath, err)
	}

	if overrides.TagWriterBackend != "" {
		v.Set("tag_writer_backend", overrides.TagWriterBackend)
	}
	if overrides.PlanConflictPolicy != "" {
		v.Set("plan_conflict_policy", overrides.PlanConflictPolicy)
	}

	s := Settings{
		TagWriterBackend:       v.GetString("tag_writer_backend"),
		IdentifyScoringVersion: v.GetString("identify_scoring_version"),
		PlanConflictPolicy:     v.GetString("plan_conflict_policy"),
	}

	if !allowedTagWriterBackends[s.TagWriterBackend] {
		return Settings{}, fmt.Errorf("%w: tag_writer_backend %q", errs.ErrUnsupportedSettings, s.TagWriterBackend)
	}
	if !allowedConflictPolicies[s.PlanConflictPolicy] {
		return Settings{}, fmt.Errorf("%w: plan_conflict_policy %q", errs.ErrUnsupportedSettings, s.PlanConflictPolicy)
	}
	if !implementedConflictPolicies[s.PlanConflictPolicy] {
		return Settings{}, fmt.Errorf("%w: plan_conflict_policy %q is recognized but not implemented", errs.ErrUnsupportedSettings, s.PlanConflictPolicy)
	}

	return s, nil
}

// Stage identifies which pipeline stage a settings_hash is computed for —
// each stage only hashes the subset of settings relevant to it, so an
// unrelated settings change doesn't invalidate another stage's cache.
type Stage string

const (
	StageIdentify Stage = "identify"
	StagePlan     Stage = "plan"
	StageApply    Stage = "apply"
)

// relevantFields returns s's fields relevant to stage, as a
// sorted-by-key map ready for canonical JSON serialization.
func relevantFields(s Settings, stage Stage) map[string]string {
	switch stage {
	case StageIdentify:
		return map[string]string{"identify_scoring_version": s.IdentifyScoringVersion}
	case StagePlan:
		return map[string]string{"plan_conflict_policy": s.PlanConflictPolicy}
	case StageApply:
		return map[string]string{"tag_writer_backend": s.TagWriterBackend}
	default:
		return map[string]string{}
	}
}

// SettingsHash hashes only the settings fields relevant to stage, using
// canonical (sorted-key, tight-separator) JSON, so unrelated settings
// changes never invalidate a stage's cached artifacts.
func SettingsHash(s Settings, stage Stage) string {
	fields := relevantFields(s, stage)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}, len(keys))
	for i, k := range keys {
		ordered[i].Key = k
		ordered[i].Value = fields[k]
	}

	b, err := json.Marshal(ordered)
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
