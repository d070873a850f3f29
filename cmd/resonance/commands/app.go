// Package commands builds the cobra command tree for the resonance CLI
// and wires each subcommand to the core packages under internal/. No
// identification, planning, or apply logic lives here — this package is
// pure orchestration and flag plumbing, in the same thick-main style the
// ingest command uses.
package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/resonance-core/resonance/internal/acousticfp"
	"github.com/resonance-core/resonance/internal/config"
	"github.com/resonance-core/resonance/internal/errs"
	"github.com/resonance-core/resonance/internal/evidence"
	"github.com/resonance-core/resonance/internal/identifier"
	"github.com/resonance-core/resonance/internal/planner"
	"github.com/resonance-core/resonance/internal/providers"
	"github.com/resonance-core/resonance/internal/providers/discogs"
	"github.com/resonance-core/resonance/internal/providers/musicbrainz"
	"github.com/resonance-core/resonance/internal/statestore"
	"github.com/resonance-core/resonance/pkg/logger"
)

// globalFlags holds every persistent flag shared across subcommands.
type globalFlags struct {
	configPath     string
	stateDBPath    string
	libraryRoot    string
	tagWriter      string
	conflictPolicy string
	userAgent      string
	discogsToken   string
	discogsEnable  bool
}

var gf globalFlags

// NewRootCommand builds the resonance command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "resonance",
		Short:         "Identify and reorganize a music library",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&gf.configPath, "config", "", "path to settings.json (default ~/.config/resonance/settings.json)")
	root.PersistentFlags().StringVar(&gf.stateDBPath, "state-db", "resonance-state.db", "path to the directory-state sqlite database")
	root.PersistentFlags().StringVar(&gf.libraryRoot, "library-root", ".", "root directory the apply stage moves files under")
	root.PersistentFlags().StringVar(&gf.tagWriter, "tag-writer-backend", "", "override tag_writer_backend (meta-json|mutagen)")
	root.PersistentFlags().StringVar(&gf.conflictPolicy, "conflict-policy", "", "override plan_conflict_policy (FAIL)")
	root.PersistentFlags().StringVar(&gf.userAgent, "user-agent", "resonance/1.0 ( https://example.invalid )", "User-Agent sent to MusicBrainz")
	root.PersistentFlags().StringVar(&gf.discogsToken, "discogs-token", os.Getenv("DISCOGS_TOKEN"), "Discogs personal access token")
	root.PersistentFlags().BoolVar(&gf.discogsEnable, "discogs", false, "also query Discogs (requires --discogs-token)")

	root.AddCommand(
		newScanCommand(),
		newResolveCommand(),
		newPlanCommand(),
		newApplyCommand(),
		newRunCommand(),
		newPromptCommand(),
		newJailCommand(),
		newUnjailCommand(),
	)
	return root
}

// ExitCodeFor maps an error returned from Execute to the process exit
// code: 2 for invalid usage/settings, 1 for every other failure.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, errs.ErrInvalidInput) || errors.Is(err, errs.ErrUnsupportedSettings) {
		return 2
	}
	return 1
}

// app bundles the wired dependencies every subcommand needs.
type app struct {
	settings   config.Settings
	store      *statestore.Store
	client     identifier.ProviderClient
	extractor  evidence.Extractor
	thresholds identifier.Thresholds
	log        *logger.Logger
}

func buildApp() (*app, error) {
	log := logger.GetLogger()

	settings, err := config.Load(gf.configPath, config.Overrides{
		TagWriterBackend:   gf.tagWriter,
		PlanConflictPolicy: gf.conflictPolicy,
	})
	if err != nil {
		return nil, err
	}

	store, err := statestore.Open(gf.stateDBPath)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	named := []providers.NamedProvider{
		{Name: "musicbrainz", Client: musicbrainz.New(gf.userAgent)},
	}
	if gf.discogsEnable && gf.discogsToken != "" {
		named = append(named, providers.NamedProvider{Name: "discogs", Client: discogs.New(gf.discogsToken, gf.userAgent)})
	}
	client := providers.NewCombinedProviderClient(named, providers.DefaultPriority, log)

	return &app{
		settings:   settings,
		store:      store,
		client:     client,
		extractor:  evidence.NewExtractor(acousticfp.NewReader()),
		thresholds: identifier.DefaultThresholds(),
		log:        log,
	}, nil
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

func (a *app) plannerConfig() planner.Config {
	cfg := planner.DefaultConfig()
	return cfg
}
