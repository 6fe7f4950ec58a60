package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aimsports/aim-backend/internal/config"
	"github.com/aimsports/aim-backend/internal/lib/logger/slogpretty"
	"github.com/aimsports/aim-backend/internal/storage/sqlite"

	correlationSrv "github.com/aimsports/aim-backend/internal/service/correlation"
	gameMatchSrv "github.com/aimsports/aim-backend/internal/service/gamematch"
	ingestSrv "github.com/aimsports/aim-backend/internal/service/ingest"
	statSrv "github.com/aimsports/aim-backend/internal/service/stat"
)

var errNoStorage = errors.New("storage path is not set, use --db or --config")

type options struct {
	dbPath      string
	configPath  string
	scopeToGame bool
	verbose     bool
}

// NewRootCmd builds aimctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "aimctl",
		Short:         "AIM backend admin tool",
		Long:          "Ingest possession spreadsheets and maintain clip links.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", os.Getenv("AIM_STORAGE_PATH"), "path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to server config file")
	rootCmd.PersistentFlags().BoolVar(&opts.scopeToGame, "scope-to-game", false, "link clips only to possessions of their game")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "print debug logs")

	rootCmd.AddCommand(newMigrateCmd(opts))
	rootCmd.AddCommand(newIngestCmd(opts))
	rootCmd.AddCommand(newGamesCmd(opts))
	rootCmd.AddCommand(newStatsCmd(opts))
	rootCmd.AddCommand(newLinkUploadsCmd(opts))
	rootCmd.AddCommand(newRelinkCmd(opts))
	rootCmd.AddCommand(newSetRangeCmd(opts))

	return rootCmd
}

// Execute runs aimctl.
func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolve fills unset options from the server config.
func (o *options) resolve() error {
	if o.configPath != "" {
		cfg := config.MustLoadPath(o.configPath)
		if o.dbPath == "" {
			o.dbPath = cfg.StoragePath
		}
		o.scopeToGame = o.scopeToGame || cfg.Correlation.ScopeToGame
	}

	if o.dbPath == "" {
		return errNoStorage
	}

	return nil
}

func (o *options) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}

	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: level,
		},
	}

	return slog.New(opts.NewPrettyHandler(os.Stderr))
}

type services struct {
	storage     *sqlite.Storage
	matcher     *gameMatchSrv.Matcher
	ingest      *ingestSrv.Ingest
	stat        *statSrv.Stat
	correlation *correlationSrv.Correlation
}

func (o *options) services() (*services, error) {
	if err := o.resolve(); err != nil {
		return nil, err
	}

	storage, err := sqlite.New(o.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	log := o.logger()
	matcher := gameMatchSrv.New(log, storage)

	return &services{
		storage:     storage,
		matcher:     matcher,
		ingest:      ingestSrv.New(log, storage, matcher),
		stat:        statSrv.New(log, storage),
		correlation: correlationSrv.New(log, storage, o.scopeToGame),
	}, nil
}

func (s *services) Close() error {
	return s.storage.Stop()
}
