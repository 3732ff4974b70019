// Package main provides the paddock command line: incremental standings
// sync, season analytics and the scheduled re-sync service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/paddock/internal/analytics"
	"github.com/yourusername/paddock/internal/config"
	"github.com/yourusername/paddock/internal/datasource"
	"github.com/yourusername/paddock/internal/health"
	applogger "github.com/yourusername/paddock/internal/logger"
	"github.com/yourusername/paddock/internal/metrics"
	"github.com/yourusername/paddock/internal/models"
	"github.com/yourusername/paddock/internal/repository"
	"github.com/yourusername/paddock/internal/scheduler"
	"github.com/yourusername/paddock/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile  string
	season      string
	kind        string
	runOnStart  bool
	logger      *logrus.Logger
	cfg         *config.Config
	source      *datasource.ErgastClient
	repos       *repository.Repositories
	coordinator *service.SyncCoordinator
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&season, "season", "s", "", "Season year (defaults to sync.season, then the current year)")
	syncCmd.Flags().StringVarP(&kind, "kind", "k", string(models.EntityDriver), "Entity kind: driver or constructor")
	evolutionCmd.Flags().StringVarP(&kind, "kind", "k", string(models.EntityDriver), "Entity kind: driver or constructor")
	serveCmd.Flags().BoolVar(&runOnStart, "run-on-start", true, "Run one re-sync pass before the first scheduled one")
}

var rootCmd = &cobra.Command{
	Use:           "paddock",
	Short:         "Championship standings sync and season analytics",
	Long:          `Incrementally cache per-round championship standings and derive season statistics from a public results API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case versionCmd.Name(), "help":
			return nil
		}
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(cmd.Context()); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if repos != nil {
			return repos.Close()
		}
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync <entity-id>",
	Short: "Bring the cached standings of one driver or constructor up to date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entity, err := entityRef(kind, args[0])
		if err != nil {
			return err
		}
		res, err := coordinator.Sync(cmd.Context(), resolveSeason(), entity)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), syncOutput{
			Outcome: res.Progress.Outcome(),
			Stale:   res.Progress.StaleReason,
			Series:  res.Series,
		})
	},
}

var lapsLedCmd = &cobra.Command{
	Use:   "laps-led <driver-id>",
	Short: "Show laps led per round, most recent first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := coordinator.LapsLed(cmd.Context(), resolveSeason(), args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), res)
	},
}

var evolutionCmd = &cobra.Command{
	Use:   "evolution",
	Short: "Show the whole-field standings position per round",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		k := models.EntityKind(kind)
		if !k.Valid() {
			return fmt.Errorf("invalid entity kind %q", kind)
		}
		svc := service.NewSeasonService(source, aggregationOptions(cfg.Aggregation), cfg.Sync.RoundInterval, component("season"))
		report, err := svc.StandingsEvolution(cmd.Context(), resolveSeason(), k)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), report)
	},
}

var seasonCmd = &cobra.Command{
	Use:   "season",
	Short: "Aggregate season statistics, points matrices and distributions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := service.NewSeasonService(source, aggregationOptions(cfg.Aggregation), cfg.Sync.RoundInterval, component("season"))
		report, err := svc.Summary(cmd.Context(), resolveSeason())
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), report)
	},
}

var compareCmd = &cobra.Command{
	Use:   "compare <driver-a> <driver-b>",
	Short: "Compare two drivers head to head within a season",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := service.NewComparisonService(source, component("comparison"))
		cmp, err := svc.CompareDrivers(cmd.Context(), resolveSeason(), args[0], args[1])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), cmp)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Re-sync tracked entities on a schedule and serve health and metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "paddock %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

type syncOutput struct {
	Outcome string                  `json:"outcome"`
	Stale   string                  `json:"stale_reason,omitempty"`
	Series  *models.EvolutionSeries `json:"series"`
}

func main() {
	rootCmd.AddCommand(syncCmd, lapsLedCmd, evolutionCmd, seasonCmd, compareCmd, serveCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	return config.Validate(cfg)
}

func setupDependencies(ctx context.Context) error {
	logger = applogger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	metrics.InitRegistry()

	var err error
	source, err = datasource.NewFactory(cfg, component("datasource")).NewResultsSource()
	if err != nil {
		return fmt.Errorf("failed to create results source: %w", err)
	}

	repos, err = repository.NewRepositories(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	coordinator = service.NewSyncCoordinator(source, repos.Rounds, service.SyncConfig{
		RoundInterval: cfg.Sync.RoundInterval,
		TrackLapsLed:  cfg.Sync.TrackLapsLed,
	}, component("sync"))

	logger.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"backend":     repos.Rounds.Backend(),
		"upstream":    source.Name(),
	}).Debug("Dependencies initialized")

	return nil
}

func serve(ctx context.Context) error {
	if cfg.Sync.Schedule == "" {
		return fmt.Errorf("sync.schedule is required to serve")
	}
	entities := scheduler.TrackedEntities(cfg.Sync.Drivers, cfg.Sync.Constructors)
	s := resolveSeason()

	sched := scheduler.NewScheduler(coordinator, component("scheduler"))
	if err := sched.ScheduleResync(cfg.Sync.Schedule, s, entities); err != nil {
		return err
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        strconv.Itoa(cfg.Metrics.Port),
		MetricsPath: cfg.Metrics.Path,
		Logger:      component("health"),
		Store:       repos,
		Sync:        sched,
	})
	if cfg.Metrics.Enabled {
		if err := healthServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
	}

	if runOnStart {
		sched.RunOnce(ctx, s, entities)
	}

	if err := sched.Start(); err != nil {
		return err
	}
	healthServer.SetReady(true)

	logger.WithFields(logrus.Fields{
		"season":   s,
		"entities": len(entities),
		"schedule": cfg.Sync.Schedule,
		"next_run": sched.GetNextRun(),
	}).Info("Paddock re-sync service started")

	<-ctx.Done()
	logger.Info("Shutdown signal received")
	healthServer.SetReady(false)

	if err := sched.Stop(); err != nil {
		logger.WithError(err).Error("Error during scheduler shutdown")
	}
	if err := healthServer.Shutdown(); err != nil {
		logger.WithError(err).Error("Error during health server shutdown")
	}
	return nil
}

func component(name string) *logrus.Entry {
	return applogger.Component(logger, name)
}

func resolveSeason() string {
	if season != "" {
		return season
	}
	if cfg != nil && cfg.Sync.Season != "" {
		return cfg.Sync.Season
	}
	return strconv.Itoa(time.Now().UTC().Year())
}

func entityRef(kind, id string) (models.EntityRef, error) {
	ref := models.EntityRef{Kind: models.EntityKind(kind), ID: id}
	if err := ref.Validate(); err != nil {
		return models.EntityRef{}, err
	}
	return ref, nil
}

// aggregationOptions converts configured bucket edges to decimals; empty
// settings keep the defaults.
func aggregationOptions(agg config.AggregationConfig) analytics.Options {
	opts := analytics.DefaultOptions()
	if agg.PointsFinishPolicy != "" {
		opts.PointsFinish = analytics.PointsFinishPolicy(agg.PointsFinishPolicy)
	}
	if len(agg.DistributionEdges) > 0 {
		edges := make([]decimal.Decimal, len(agg.DistributionEdges))
		for i, e := range agg.DistributionEdges {
			edges[i] = decimal.NewFromFloat(e)
		}
		opts.DistributionEdges = edges
	}
	return opts
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
