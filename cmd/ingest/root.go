package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/milavdabgar/gpp-ingest/internal/config"
	"github.com/milavdabgar/gpp-ingest/internal/ingest"
	"github.com/milavdabgar/gpp-ingest/internal/logging"
	"github.com/milavdabgar/gpp-ingest/internal/store"
	"github.com/milavdabgar/gpp-ingest/internal/store/memory"
	"github.com/milavdabgar/gpp-ingest/internal/store/mongo"
	"github.com/milavdabgar/gpp-ingest/internal/store/postgres"
)

// annotationOffline marks commands that need neither configuration nor a store.
const annotationOffline = "offline"

// app is the state shared by every subcommand.
type app struct {
	envFile     string
	metricsFile string
	jsonOut     bool

	cfg   *config.Config
	store store.Store
	svc   *ingest.Service
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ingest",
		Short:         "Bulk import of student rosters and exam results",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationOffline] == "true" {
				logging.Setup("info", "text")
				return nil
			}
			return a.setup()
		},
	}

	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Dotenv file read before the environment (missing file is ignored)")
	cmd.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the command (overrides METRICS_TEXTFILE)")
	cmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Print results as JSON instead of tables")

	cmd.AddCommand(newResultsCmd(a))
	cmd.AddCommand(newStudentsCmd(a))
	cmd.AddCommand(newBatchesCmd(a))
	cmd.AddCommand(newTemplateCmd(a))
	cmd.AddCommand(newMigrateCmd(a))
	return cmd
}

// Execute runs the root command and exits with a status derived from the error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()

	if err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, color.RedString("error: %s", describeError(err)))
		os.Exit(code)
	}
}

// run executes the command line in args. Teardown happens whether or not the
// command failed, so failed runs still close the store and leave metrics.
func run(ctx context.Context, args []string) error {
	a := &app{}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if terr := a.teardown(ctx); terr != nil {
		if err == nil {
			return terr
		}
		logrus.WithError(terr).Warn("teardown after failed command")
	}
	return err
}

func (a *app) setup() error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return withCode(exitUsage, err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if a.metricsFile == "" {
		a.metricsFile = cfg.Metrics.TextfilePath
	}
	a.cfg = cfg

	logrus.WithField("config", cfg.String()).Debug("configuration loaded")
	return nil
}

// service opens the configured store on first use and returns a service over it.
func (a *app) service(ctx context.Context) (*ingest.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	st, err := openStore(ctx, a.cfg)
	if err != nil {
		return nil, withCode(exitDB, err)
	}
	a.store = st
	a.svc = ingest.NewService(st, ingest.Options{
		SubBatchSize:       a.cfg.Ingest.SubBatchSize,
		InstitutionDomain:  a.cfg.Ingest.InstitutionDomain,
		DefaultMaxSemester: a.cfg.Ingest.DefaultMaxSemester,
		AllocatorRetries:   a.cfg.Ingest.AllocatorRetries,
		BatchListLimit:     a.cfg.Ingest.BatchListLimit,
		MaxFileSize:        a.cfg.Ingest.MaxFileSize,
		MaxConcurrentRuns:  a.cfg.Ingest.MaxConcurrentRuns,
		MaxWait:            a.cfg.Ingest.MaxWait,
	})
	return a.svc, nil
}

// runContext bounds a run with the configured timeout.
func (a *app) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Ingest.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Ingest.Timeout)
	}
	return context.WithCancel(ctx)
}

func (a *app) teardown(ctx context.Context) error {
	if a.store != nil {
		if err := a.store.Close(context.WithoutCancel(ctx)); err != nil {
			logrus.WithError(err).Warn("closing store")
		}
	}
	if a.metricsFile != "" {
		if err := prometheus.WriteToTextfile(a.metricsFile, prometheus.DefaultGatherer); err != nil {
			return withCode(exitFailure, fmt.Errorf("write metrics: %w", err))
		}
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		logrus.Warn("memory backend: nothing is kept after the command exits")
		return memory.New(), nil
	case config.BackendMongo:
		st, err := mongo.Open(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		logrus.WithField("database", cfg.Mongo.Database).Info("connected to mongo")
		return st, nil
	default:
		st, err := postgres.Open(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		logrus.Info("connected to postgres")
		return st, nil
	}
}
