package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/alejandrodnm/carfair/config"
	"github.com/alejandrodnm/carfair/internal/adapters/csvsource"
	"github.com/alejandrodnm/carfair/internal/adapters/notify"
	"github.com/alejandrodnm/carfair/internal/adapters/remote"
	"github.com/alejandrodnm/carfair/internal/adapters/storage"
	"github.com/alejandrodnm/carfair/internal/application/evaluator"
	"github.com/alejandrodnm/carfair/internal/ports"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config/config.yaml"

// app guarda los flags globales y la configuración ya cargada.
type app struct {
	configPath string
	verbose    bool
	logFormat  string
	dataset    string
	dsn        string
	compact    bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "carfair",
		Short:         "Fair-price scoring for used-car listings",
		Long:          "carfair compares an asking price with similar listings (brand, model, condition, mileage) and reports a 0-100 fairness score, a verdict and a fair price range.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", defaultConfigPath, "path to config file")
	f.BoolVar(&a.verbose, "verbose", false, "set log level to debug")
	f.StringVar(&a.logFormat, "format", "", "log format: text|json (overrides config)")
	f.StringVar(&a.dataset, "dataset", "", "listings CSV (overrides config; empty = stored listings)")
	f.StringVar(&a.dsn, "dsn", "", "storage DSN (overrides config)")
	f.BoolVar(&a.compact, "compact", false, "one line per result instead of tables")

	root.AddCommand(
		newImportCmd(a),
		newEvaluateCmd(a),
		newBatchCmd(a),
		newInsightsCmd(a),
		newBrandCmd(a),
		newTrendsCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
	)
	return root
}

// init carga la configuración, aplica los flags y configura el logger.
func (a *app) init(cmd *cobra.Command) error {
	path := a.configPath
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = "" // sin fichero: entorno + defaults
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.dataset != "" {
		cfg.Dataset.Path = a.dataset
	}
	if a.dsn != "" {
		cfg.Storage.DSN = a.dsn
	}
	setupLogger(cfg.Log)
	a.cfg = cfg

	slog.Debug("carfair starting",
		"command", cmd.Name(),
		"config", path,
		"storage_driver", cfg.Storage.Driver,
		"dataset", cfg.Dataset.Path,
	)
	return nil
}

func (a *app) openStore() (*storage.SQLStorage, error) {
	store, err := storage.Open(a.cfg.Storage.Driver, a.cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return store, nil
}

// newService carga el snapshot (CSV local o remoto si hay dataset configurado,
// si no la tabla listings del store) y monta el evaluador.
func (a *app) newService(ctx context.Context, store *storage.SQLStorage) (*evaluator.Service, error) {
	var src ports.ListingSource = store
	switch path := a.cfg.Dataset.Path; {
	case remote.IsURL(path):
		src = remote.NewSource(path)
	case path != "":
		src = csvsource.New(path)
	}

	ds, err := evaluator.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		slog.Warn("dataset is empty: run `carfair import <file.csv>` or pass --dataset")
	}
	return evaluator.New(evaluator.Config{BatchWorkers: a.cfg.Evaluator.BatchWorkers}, ds, store), nil
}

func (a *app) reporter(cmd *cobra.Command) ports.Reporter {
	return notify.NewConsoleWriter(cmd.OutOrStdout(), !a.compact)
}

// withService abre el store, carga el dataset y ejecuta fn. Cierra el store al final.
func (a *app) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *evaluator.Service) error) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := a.newService(cmd.Context(), store)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), svc)
}
