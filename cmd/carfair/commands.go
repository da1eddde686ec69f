package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alejandrodnm/carfair/internal/adapters/csvsource"
	"github.com/alejandrodnm/carfair/internal/adapters/httpapi"
	"github.com/alejandrodnm/carfair/internal/adapters/remote"
	"github.com/alejandrodnm/carfair/internal/application/evaluator"
	"github.com/alejandrodnm/carfair/internal/domain"
	"github.com/alejandrodnm/carfair/internal/ports"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <listings.csv|url>",
		Short: "Validate a listings CSV and replace the stored dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			var src ports.ListingSource = csvsource.New(args[0])
			if remote.IsURL(args[0]) {
				src = remote.NewSource(args[0])
			}
			listings, err := src.LoadListings(cmd.Context())
			if err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			prev, err := store.CountListings(cmd.Context())
			if err != nil {
				return err
			}
			n, err := store.ReplaceListings(cmd.Context(), listings)
			if err != nil {
				return err
			}
			slog.Info("dataset imported",
				"file", args[0],
				"listings", n,
				"replaced", prev,
				"elapsed", time.Since(start).Round(time.Millisecond),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s listings from %s (replaced %s)\n",
				humanize.Comma(int64(n)), args[0], humanize.Comma(int64(prev)))
			return nil
		},
	}
}

func newEvaluateCmd(a *app) *cobra.Command {
	var (
		brand, model, condition string
		mileage                 int
		price                   float64
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score an asking price against similar listings",
		Example: `  carfair evaluate --brand Toyota --model Vios --mileage 50000 --price 450000000
  carfair evaluate --brand Kia --model Morning --condition new --mileage 0 --price 380000000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cond := domain.ConditionForMileage(mileage)
			if condition != "" {
				var err error
				if cond, err = domain.ParseCondition(condition); err != nil {
					return err
				}
			}
			q := domain.Query{Brand: brand, Model: model, Condition: cond, Mileage: mileage}

			return a.withService(cmd, func(ctx context.Context, svc *evaluator.Service) error {
				ev, err := svc.Evaluate(ctx, q, price)
				if err != nil {
					return err
				}
				return a.reporter(cmd).ReportEvaluation(ctx, ev)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&brand, "brand", "", "car brand, e.g. Toyota")
	f.StringVar(&model, "model", "", "car model, e.g. Vios")
	f.StringVar(&condition, "condition", "", "new|used (default: new if mileage is 0)")
	f.IntVar(&mileage, "mileage", 0, "odometer reading in km")
	f.Float64Var(&price, "price", 0, "asking price in VND")
	_ = cmd.MarkFlagRequired("brand")
	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "batch <queries.csv>",
		Short: "Score every row of a CSV (brand,model,condition,mileage,price) in parallel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			items, err := csvsource.ParseQueries(cmd.Context(), f)
			if err != nil {
				return err
			}

			return a.withService(cmd, func(ctx context.Context, svc *evaluator.Service) error {
				results := svc.EvaluateBatch(ctx, items)
				return a.reporter(cmd).ReportBatch(ctx, results)
			})
		},
	}
}

func newInsightsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Market overview: prices, top brands and models, fuel/gearbox/condition mix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *evaluator.Service) error {
				return a.reporter(cmd).ReportOverview(ctx, svc.Overview())
			})
		},
	}
}

func newBrandCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "brand <name>",
		Short: "Brand summary: prices, popular models, condition and fuel mix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *evaluator.Service) error {
				bi, err := svc.Brand(args[0])
				if err != nil {
					return err
				}
				return a.reporter(cmd).ReportBrand(ctx, bi)
			})
		},
	}
}

func newTrendsCmd(a *app) *cobra.Command {
	var brand, model string
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Monthly average price of a model over its last 6 listed months",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *evaluator.Service) error {
				tr, err := svc.Trends(brand, model)
				if err != nil {
					return err
				}
				return a.reporter(cmd).ReportTrends(ctx, tr)
			})
		},
	}
	cmd.Flags().StringVar(&brand, "brand", "", "car brand")
	cmd.Flags().StringVar(&model, "model", "", "car model")
	_ = cmd.MarkFlagRequired("brand")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var since time.Duration
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored evaluations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			// history solo lee el store: no hace falta cargar el dataset.
			svc := evaluator.New(evaluator.Config{}, nil, store)
			to := time.Now().UTC()
			evs, err := svc.History(cmd.Context(), to.Add(-since), to)
			if err != nil {
				return err
			}
			return a.reporter(cmd).ReportHistory(cmd.Context(), evs)
		},
	}
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "how far back to look")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}
			return a.withService(cmd, func(ctx context.Context, svc *evaluator.Service) error {
				srv := httpapi.New(httpapi.Config{
					Addr:            a.cfg.HTTP.Addr,
					RatePerSec:      a.cfg.HTTP.RatePerSec,
					Burst:           a.cfg.HTTP.Burst,
					ShutdownTimeout: a.cfg.ShutdownTimeout(),
				}, svc)
				if err := srv.Run(ctx); err != nil {
					return err
				}
				slog.Info("carfair stopped cleanly")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
