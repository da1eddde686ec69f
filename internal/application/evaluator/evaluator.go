package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/carfair/internal/domain"
	"github.com/alejandrodnm/carfair/internal/ports"
	"github.com/google/uuid"
)

// Config contiene la configuración del evaluador.
type Config struct {
	BatchWorkers int // goroutines para EvaluateBatch (0 = NumCPU*2)
}

// Service expone el motor de precio justo y los informes de mercado sobre un
// snapshot inmutable del dataset. Seguro para uso concurrente.
type Service struct {
	cfg   Config
	ds    *domain.Dataset
	store ports.EvaluationStore // opcional: nil = no se persisten evaluaciones
	now   func() time.Time
}

// New crea un Service con el dataset y el store inyectados.
func New(cfg Config, ds *domain.Dataset, store ports.EvaluationStore) *Service {
	if ds == nil {
		ds = domain.NewDataset(nil)
	}
	return &Service{cfg: cfg, ds: ds, store: store, now: time.Now}
}

// Load construye el snapshot desde una fuente de anuncios.
func Load(ctx context.Context, src ports.ListingSource) (*domain.Dataset, error) {
	start := time.Now()
	listings, err := src.LoadListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("evaluator.Load: %w", err)
	}
	ds := domain.NewDataset(listings)
	slog.Info("dataset loaded", "listings", ds.Len(), "elapsed", time.Since(start).Round(time.Millisecond))
	return ds, nil
}

// DatasetSize devuelve el número de anuncios del snapshot.
func (s *Service) DatasetSize() int {
	return s.ds.Len()
}

// Select devuelve la cohorte comparable a la query.
func (s *Service) Select(q domain.Query) (domain.Cohort, error) {
	return domain.SelectCohort(s.ds, q)
}

// Score puntúa un precio contra una cohorte ya seleccionada.
func (s *Service) Score(c domain.Cohort, price float64) (domain.FairnessResult, error) {
	return domain.Score(c, price)
}

// Evaluate valida la query, selecciona la cohorte, puntúa el precio y persiste
// la evaluación si hay store. Un fallo del store no invalida el resultado.
func (s *Service) Evaluate(ctx context.Context, q domain.Query, price float64) (domain.Evaluation, error) {
	if err := q.Validate(price); err != nil {
		return domain.Evaluation{}, err
	}

	cohort, err := s.Select(q)
	if err != nil {
		return domain.Evaluation{}, err
	}
	res, err := s.Score(cohort, price)
	if err != nil {
		return domain.Evaluation{}, err
	}

	ev := domain.Evaluation{
		ID:          uuid.NewString(),
		Query:       q,
		Result:      res,
		EvaluatedAt: s.now().UTC(),
	}

	slog.Debug("price evaluated",
		"brand", q.Brand,
		"model", q.Model,
		"mileage", q.Mileage,
		"price", price,
		"score", res.Score,
		"category", res.Category.String(),
		"cohort_size", res.CohortSize,
		"bucketed", cohort.Bucketed,
		"fell_back", cohort.FellBack,
	)

	if s.store != nil {
		if err := s.store.SaveEvaluation(ctx, ev); err != nil {
			slog.Warn("storage error", "id", ev.ID, "err", err)
		}
	}
	return ev, nil
}

// History devuelve las evaluaciones persistidas en [from, to].
func (s *Service) History(ctx context.Context, from, to time.Time) ([]domain.Evaluation, error) {
	if s.store == nil {
		return nil, fmt.Errorf("evaluator.History: no evaluation store configured")
	}
	evs, err := s.store.GetHistory(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("evaluator.History: %w", err)
	}
	return evs, nil
}

// --- informes de mercado ---

// Overview devuelve el resumen del mercado completo.
func (s *Service) Overview() domain.MarketOverview {
	return domain.Overview(s.ds)
}

// Brand devuelve el resumen de una marca.
func (s *Service) Brand(brand string) (domain.BrandInsight, error) {
	return domain.InsightsForBrand(s.ds, brand)
}

// Trends devuelve la evolución mensual de precio de un modelo.
func (s *Service) Trends(brand, model string) (domain.ModelTrend, error) {
	return domain.TrendsForModel(s.ds, brand, model)
}

// Selection devuelve la estimación de precio para marca+modelo(+año, +km).
func (s *Service) Selection(brand, model string, year, mileage int) (domain.SelectionStats, error) {
	return domain.StatsForSelection(s.ds, brand, model, year, mileage)
}

func (s *Service) Brands() []string { return domain.Brands(s.ds) }

func (s *Service) Models(brand string) []string { return domain.Models(s.ds, brand) }

func (s *Service) Years(brand, model string) []int { return domain.Years(s.ds, brand, model) }
