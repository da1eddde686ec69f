package evaluator

// concurrent.go — worker pool para evaluar lotes de consultas en paralelo.
//
// Cada consulta filtra el dataset completo; con decenas de miles de anuncios y
// lotes de cientos de coches, repartir entre cores reduce el tiempo casi linealmente.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/carfair/internal/domain"
)

// EvaluateBatch evalúa todas las consultas con un worker pool.
// El resultado conserva el orden de entrada; los errores por consulta van en
// BatchResult.Err y no detienen el lote. Si el contexto se cancela, las consultas
// pendientes terminan con ctx.Err().
//
// Si cfg.BatchWorkers <= 0 usa runtime.NumCPU() × 2.
func (s *Service) EvaluateBatch(ctx context.Context, items []domain.BatchItem) []domain.BatchResult {
	workers := s.cfg.BatchWorkers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	workers = min(workers, max(len(items), 1))

	type work struct {
		idx  int
		item domain.BatchItem
	}

	workCh := make(chan work, len(items))
	results := make([]domain.BatchResult, len(items))

	// Cada worker escribe solo en su índice: no hace falta canal de resultados.
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				res := domain.BatchResult{Item: w.item}
				if err := ctx.Err(); err != nil {
					res.Err = err
				} else {
					res.Evaluation, res.Err = s.Evaluate(ctx, w.item.Query, w.item.Price)
				}
				if res.Err != nil {
					slog.Debug("evaluate failed",
						"brand", w.item.Query.Brand,
						"model", w.item.Query.Model,
						"err", res.Err,
					)
				}
				results[w.idx] = res
			}
		}()
	}

	for i, item := range items {
		workCh <- work{idx: i, item: item}
	}
	close(workCh)
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	slog.Debug("batch evaluation complete",
		"queries", len(items),
		"failed", failed,
		"workers", workers,
	)

	return results
}
