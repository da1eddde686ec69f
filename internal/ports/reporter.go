package ports

import (
	"context"

	"github.com/alejandrodnm/carfair/internal/domain"
)

// Reporter presenta resultados al usuario.
// En la implementación de consola, imprime tablas formateadas.
type Reporter interface {
	ReportEvaluation(ctx context.Context, ev domain.Evaluation) error
	ReportBatch(ctx context.Context, results []domain.BatchResult) error
	ReportOverview(ctx context.Context, ov domain.MarketOverview) error
	ReportBrand(ctx context.Context, bi domain.BrandInsight) error
	ReportTrends(ctx context.Context, tr domain.ModelTrend) error
	ReportHistory(ctx context.Context, evs []domain.Evaluation) error
}
