package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/carfair/internal/domain"
)

// EvaluationStore persiste las evaluaciones de precio realizadas.
type EvaluationStore interface {
	// SaveEvaluation persiste una evaluación.
	SaveEvaluation(ctx context.Context, ev domain.Evaluation) error

	// GetHistory devuelve las evaluaciones registradas en el rango de tiempo dado.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.Evaluation, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
