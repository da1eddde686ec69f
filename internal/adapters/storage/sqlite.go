package storage

// sqlite.go — almacenamiento del dataset y del histórico de evaluaciones.
//
// Estrategia:
//   - `listings`: el dataset completo. Se reemplaza entero en cada import; la app
//     lo lee una sola vez al arrancar y lo congela en un domain.Dataset.
//   - `evaluations`: una fila por evaluación (UUID). Sirve para el comando history.
//   - Prune automático al arrancar: evaluaciones > 90d.
//   - El mismo código sirve SQLite (modernc, sin CGo) y PostgreSQL (lib/pq): solo
//     cambian el driver y el formato de placeholders de squirrel.

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/alejandrodnm/carfair/internal/domain"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS listings (
    brand        TEXT             NOT NULL,
    model        TEXT             NOT NULL,
    condition    TEXT             NOT NULL,
    mileage      BIGINT           NOT NULL DEFAULT 0,
    price        DOUBLE PRECISION NOT NULL,
    list_time_ms BIGINT           NOT NULL DEFAULT 0,
    fuel         TEXT             NOT NULL DEFAULT '',
    gearbox      TEXT             NOT NULL DEFAULT '',
    year         INTEGER          NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS evaluations (
    id              TEXT PRIMARY KEY,
    brand           TEXT             NOT NULL,
    model           TEXT             NOT NULL,
    condition       TEXT             NOT NULL,
    mileage         BIGINT           NOT NULL DEFAULT 0,
    price           DOUBLE PRECISION NOT NULL,
    score           DOUBLE PRECISION NOT NULL,
    category        TEXT             NOT NULL,
    market_mean     BIGINT           NOT NULL DEFAULT 0,
    market_median   BIGINT           NOT NULL DEFAULT 0,
    percentile      DOUBLE PRECISION NOT NULL DEFAULT 0,
    fair_min        BIGINT           NOT NULL DEFAULT 0,
    fair_max        BIGINT           NOT NULL DEFAULT 0,
    cohort_size     INTEGER          NOT NULL DEFAULT 0,
    evaluated_at_ms BIGINT           NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_listings_bmc  ON listings(brand, model, condition);
CREATE INDEX IF NOT EXISTS idx_eval_at       ON evaluations(evaluated_at_ms DESC);
CREATE INDEX IF NOT EXISTS idx_eval_brand    ON evaluations(brand, model);
`

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	retentionEvaluations = 90 * 24 * time.Hour
	importChunk          = 500 // filas por INSERT multi-valor
)

var listingColumns = []string{
	"brand", "model", "condition", "mileage", "price", "list_time_ms", "fuel", "gearbox", "year",
}

// SQLStorage implementa ports.ListingSource y ports.EvaluationStore sobre database/sql.
type SQLStorage struct {
	db     *sql.DB
	driver string
	sb     sq.StatementBuilderType
}

// NewSQLiteStorage abre (o crea) la base de datos SQLite en la ruta dada.
func NewSQLiteStorage(path string) (*SQLStorage, error) {
	return Open(DriverSQLite, path)
}

// Open abre la base de datos con el driver dado ("sqlite" | "postgres"),
// aplica el schema y limpia evaluaciones antiguas.
func Open(driver, dsn string) (*SQLStorage, error) {
	var ph sq.PlaceholderFormat
	switch driver {
	case DriverSQLite:
		ph = sq.Question
	case DriverPostgres:
		ph = sq.Dollar
	default:
		return nil, fmt.Errorf("storage.Open: unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.Open: open %s %q: %w", driver, dsn, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1) // SQLite es single-writer
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.Open: apply schema: %w", err)
	}

	s := &SQLStorage{
		db:     db,
		driver: driver,
		sb:     sq.StatementBuilder.PlaceholderFormat(ph),
	}
	s.pruneOld(context.Background())
	return s, nil
}

// ReplaceListings borra el dataset actual y carga los anuncios dados en una transacción.
// Devuelve el número de filas insertadas.
func (s *SQLStorage) ReplaceListings(ctx context.Context, listings []domain.Listing) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("storage.ReplaceListings: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM listings`); err != nil {
		return 0, fmt.Errorf("storage.ReplaceListings: clear: %w", err)
	}

	inserted := 0
	for start := 0; start < len(listings); start += importChunk {
		end := min(start+importChunk, len(listings))

		ins := s.sb.Insert("listings").Columns(listingColumns...)
		for _, l := range listings[start:end] {
			ins = ins.Values(
				l.Brand, l.Model, string(l.Condition), l.Mileage, l.Price,
				toMillis(l.ListTime), l.Fuel, l.Gearbox, l.Year,
			)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return 0, fmt.Errorf("storage.ReplaceListings: build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("storage.ReplaceListings: insert rows %d-%d: %w", start, end, err)
		}
		inserted += end - start
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("storage.ReplaceListings: commit: %w", err)
	}
	return inserted, nil
}

// LoadListings devuelve todos los anuncios del dataset.
func (s *SQLStorage) LoadListings(ctx context.Context) ([]domain.Listing, error) {
	query, args, err := s.sb.Select(listingColumns...).From("listings").ToSql()
	if err != nil {
		return nil, fmt.Errorf("storage.LoadListings: build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadListings: query: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		var l domain.Listing
		var cond string
		var listMs int64
		if err := rows.Scan(
			&l.Brand, &l.Model, &cond, &l.Mileage, &l.Price,
			&listMs, &l.Fuel, &l.Gearbox, &l.Year,
		); err != nil {
			return nil, fmt.Errorf("storage.LoadListings: scan row: %w", err)
		}
		l.Condition = domain.Condition(cond)
		l.ListTime = fromMillis(listMs)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// CountListings devuelve el tamaño del dataset almacenado.
func (s *SQLStorage) CountListings(ctx context.Context) (int, error) {
	query, args, err := s.sb.Select("COUNT(*)").From("listings").ToSql()
	if err != nil {
		return 0, fmt.Errorf("storage.CountListings: build query: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("storage.CountListings: %w", err)
	}
	return n, nil
}

// SaveEvaluation persiste una evaluación.
func (s *SQLStorage) SaveEvaluation(ctx context.Context, ev domain.Evaluation) error {
	r := ev.Result
	query, args, err := s.sb.Insert("evaluations").
		Columns("id", "brand", "model", "condition", "mileage", "price", "score", "category",
			"market_mean", "market_median", "percentile", "fair_min", "fair_max",
			"cohort_size", "evaluated_at_ms").
		Values(ev.ID, ev.Query.Brand, ev.Query.Model, string(ev.Query.Condition), ev.Query.Mileage,
			r.Price, r.Score, r.Category.String(),
			r.MarketMean, r.MarketMedian, r.Percentile, r.FairPriceMin, r.FairPriceMax,
			r.CohortSize, toMillis(ev.EvaluatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("storage.SaveEvaluation: build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("storage.SaveEvaluation: insert %s: %w", ev.ID, err)
	}
	return nil
}

// GetHistory devuelve las evaluaciones cuyo evaluated_at está en el rango dado,
// las más recientes primero.
func (s *SQLStorage) GetHistory(ctx context.Context, from, to time.Time) ([]domain.Evaluation, error) {
	query, args, err := s.sb.Select(
		"id", "brand", "model", "condition", "mileage", "price", "score", "category",
		"market_mean", "market_median", "percentile", "fair_min", "fair_max",
		"cohort_size", "evaluated_at_ms").
		From("evaluations").
		Where(sq.And{
			sq.GtOrEq{"evaluated_at_ms": toMillis(from)},
			sq.LtOrEq{"evaluated_at_ms": toMillis(to)},
		}).
		OrderBy("evaluated_at_ms DESC", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var evs []domain.Evaluation
	for rows.Next() {
		var ev domain.Evaluation
		var cond, cat string
		var atMs int64
		r := &ev.Result
		if err := rows.Scan(
			&ev.ID, &ev.Query.Brand, &ev.Query.Model, &cond, &ev.Query.Mileage,
			&r.Price, &r.Score, &cat,
			&r.MarketMean, &r.MarketMedian, &r.Percentile, &r.FairPriceMin, &r.FairPriceMax,
			&r.CohortSize, &atMs,
		); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}
		ev.Query.Condition = domain.Condition(cond)
		ev.EvaluatedAt = fromMillis(atMs)
		if r.Category, err = domain.ParseFairnessCategory(cat); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: row %s: %w", ev.ID, err)
		}
		r.Recommendation = r.Category.Recommendation()
		evs = append(evs, ev)
	}
	return evs, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

// pruneOld elimina evaluaciones antiguas para mantener la DB ligera.
func (s *SQLStorage) pruneOld(ctx context.Context) {
	cutoff := toMillis(time.Now().UTC().Add(-retentionEvaluations))
	query, args, err := s.sb.Delete("evaluations").Where(sq.Lt{"evaluated_at_ms": cutoff}).ToSql()
	if err != nil {
		slog.Warn("storage: build prune query", "err", err)
		return
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Warn("storage: prune old evaluations", "err", err)
		return
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		slog.Debug("storage: pruned old evaluations", "rows", n)
	}
}

// toMillis guarda los tiempos como epoch en ms (mismo formato que list_time del dataset).
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
