// Package csvsource carga el dataset de anuncios desde un export CSV.
//
// Cabecera esperada (orden libre, columnas extra ignoradas):
//
//	brand, model, condition, mileage|mileage_v2, price, list_time, fuel, gearbox, year|manufacture_date
//
// list_time es epoch en milisegundos. Si falta la columna condition se deduce
// del kilometraje (0 km = new).
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/carfair/internal/domain"
)

// alias de columnas: la primera que aparezca en la cabecera gana.
var columnAliases = map[string][]string{
	"brand":     {"brand"},
	"model":     {"model"},
	"condition": {"condition"},
	"mileage":   {"mileage_v2", "mileage"},
	"price":     {"price"},
	"list_time": {"list_time"},
	"fuel":      {"fuel"},
	"gearbox":   {"gearbox"},
	"year":      {"manufacture_date", "year"},
}

var required = []string{"brand", "model", "mileage", "price"}

// Source implementa ports.ListingSource leyendo un fichero CSV.
type Source struct {
	path string
}

// New crea un Source para el fichero dado. El fichero se abre en cada LoadListings.
func New(path string) *Source {
	return &Source{path: path}
}

// LoadListings abre el fichero y parsea todos los anuncios.
func (s *Source) LoadListings(ctx context.Context) ([]domain.Listing, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("csvsource.LoadListings: %w", err)
	}
	defer f.Close()
	return Parse(ctx, f)
}

// Parse lee anuncios de r. Falla en la primera fila inválida indicando su número
// de línea (la cabecera es la línea 1).
func Parse(ctx context.Context, r io.Reader) ([]domain.Listing, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csvsource.Parse: read header: %w", err)
	}
	idx, err := mapHeader(header)
	if err != nil {
		return nil, fmt.Errorf("csvsource.Parse: %w", err)
	}

	var listings []domain.Listing
	for line := 2; ; line++ {
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("csvsource.Parse: %w", err)
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvsource.Parse: line %d: %w", line, err)
		}
		l, err := parseRecord(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("csvsource.Parse: line %d: %w", line, err)
		}
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("csvsource.Parse: line %d: %w", line, err)
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// mapHeader devuelve la posición de cada columna lógica (-1 si no está).
func mapHeader(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToLower(strings.TrimSpace(h))] = i
	}

	idx := make(map[string]int, len(columnAliases))
	for col, aliases := range columnAliases {
		idx[col] = -1
		for _, a := range aliases {
			if i, ok := pos[a]; ok {
				idx[col] = i
				break
			}
		}
	}

	var missing []string
	for _, col := range required {
		if idx[col] < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func parseRecord(rec []string, idx map[string]int) (domain.Listing, error) {
	field := func(col string) string {
		i := idx[col]
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var (
		l   domain.Listing
		err error
	)
	l.Brand = field("brand")
	l.Model = field("model")
	l.Fuel = field("fuel")
	l.Gearbox = field("gearbox")

	if l.Mileage, err = parseInt(field("mileage")); err != nil {
		return l, fmt.Errorf("mileage: %w", err)
	}

	if l.Price, err = parseNumber(field("price")); err != nil {
		return l, fmt.Errorf("price: %w", err)
	}

	if raw := field("condition"); raw != "" {
		if l.Condition, err = domain.ParseCondition(raw); err != nil {
			return l, err
		}
	} else {
		l.Condition = domain.ConditionForMileage(l.Mileage)
	}

	if raw := field("list_time"); raw != "" {
		ms, err := parseInt(raw)
		if err != nil {
			return l, fmt.Errorf("list_time: %w", err)
		}
		l.ListTime = time.UnixMilli(int64(ms)).UTC()
	}

	if raw := field("year"); raw != "" {
		if l.Year, err = parseInt(raw); err != nil {
			return l, fmt.Errorf("year: %w", err)
		}
	}
	return l, nil
}

// parseNumber acepta enteros y floats ("45000", "4.5e8", "450000000.0").
// Una celda vacía vale 0.
func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number %q", s)
	}
	return v, nil
}

// parseInt acepta enteros escritos como float ("45000.0") pero rechaza
// fracciones, NaN/Inf y valores fuera del rango de int.
func parseInt(s string) (int, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, fmt.Errorf("not an integer %q", s)
	}
	if v < math.MinInt64 || v >= math.MaxInt64 {
		return 0, fmt.Errorf("out of range %q", s)
	}
	return int(v), nil
}

// ParseQueries lee un lote de consultas para el modo batch.
// Misma cabecera que el dataset; list_time, fuel, gearbox y year se ignoran.
// A diferencia de Parse, no valida las filas: cada consulta inválida se
// reporta en su BatchResult sin abortar el lote.
func ParseQueries(ctx context.Context, r io.Reader) ([]domain.BatchItem, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csvsource.ParseQueries: read header: %w", err)
	}
	idx, err := mapHeader(header)
	if err != nil {
		return nil, fmt.Errorf("csvsource.ParseQueries: %w", err)
	}
	var items []domain.BatchItem
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("csvsource.ParseQueries: %w", err)
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvsource.ParseQueries: line %d: %w", line, err)
		}
		l, err := parseRecord(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("csvsource.ParseQueries: line %d: %w", line, err)
		}
		items = append(items, domain.BatchItem{
			Query: domain.Query{Brand: l.Brand, Model: l.Model, Condition: l.Condition, Mileage: l.Mileage},
			Price: l.Price,
		})
	}
	return items, nil
}
