package domain

import (
	"errors"
	"fmt"
)

// MinCohortSize es el tamaño mínimo de una cohorte para poder puntuar un precio.
const MinCohortSize = 5

var (
	// ErrInsufficientData se devuelve cuando ni la cohorte por bucket ni la
	// cohorte amplia llegan a MinCohortSize anuncios.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateMarket se devuelve cuando la mediana de la cohorte no es positiva.
	ErrDegenerateMarket = errors.New("degenerate market")
	// ErrBrandNotFound se devuelve cuando la marca no tiene ningún anuncio.
	ErrBrandNotFound = errors.New("brand not found")
	// ErrInsufficientTrendData se devuelve cuando un modelo tiene menos de
	// MinTrendListings anuncios para calcular tendencias.
	ErrInsufficientTrendData = errors.New("insufficient data for trend analysis")
	// ErrInvalidQuery envuelve los errores de validación de una consulta de precio.
	ErrInvalidQuery = errors.New("invalid query")
)

// InsufficientDataError lleva la marca y el modelo consultados para mostrarlos al usuario.
type InsufficientDataError struct {
	Brand string
	Model string
	Found int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("Insufficient data for %s %s. Need at least %d similar listings (found %d).",
		e.Brand, e.Model, MinCohortSize, e.Found)
}

// Is permite errors.Is(err, ErrInsufficientData).
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// DegenerateMarketError indica una cohorte cuya mediana es <= 0.
type DegenerateMarketError struct {
	Brand  string
	Model  string
	Median float64
}

func (e *DegenerateMarketError) Error() string {
	return fmt.Sprintf("degenerate market for %s %s: median price %.0f is not positive",
		e.Brand, e.Model, e.Median)
}

// Is permite errors.Is(err, ErrDegenerateMarket).
func (e *DegenerateMarketError) Is(target error) bool {
	return target == ErrDegenerateMarket
}
