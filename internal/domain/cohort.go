package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// bucketRefineMin: la cohorte base debe superar este tamaño para afinar por kilometraje.
const bucketRefineMin = 10

// Query describe el coche para el que se busca una cohorte comparable.
type Query struct {
	Brand     string
	Model     string
	Condition Condition
	Mileage   int
}

// Validate comprueba una consulta junto con el precio a evaluar.
// Los errores envuelven ErrInvalidQuery.
func (q Query) Validate(price float64) error {
	var errs []error
	if strings.TrimSpace(q.Brand) == "" {
		errs = append(errs, errors.New("empty brand"))
	}
	if strings.TrimSpace(q.Model) == "" {
		errs = append(errs, errors.New("empty model"))
	}
	if q.Condition != ConditionNew && q.Condition != ConditionUsed {
		errs = append(errs, fmt.Errorf("unknown condition %q", q.Condition))
	}
	if q.Mileage < 0 {
		errs = append(errs, fmt.Errorf("negative mileage %d", q.Mileage))
	}
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		errs = append(errs, fmt.Errorf("price must be a positive number, got %v", price))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, errors.Join(errs...))
	}
	return nil
}

// Cohort es el subconjunto de anuncios comparables a una Query.
// Transitorio: se recalcula en cada consulta y nunca se persiste.
type Cohort struct {
	Brand     string
	Model     string
	Condition Condition
	Listings  []Listing

	// Bucketed es true si se aplicó el filtro por bucket de kilometraje.
	Bucketed bool
	Bucket   MileageBucket
	// FellBack es true si el bucket tenía < MinCohortSize anuncios y se volvió
	// a la cohorte marca+modelo+condición.
	FellBack bool
}

// Size devuelve el número de anuncios de la cohorte.
func (c Cohort) Size() int {
	return len(c.Listings)
}

// Prices devuelve los precios de la cohorte.
func (c Cohort) Prices() []float64 {
	return prices(c.Listings)
}

// Label describe la cohorte para informes ("Toyota Vios used, 30,000-50,000 km").
func (c Cohort) Label() string {
	label := c.Brand + " " + c.Model + " " + string(c.Condition)
	if c.Bucketed {
		label += ", " + c.Bucket.String()
	}
	return label
}

// SelectCohort filtra el dataset hasta una cohorte comparable a la query.
//
// Algoritmo:
//  1. Coincidencia exacta en marca, modelo y condición.
//  2. Si hay más de 10, se restringe al bucket de kilometraje de la query.
//  3. Si el bucket deja < 5, se descarta el refinamiento y se usa la cohorte del paso 1.
//  4. Si aún hay < 5, devuelve *InsufficientDataError.
func SelectCohort(ds *Dataset, q Query) (Cohort, error) {
	base := ds.Filter(func(l Listing) bool {
		return l.Matches(q.Brand, q.Model, q.Condition)
	})

	cohort := Cohort{
		Brand:     q.Brand,
		Model:     q.Model,
		Condition: q.Condition,
		Listings:  base,
	}

	if len(base) > bucketRefineMin {
		bucket := BucketFor(q.Mileage)
		refined := filterBucket(base, bucket)
		if len(refined) >= MinCohortSize {
			cohort.Listings = refined
			cohort.Bucketed = true
			cohort.Bucket = bucket
		} else {
			cohort.FellBack = true
		}
	}

	if cohort.Size() < MinCohortSize {
		return Cohort{}, &InsufficientDataError{Brand: q.Brand, Model: q.Model, Found: cohort.Size()}
	}
	return cohort, nil
}

func filterBucket(listings []Listing, b MileageBucket) []Listing {
	var out []Listing
	for _, l := range listings {
		if b.Contains(l.Mileage) {
			out = append(out, l)
		}
	}
	return out
}
