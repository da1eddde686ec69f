package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Condition es el estado declarado del coche en el anuncio.
type Condition string

const (
	ConditionNew  Condition = "new"
	ConditionUsed Condition = "used"
)

// ParseCondition normaliza el texto de entrada ("New", " used ") a una Condition válida.
func ParseCondition(s string) (Condition, error) {
	switch Condition(strings.ToLower(strings.TrimSpace(s))) {
	case ConditionNew:
		return ConditionNew, nil
	case ConditionUsed:
		return ConditionUsed, nil
	default:
		return "", fmt.Errorf("domain.ParseCondition: unknown condition %q (want new|used)", s)
	}
}

// ConditionForMileage deduce la condición a partir del kilometraje: 0 km = nuevo.
func ConditionForMileage(mileage int) Condition {
	if mileage > 0 {
		return ConditionUsed
	}
	return ConditionNew
}

// Listing es un anuncio de coche del dataset. Inmutable una vez cargado.
type Listing struct {
	Brand     string
	Model     string
	Condition Condition
	Mileage   int     // km, >= 0
	Price     float64 // VND, > 0
	ListTime  time.Time

	// Campos descriptivos: solo los usan los informes de mercado.
	Fuel    string
	Gearbox string
	Year    int // año de fabricación, 0 = desconocido
}

// Validate comprueba los invariantes de un anuncio en la frontera de ingesta.
func (l Listing) Validate() error {
	var errs []error
	if strings.TrimSpace(l.Brand) == "" {
		errs = append(errs, errors.New("empty brand"))
	}
	if strings.TrimSpace(l.Model) == "" {
		errs = append(errs, errors.New("empty model"))
	}
	if l.Condition != ConditionNew && l.Condition != ConditionUsed {
		errs = append(errs, fmt.Errorf("unknown condition %q", l.Condition))
	}
	if l.Mileage < 0 {
		errs = append(errs, fmt.Errorf("negative mileage %d", l.Mileage))
	}
	switch {
	case math.IsNaN(l.Price) || math.IsInf(l.Price, 0):
		errs = append(errs, fmt.Errorf("price is not a finite number: %v", l.Price))
	case l.Price <= 0:
		errs = append(errs, fmt.Errorf("non-positive price %.0f", l.Price))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid listing %s %s: %w", l.Brand, l.Model, errors.Join(errs...))
	}
	return nil
}

// Matches devuelve true si el anuncio coincide exactamente en marca, modelo y condición.
func (l Listing) Matches(brand, model string, condition Condition) bool {
	return l.Brand == brand && l.Model == model && l.Condition == condition
}

// Dataset es el snapshot de solo lectura de todos los anuncios.
// Se construye una vez al arrancar y se comparte entre consultas sin locks:
// nadie escribe sobre él después de NewDataset.
type Dataset struct {
	listings []Listing
}

// NewDataset copia los anuncios dados en un snapshot inmutable.
func NewDataset(listings []Listing) *Dataset {
	cp := make([]Listing, len(listings))
	copy(cp, listings)
	return &Dataset{listings: cp}
}

// Len devuelve el número de anuncios.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.listings)
}

// Filter devuelve los anuncios que cumplen el predicado, en el orden del dataset.
func (d *Dataset) Filter(keep func(Listing) bool) []Listing {
	if d == nil {
		return nil
	}
	var out []Listing
	for _, l := range d.listings {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// Each recorre todos los anuncios sin copiar el slice.
func (d *Dataset) Each(fn func(Listing)) {
	if d == nil {
		return
	}
	for _, l := range d.listings {
		fn(l)
	}
}
