package domain

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Currency es la unidad monetaria de los precios del dataset.
const Currency = "VND"

const (
	fairBandLow  = 0.9
	fairBandHigh = 1.1
	// suspiciousRatio: por debajo de la mitad de la mediana marcamos el precio como sospechoso.
	suspiciousRatio = 0.5
)

// FairnessCategory clasifica el precio según el score de justicia.
type FairnessCategory int

const (
	CategoryExcellentDeal      FairnessCategory = iota // score >= 80
	CategoryFairPrice                                  // 60 <= score < 80
	CategorySlightlyOverpriced                         // 40 <= score < 60
	CategoryOverpriced                                 // score < 40
)

func (c FairnessCategory) String() string {
	switch c {
	case CategoryExcellentDeal:
		return "Excellent Deal"
	case CategoryFairPrice:
		return "Fair Price"
	case CategorySlightlyOverpriced:
		return "Slightly Overpriced"
	default:
		return "Overpriced"
	}
}

// ParseFairnessCategory es la inversa de String, usada al leer de storage.
func ParseFairnessCategory(s string) (FairnessCategory, error) {
	for _, c := range []FairnessCategory{
		CategoryExcellentDeal, CategoryFairPrice, CategorySlightlyOverpriced, CategoryOverpriced,
	} {
		if c.String() == s {
			return c, nil
		}
	}
	return CategoryOverpriced, fmt.Errorf("domain.ParseFairnessCategory: unknown category %q", s)
}

// Icon es la marca corta usada en la consola.
func (c FairnessCategory) Icon() string {
	switch c {
	case CategoryExcellentDeal:
		return "[++]"
	case CategoryFairPrice:
		return "[+]"
	case CategorySlightlyOverpriced:
		return "[-]"
	default:
		return "[--]"
	}
}

// Recommendation devuelve la recomendación fija asociada a la categoría.
func (c FairnessCategory) Recommendation() string {
	switch c {
	case CategoryExcellentDeal:
		return "This is a great price! Consider buying quickly."
	case CategoryFairPrice:
		return "This price is reasonable for the market."
	case CategorySlightlyOverpriced:
		return "Consider negotiating or looking for better deals."
	default:
		return "This price is significantly above market average."
	}
}

// Categorize mapea un score ya acotado a [0, 100] a su categoría.
func Categorize(score float64) FairnessCategory {
	switch {
	case score >= 80:
		return CategoryExcellentDeal
	case score >= 60:
		return CategoryFairPrice
	case score >= 40:
		return CategorySlightlyOverpriced
	default:
		return CategoryOverpriced
	}
}

// FairnessResult es el resultado de puntuar un precio contra su cohorte.
type FairnessResult struct {
	Price          float64
	Score          float64 // 0–100, un decimal
	Category       FairnessCategory
	Recommendation string

	MarketMean   int64
	MarketMedian int64
	Percentile   float64 // % de la cohorte con precio <= Price, un decimal
	PriceRatio   float64 // Price / mediana
	FairPriceMin int64
	FairPriceMax int64
	CohortSize   int
	CohortLabel  string

	PriceVsMedian string // "Above median by 12,000,000 VND"
	PriceVsMean   string

	// SuspiciouslyCheap es informativo: no altera score ni categoría.
	SuspiciouslyCheap bool
}

// FairnessCurve convierte el ratio precio/mediana en un score acotado a [0, 100].
//
// Curva lineal a tramos (gana el primer tramo que coincide):
//
//	r <= 0.8        90 + (0.8 - r) × 50
//	0.8 < r <= 1.1  70 - (r - 0.8) × 100
//	1.1 < r <= 1.3  40 - (r - 1.1) × 150
//	r > 1.3         max(0, 10 - (r - 1.3) × 20)
func FairnessCurve(ratio float64) float64 {
	var score float64
	switch {
	case ratio <= 0.8:
		score = 90 + (0.8-ratio)*50
	case ratio <= 1.1:
		score = 70 - (ratio-0.8)*100
	case ratio <= 1.3:
		score = 40 - (ratio-1.1)*150
	default:
		score = math.Max(0, 10-(ratio-1.3)*20)
	}
	return math.Max(0, math.Min(100, score))
}

// FairPriceBand devuelve la ventana ±10% alrededor de la mediana.
func FairPriceBand(median float64) (lo, hi float64) {
	return median * fairBandLow, median * fairBandHigh
}

// Score puntúa el precio candidato contra la cohorte.
// La cohorte debe venir de SelectCohort; con menos de MinCohortSize anuncios
// se rechaza con *InsufficientDataError en vez de dar un score aproximado.
func Score(c Cohort, price float64) (FairnessResult, error) {
	if c.Size() < MinCohortSize {
		return FairnessResult{}, &InsufficientDataError{Brand: c.Brand, Model: c.Model, Found: c.Size()}
	}

	ps := c.Prices()
	mean := Mean(ps)
	median := Median(ps)
	if median <= 0 {
		return FairnessResult{}, &DegenerateMarketError{Brand: c.Brand, Model: c.Model, Median: median}
	}

	ratio := price / median
	score := FairnessCurve(ratio)
	category := Categorize(score)
	lo, hi := FairPriceBand(median)

	return FairnessResult{
		Price:             price,
		Score:             Round1(score),
		Category:          category,
		Recommendation:    category.Recommendation(),
		MarketMean:        roundInt(mean),
		MarketMedian:      roundInt(median),
		Percentile:        Round1(PercentileRank(ps, price)),
		PriceRatio:        ratio,
		FairPriceMin:      roundInt(lo),
		FairPriceMax:      roundInt(hi),
		CohortSize:        c.Size(),
		CohortLabel:       c.Label(),
		PriceVsMedian:     compareTo("median", price, median),
		PriceVsMean:       compareTo("average", price, mean),
		SuspiciouslyCheap: ratio < suspiciousRatio,
	}, nil
}

// compareTo describe la dirección y la diferencia absoluta respecto a una referencia.
func compareTo(what string, price, ref float64) string {
	diff := math.Abs(price - ref)
	switch {
	case price > ref:
		return fmt.Sprintf("Above %s by %s", what, FormatVND(diff))
	case price < ref:
		return fmt.Sprintf("Below %s by %s", what, FormatVND(diff))
	default:
		return fmt.Sprintf("At %s (difference %s)", what, FormatVND(0))
	}
}

// roundInt redondea al entero más cercano: 450e6×0.9 no es exacto en float64.
func roundInt(v float64) int64 {
	return int64(math.Round(v))
}

// FormatVND formatea un importe con separador de miles: 450000000 → "450,000,000 VND".
func FormatVND(v float64) string {
	return humanize.Comma(int64(math.Round(v))) + " " + Currency
}
