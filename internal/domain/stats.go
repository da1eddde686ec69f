package domain

import (
	"math"
	"sort"
)

// Mean devuelve la media aritmética. 0 si no hay valores.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median devuelve el percentil 50 con interpolación lineal para tamaños pares.
// No modifica el slice de entrada.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := sortedCopy(values)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// PercentileRank devuelve el porcentaje (0–100) de valores <= x.
func PercentileRank(values []float64, x float64) float64 {
	if len(values) == 0 {
		return 0
	}
	count := 0
	for _, v := range values {
		if v <= x {
			count++
		}
	}
	return float64(count) / float64(len(values)) * 100
}

// MinMax devuelve el mínimo y el máximo. (0, 0) si no hay valores.
func MinMax(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Round1 redondea a un decimal.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func sortedCopy(values []float64) []float64 {
	cp := make([]float64, len(values))
	copy(cp, values)
	sort.Float64s(cp)
	return cp
}

// prices extrae los precios de una lista de anuncios.
func prices(listings []Listing) []float64 {
	out := make([]float64, len(listings))
	for i, l := range listings {
		out[i] = l.Price
	}
	return out
}

// mileages extrae los kilometrajes como float64.
func mileages(listings []Listing) []float64 {
	out := make([]float64, len(listings))
	for i, l := range listings {
		out[i] = float64(l.Mileage)
	}
	return out
}
