package domain

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	topN              = 10
	topModelsPerBrand = 5
	minBrandListings  = 10 // marcas con menos anuncios no entran en el ranking por precio
	recentListingsN   = 5
	trendMonths       = 6

	// MinTrendListings es el mínimo de anuncios de un modelo para calcular tendencias.
	MinTrendListings = 10
)

// CountShare es una entrada de una distribución categórica.
type CountShare struct {
	Label   string
	Count   int
	Percent float64 // sobre el total de anuncios considerados
}

// BrandPrice es una marca con su precio medio.
type BrandPrice struct {
	Brand     string
	MeanPrice int64
	Count     int
}

// PriceRange es un rango de precio del informe de distribución (lower, upper].
type PriceRange struct {
	Label string
	Upper float64 // +Inf para el último rango
}

// PriceRanges son los rangos fijos del dashboard.
var PriceRanges = []PriceRange{
	{Label: "<200M", Upper: 200_000_000},
	{Label: "200M-500M", Upper: 500_000_000},
	{Label: "500M-1B", Upper: 1_000_000_000},
	{Label: "1B-2B", Upper: 2_000_000_000},
	{Label: ">2B", Upper: math.Inf(1)},
}

// MarketOverview resume el mercado completo.
type MarketOverview struct {
	TotalListings int
	From, To      time.Time

	MeanPrice, MedianPrice, MinPrice, MaxPrice int64

	TopBrands        []CountShare
	TopBrandsByPrice []BrandPrice
	TopModels        []CountShare
	Fuels            []CountShare
	Gearboxes        []CountShare
	Conditions       []CountShare
	PriceRanges      []CountShare

	MeanMileage, MedianMileage, MinMileage, MaxMileage int64

	Recent []Listing
}

// BrandInsight resume una marca.
type BrandInsight struct {
	Brand         string
	TotalListings int
	MeanPrice     int64
	MedianPrice   int64
	PopularModels []CountShare
	Conditions    []CountShare
	Fuels         []CountShare
}

// MonthlyStat es el precio medio de un mes.
type MonthlyStat struct {
	Month     time.Time // primer día del mes, UTC
	MeanPrice float64
	Count     int
}

// ModelTrend es la evolución mensual del precio de un modelo.
type ModelTrend struct {
	Brand         string
	Model         string
	Trend         string // "increasing" | "decreasing"
	Monthly       []MonthlyStat
	TotalListings int
}

// SelectionStats es la estimación de precio del dashboard para marca+modelo(+año).
type SelectionStats struct {
	Label       string
	Bucketed    bool
	Count       int
	MeanPrice   int64
	MedianPrice int64
	MinPrice    int64
	MaxPrice    int64
	MeanMileage int64
}

// Overview calcula el resumen de mercado del dataset completo.
func Overview(ds *Dataset) MarketOverview {
	all := ds.Filter(func(Listing) bool { return true })
	ov := MarketOverview{TotalListings: len(all)}
	if len(all) == 0 {
		return ov
	}

	ps := prices(all)
	lo, hi := MinMax(ps)
	ov.MeanPrice = roundInt(Mean(ps))
	ov.MedianPrice = roundInt(Median(ps))
	ov.MinPrice, ov.MaxPrice = int64(lo), int64(hi)

	ms := mileages(all)
	mlo, mhi := MinMax(ms)
	ov.MeanMileage = roundInt(Mean(ms))
	ov.MedianMileage = roundInt(Median(ms))
	ov.MinMileage, ov.MaxMileage = int64(mlo), int64(mhi)

	total := len(all)
	ov.TopBrands = head(countBy(all, total, func(l Listing) string { return l.Brand }), topN)
	ov.TopModels = head(countBy(all, total, func(l Listing) string { return l.Model }), topN)
	ov.Fuels = countBy(all, total, func(l Listing) string { return l.Fuel })
	ov.Gearboxes = countBy(all, total, func(l Listing) string { return l.Gearbox })
	ov.Conditions = countBy(all, total, func(l Listing) string { return string(l.Condition) })
	ov.PriceRanges = priceRangeDistribution(ps)
	ov.TopBrandsByPrice = brandsByPrice(all)

	for _, l := range all {
		if l.ListTime.IsZero() {
			continue
		}
		if ov.From.IsZero() || l.ListTime.Before(ov.From) {
			ov.From = l.ListTime
		}
		if l.ListTime.After(ov.To) {
			ov.To = l.ListTime
		}
	}

	recent := make([]Listing, len(all))
	copy(recent, all)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].ListTime.After(recent[j].ListTime)
	})
	ov.Recent = recent[:min(recentListingsN, len(recent))]

	return ov
}

// InsightsForBrand resume una marca concreta.
func InsightsForBrand(ds *Dataset, brand string) (BrandInsight, error) {
	listings := ds.Filter(func(l Listing) bool { return l.Brand == brand })
	if len(listings) == 0 {
		return BrandInsight{}, fmt.Errorf("no data found for brand %s: %w", brand, ErrBrandNotFound)
	}

	ps := prices(listings)
	total := len(listings)
	return BrandInsight{
		Brand:         brand,
		TotalListings: total,
		MeanPrice:     roundInt(Mean(ps)),
		MedianPrice:   roundInt(Median(ps)),
		PopularModels: head(countBy(listings, total, func(l Listing) string { return l.Model }), topModelsPerBrand),
		Conditions:    countBy(listings, total, func(l Listing) string { return string(l.Condition) }),
		Fuels:         countBy(listings, total, func(l Listing) string { return l.Fuel }),
	}, nil
}

// TrendsForModel calcula la media mensual de los últimos 6 meses con datos.
func TrendsForModel(ds *Dataset, brand, model string) (ModelTrend, error) {
	listings := ds.Filter(func(l Listing) bool { return l.Brand == brand && l.Model == model })
	if len(listings) < MinTrendListings {
		return ModelTrend{}, fmt.Errorf("%s %s has %d listings: %w",
			brand, model, len(listings), ErrInsufficientTrendData)
	}

	type acc struct {
		sum   float64
		count int
	}
	byMonth := make(map[time.Time]*acc)
	for _, l := range listings {
		if l.ListTime.IsZero() {
			continue
		}
		t := l.ListTime.UTC()
		month := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		a, ok := byMonth[month]
		if !ok {
			a = &acc{}
			byMonth[month] = a
		}
		a.sum += l.Price
		a.count++
	}
	if len(byMonth) == 0 {
		return ModelTrend{}, fmt.Errorf("%s %s has no dated listings: %w", brand, model, ErrInsufficientTrendData)
	}

	months := make([]time.Time, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	if len(months) > trendMonths {
		months = months[len(months)-trendMonths:]
	}

	monthly := make([]MonthlyStat, len(months))
	for i, m := range months {
		a := byMonth[m]
		monthly[i] = MonthlyStat{Month: m, MeanPrice: a.sum / float64(a.count), Count: a.count}
	}

	trend := "decreasing"
	if monthly[len(monthly)-1].MeanPrice > monthly[0].MeanPrice {
		trend = "increasing"
	}

	return ModelTrend{
		Brand:         brand,
		Model:         model,
		Trend:         trend,
		Monthly:       monthly,
		TotalListings: len(listings),
	}, nil
}

// StatsForSelection estima el precio para marca+modelo, filtrando por año si year > 0
// y por bucket de kilometraje si mileage >= 0. El bucket se descarta si deja menos
// de MinCohortSize anuncios, igual que en SelectCohort.
func StatsForSelection(ds *Dataset, brand, model string, year, mileage int) (SelectionStats, error) {
	selection := ds.Filter(func(l Listing) bool {
		return l.Brand == brand && l.Model == model && (year <= 0 || l.Year == year)
	})
	if len(selection) == 0 {
		return SelectionStats{}, &InsufficientDataError{Brand: brand, Model: model}
	}

	label := brand + " " + model
	if year > 0 {
		label = fmt.Sprintf("%s (%d)", label, year)
	}
	stats := SelectionStats{Label: "all " + label}

	cluster := selection
	if mileage >= 0 {
		bucket := BucketFor(mileage)
		if refined := filterBucket(selection, bucket); len(refined) >= MinCohortSize {
			cluster = refined
			stats.Bucketed = true
			stats.Label = label + ", " + bucket.String()
		}
	}

	ps := prices(cluster)
	lo, hi := MinMax(ps)
	stats.Count = len(cluster)
	stats.MeanPrice = roundInt(Mean(ps))
	stats.MedianPrice = roundInt(Median(ps))
	stats.MinPrice, stats.MaxPrice = int64(lo), int64(hi)
	stats.MeanMileage = roundInt(Mean(mileages(cluster)))
	return stats, nil
}

// Brands devuelve las marcas distintas, ordenadas.
func Brands(ds *Dataset) []string {
	return distinct(ds.Filter(func(Listing) bool { return true }), func(l Listing) string { return l.Brand })
}

// Models devuelve los modelos distintos de una marca, ordenados.
func Models(ds *Dataset, brand string) []string {
	return distinct(ds.Filter(func(l Listing) bool { return l.Brand == brand }),
		func(l Listing) string { return l.Model })
}

// Years devuelve los años de fabricación conocidos de un modelo, del más reciente al más antiguo.
func Years(ds *Dataset, brand, model string) []int {
	seen := make(map[int]bool)
	var years []int
	ds.Each(func(l Listing) {
		if l.Brand != brand || l.Model != model || l.Year <= 0 || seen[l.Year] {
			return
		}
		seen[l.Year] = true
		years = append(years, l.Year)
	})
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}

// --- helpers internos ---

// countBy cuenta anuncios por clave, ignora claves vacías y ordena por count desc, luego label.
func countBy(listings []Listing, total int, key func(Listing) string) []CountShare {
	counts := make(map[string]int)
	for _, l := range listings {
		if k := key(l); k != "" {
			counts[k]++
		}
	}
	out := make([]CountShare, 0, len(counts))
	for k, n := range counts {
		out = append(out, CountShare{Label: k, Count: n, Percent: percent(n, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func brandsByPrice(listings []Listing) []BrandPrice {
	byBrand := make(map[string][]float64)
	for _, l := range listings {
		byBrand[l.Brand] = append(byBrand[l.Brand], l.Price)
	}
	var out []BrandPrice
	for brand, ps := range byBrand {
		if len(ps) < minBrandListings {
			continue
		}
		out = append(out, BrandPrice{Brand: brand, MeanPrice: roundInt(Mean(ps)), Count: len(ps)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MeanPrice != out[j].MeanPrice {
			return out[i].MeanPrice > out[j].MeanPrice
		}
		return out[i].Brand < out[j].Brand
	})
	return head(out, topN)
}

func priceRangeDistribution(ps []float64) []CountShare {
	out := make([]CountShare, len(PriceRanges))
	for i, r := range PriceRanges {
		out[i].Label = r.Label
	}
	for _, p := range ps {
		for i, r := range PriceRanges {
			if p <= r.Upper {
				out[i].Count++
				break
			}
		}
	}
	for i := range out {
		out[i].Percent = percent(out[i].Count, len(ps))
	}
	return out
}

func distinct(listings []Listing, key func(Listing) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range listings {
		if k := key(l); k != "" && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
