package httpapi

import (
	"time"

	"github.com/alejandrodnm/carfair/internal/domain"
)

type evaluationDTO struct {
	ID          string    `json:"id"`
	EvaluatedAt time.Time `json:"evaluated_at"`

	Brand     string  `json:"brand"`
	Model     string  `json:"model"`
	Condition string  `json:"condition"`
	Mileage   int     `json:"mileage"`
	Price     float64 `json:"price"`

	Score             float64 `json:"score"`
	Category          string  `json:"category"`
	Recommendation    string  `json:"recommendation"`
	MarketMean        int64   `json:"market_mean"`
	MarketMedian      int64   `json:"market_median"`
	Percentile        float64 `json:"percentile"`
	PriceRatio        float64 `json:"price_ratio"`
	FairPriceMin      int64   `json:"fair_price_min"`
	FairPriceMax      int64   `json:"fair_price_max"`
	CohortSize        int     `json:"cohort_size"`
	CohortLabel       string  `json:"cohort_label"`
	PriceVsMedian     string  `json:"price_vs_median"`
	PriceVsMean       string  `json:"price_vs_mean"`
	SuspiciouslyCheap bool    `json:"suspiciously_cheap"`
	Currency          string  `json:"currency"`
}

func toEvaluationDTO(ev domain.Evaluation) evaluationDTO {
	r := ev.Result
	return evaluationDTO{
		ID:                ev.ID,
		EvaluatedAt:       ev.EvaluatedAt,
		Brand:             ev.Query.Brand,
		Model:             ev.Query.Model,
		Condition:         string(ev.Query.Condition),
		Mileage:           ev.Query.Mileage,
		Price:             r.Price,
		Score:             r.Score,
		Category:          r.Category.String(),
		Recommendation:    r.Recommendation,
		MarketMean:        r.MarketMean,
		MarketMedian:      r.MarketMedian,
		Percentile:        r.Percentile,
		PriceRatio:        r.PriceRatio,
		FairPriceMin:      r.FairPriceMin,
		FairPriceMax:      r.FairPriceMax,
		CohortSize:        r.CohortSize,
		CohortLabel:       r.CohortLabel,
		PriceVsMedian:     r.PriceVsMedian,
		PriceVsMean:       r.PriceVsMean,
		SuspiciouslyCheap: r.SuspiciouslyCheap,
		Currency:          domain.Currency,
	}
}

type shareDTO struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

func toShares(in []domain.CountShare) []shareDTO {
	out := make([]shareDTO, 0, len(in))
	for _, s := range in {
		out = append(out, shareDTO{Label: s.Label, Count: s.Count, Percent: domain.Round1(s.Percent)})
	}
	return out
}

type brandPriceDTO struct {
	Brand     string `json:"brand"`
	MeanPrice int64  `json:"mean_price"`
	Count     int    `json:"count"`
}

type listingDTO struct {
	Brand     string    `json:"brand"`
	Model     string    `json:"model"`
	Condition string    `json:"condition"`
	Mileage   int       `json:"mileage"`
	Price     float64   `json:"price"`
	ListTime  time.Time `json:"list_time"`
}

type overviewDTO struct {
	TotalListings    int             `json:"total_listings"`
	From             time.Time       `json:"from"`
	To               time.Time       `json:"to"`
	MeanPrice        int64           `json:"mean_price"`
	MedianPrice      int64           `json:"median_price"`
	MinPrice         int64           `json:"min_price"`
	MaxPrice         int64           `json:"max_price"`
	MeanMileage      int64           `json:"mean_mileage"`
	MedianMileage    int64           `json:"median_mileage"`
	MinMileage       int64           `json:"min_mileage"`
	MaxMileage       int64           `json:"max_mileage"`
	TopBrands        []shareDTO      `json:"top_brands"`
	TopBrandsByPrice []brandPriceDTO `json:"top_brands_by_price"`
	TopModels        []shareDTO      `json:"top_models"`
	Fuels            []shareDTO      `json:"fuels"`
	Gearboxes        []shareDTO      `json:"gearboxes"`
	Conditions       []shareDTO      `json:"conditions"`
	PriceRanges      []shareDTO      `json:"price_ranges"`
	Recent           []listingDTO    `json:"recent"`
}

func toOverviewDTO(ov domain.MarketOverview) overviewDTO {
	dto := overviewDTO{
		TotalListings:    ov.TotalListings,
		From:             ov.From,
		To:               ov.To,
		MeanPrice:        ov.MeanPrice,
		MedianPrice:      ov.MedianPrice,
		MinPrice:         ov.MinPrice,
		MaxPrice:         ov.MaxPrice,
		MeanMileage:      ov.MeanMileage,
		MedianMileage:    ov.MedianMileage,
		MinMileage:       ov.MinMileage,
		MaxMileage:       ov.MaxMileage,
		TopBrands:        toShares(ov.TopBrands),
		TopBrandsByPrice: make([]brandPriceDTO, 0, len(ov.TopBrandsByPrice)),
		TopModels:        toShares(ov.TopModels),
		Fuels:            toShares(ov.Fuels),
		Gearboxes:        toShares(ov.Gearboxes),
		Conditions:       toShares(ov.Conditions),
		PriceRanges:      toShares(ov.PriceRanges),
		Recent:           make([]listingDTO, 0, len(ov.Recent)),
	}
	for _, b := range ov.TopBrandsByPrice {
		dto.TopBrandsByPrice = append(dto.TopBrandsByPrice, brandPriceDTO(b))
	}
	for _, l := range ov.Recent {
		dto.Recent = append(dto.Recent, listingDTO{
			Brand: l.Brand, Model: l.Model, Condition: string(l.Condition),
			Mileage: l.Mileage, Price: l.Price, ListTime: l.ListTime,
		})
	}
	return dto
}

type brandDTO struct {
	Brand         string     `json:"brand"`
	TotalListings int        `json:"total_listings"`
	MeanPrice     int64      `json:"mean_price"`
	MedianPrice   int64      `json:"median_price"`
	PopularModels []shareDTO `json:"popular_models"`
	Conditions    []shareDTO `json:"conditions"`
	Fuels         []shareDTO `json:"fuels"`
}

func toBrandDTO(bi domain.BrandInsight) brandDTO {
	return brandDTO{
		Brand:         bi.Brand,
		TotalListings: bi.TotalListings,
		MeanPrice:     bi.MeanPrice,
		MedianPrice:   bi.MedianPrice,
		PopularModels: toShares(bi.PopularModels),
		Conditions:    toShares(bi.Conditions),
		Fuels:         toShares(bi.Fuels),
	}
}

type monthDTO struct {
	Month     string `json:"month"` // YYYY-MM
	MeanPrice int64  `json:"mean_price"`
	Count     int    `json:"count"`
}

type trendDTO struct {
	Brand         string     `json:"brand"`
	Model         string     `json:"model"`
	Trend         string     `json:"trend"`
	TotalListings int        `json:"total_listings"`
	Monthly       []monthDTO `json:"monthly"`
}

func toTrendDTO(tr domain.ModelTrend) trendDTO {
	dto := trendDTO{
		Brand:         tr.Brand,
		Model:         tr.Model,
		Trend:         tr.Trend,
		TotalListings: tr.TotalListings,
		Monthly:       make([]monthDTO, 0, len(tr.Monthly)),
	}
	for _, m := range tr.Monthly {
		dto.Monthly = append(dto.Monthly, monthDTO{
			Month:     m.Month.Format("2006-01"),
			MeanPrice: int64(m.MeanPrice + 0.5),
			Count:     m.Count,
		})
	}
	return dto
}

type selectionDTO struct {
	Label       string `json:"label"`
	Bucketed    bool   `json:"bucketed"`
	Count       int    `json:"count"`
	MeanPrice   int64  `json:"mean_price"`
	MedianPrice int64  `json:"median_price"`
	MinPrice    int64  `json:"min_price"`
	MaxPrice    int64  `json:"max_price"`
	MeanMileage int64  `json:"mean_mileage"`
}

func toSelectionDTO(st domain.SelectionStats) selectionDTO {
	return selectionDTO(st)
}
