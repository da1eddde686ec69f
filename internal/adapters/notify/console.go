package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alejandrodnm/carfair/internal/domain"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Reporter.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsoleWriter crea un reporter que escribe en w (stdout del comando en la CLI).
// table=false imprime el modo compacto (una línea por resultado).
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// ReportEvaluation imprime el veredicto de una evaluación.
func (c *Console) ReportEvaluation(_ context.Context, ev domain.Evaluation) error {
	r := ev.Result
	q := ev.Query

	if !c.table {
		fmt.Fprintf(c.out, "%s %s %s %s km @ %s → %.1f %s %s\n",
			r.Category.Icon(), q.Brand, q.Model, humanize.Comma(int64(q.Mileage)),
			domain.FormatVND(r.Price), r.Score, r.Category, cheapMark(r))
		return nil
	}

	fmt.Fprintf(c.out, "\n=== %s %s (%s, %s km) ===\n",
		q.Brand, q.Model, q.Condition, humanize.Comma(int64(q.Mileage)))

	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	table.Append("Asking price", domain.FormatVND(r.Price))
	table.Append("Score", fmt.Sprintf("%.1f / 100", r.Score))
	table.Append("Category", fmt.Sprintf("%s %s", r.Category.Icon(), r.Category))
	table.Append("Market median", domain.FormatVND(float64(r.MarketMedian)))
	table.Append("Market average", domain.FormatVND(float64(r.MarketMean)))
	table.Append("Percentile", fmt.Sprintf("%.1f%%", r.Percentile))
	table.Append("Fair price range", fmt.Sprintf("%s - %s",
		domain.FormatVND(float64(r.FairPriceMin)), domain.FormatVND(float64(r.FairPriceMax))))
	table.Append("Cohort", fmt.Sprintf("%d listings (%s)", r.CohortSize, r.CohortLabel))
	table.Render()

	fmt.Fprintf(c.out, "  %s\n", r.PriceVsMedian)
	fmt.Fprintf(c.out, "  %s\n", r.PriceVsMean)
	fmt.Fprintf(c.out, "\n  >>> %s\n", r.Recommendation)
	if r.SuspiciouslyCheap {
		fmt.Fprintf(c.out, "  !! Price is under half the market median: check the listing carefully\n")
	}
	fmt.Fprintln(c.out)
	return nil
}

// ReportBatch imprime una fila por consulta, incluidas las que fallaron.
func (c *Console) ReportBatch(_ context.Context, results []domain.BatchResult) error {
	if len(results) == 0 {
		fmt.Fprintf(c.out, "[%s] no queries to evaluate\n", time.Now().Format("15:04:05"))
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Cat", "Car", "Km", "Price", "Score", "Median", "Verdict")

	failed := 0
	for i, br := range results {
		q := br.Item.Query
		car := truncate(q.Brand+" "+q.Model, 28)
		if br.Err != nil {
			failed++
			table.Append(
				fmt.Sprintf("%d", i+1), "[!]", car,
				humanize.Comma(int64(q.Mileage)),
				humanize.Comma(int64(br.Item.Price)),
				"-", "-", truncate(br.Err.Error(), 40),
			)
			continue
		}
		r := br.Evaluation.Result
		table.Append(
			fmt.Sprintf("%d", i+1),
			r.Category.Icon(),
			car,
			humanize.Comma(int64(q.Mileage)),
			humanize.Comma(int64(r.Price)),
			fmt.Sprintf("%.1f", r.Score),
			humanize.Comma(r.MarketMedian),
			r.Category.String(),
		)
	}
	table.Render()

	fmt.Fprintf(c.out, "  %d evaluated, %d failed\n\n", len(results)-failed, failed)
	return nil
}

// ReportOverview imprime el resumen de mercado.
func (c *Console) ReportOverview(_ context.Context, ov domain.MarketOverview) error {
	if ov.TotalListings == 0 {
		fmt.Fprintln(c.out, "\n  Dataset is empty. Run import first.")
		return nil
	}

	fmt.Fprintf(c.out, "\n=== MARKET OVERVIEW — %s listings ===\n", humanize.Comma(int64(ov.TotalListings)))
	if !ov.From.IsZero() {
		fmt.Fprintf(c.out, "  Period:  %s → %s\n", ov.From.Format("2006-01-02"), ov.To.Format("2006-01-02"))
	}
	fmt.Fprintf(c.out, "  Average: %s\n", domain.FormatVND(float64(ov.MeanPrice)))
	fmt.Fprintf(c.out, "  Median:  %s\n", domain.FormatVND(float64(ov.MedianPrice)))
	fmt.Fprintf(c.out, "  Range:   %s - %s\n",
		domain.FormatVND(float64(ov.MinPrice)), domain.FormatVND(float64(ov.MaxPrice)))
	fmt.Fprintf(c.out, "  Mileage: avg %s km, median %s km\n",
		humanize.Comma(ov.MeanMileage), humanize.Comma(ov.MedianMileage))

	c.shareTable("Top brands", ov.TopBrands)

	if len(ov.TopBrandsByPrice) > 0 {
		fmt.Fprintf(c.out, "\n  Most expensive brands (>= 10 listings)\n")
		table := tablewriter.NewWriter(c.out)
		table.Header("Brand", "Average price", "Listings")
		for _, b := range ov.TopBrandsByPrice {
			table.Append(b.Brand, domain.FormatVND(float64(b.MeanPrice)), humanize.Comma(int64(b.Count)))
		}
		table.Render()
	}

	c.shareTable("Top models", ov.TopModels)
	c.shareTable("Price ranges", ov.PriceRanges)
	c.shareTable("Fuel", ov.Fuels)
	c.shareTable("Gearbox", ov.Gearboxes)
	c.shareTable("Condition", ov.Conditions)

	if len(ov.Recent) > 0 {
		fmt.Fprintf(c.out, "\n  Recent listings\n")
		for _, l := range ov.Recent {
			fmt.Fprintf(c.out, "  %s %s - %s - %s km - %s\n",
				l.Brand, l.Model, domain.FormatVND(l.Price), humanize.Comma(int64(l.Mileage)), l.Condition)
		}
	}
	fmt.Fprintln(c.out)
	return nil
}

// ReportBrand imprime el resumen de una marca.
func (c *Console) ReportBrand(_ context.Context, bi domain.BrandInsight) error {
	fmt.Fprintf(c.out, "\n=== %s — %s listings ===\n", bi.Brand, humanize.Comma(int64(bi.TotalListings)))
	fmt.Fprintf(c.out, "  Average: %s\n", domain.FormatVND(float64(bi.MeanPrice)))
	fmt.Fprintf(c.out, "  Median:  %s\n", domain.FormatVND(float64(bi.MedianPrice)))

	c.shareTable("Popular models", bi.PopularModels)
	c.shareTable("Condition", bi.Conditions)
	c.shareTable("Fuel", bi.Fuels)
	fmt.Fprintln(c.out)
	return nil
}

// ReportTrends imprime la evolución mensual de un modelo.
func (c *Console) ReportTrends(_ context.Context, tr domain.ModelTrend) error {
	fmt.Fprintf(c.out, "\n=== %s %s — price trend: %s ===\n", tr.Brand, tr.Model, strings.ToUpper(tr.Trend))

	table := tablewriter.NewWriter(c.out)
	table.Header("Month", "Average price", "Listings")
	for _, m := range tr.Monthly {
		table.Append(m.Month.Format("2006-01"), domain.FormatVND(m.MeanPrice), humanize.Comma(int64(m.Count)))
	}
	table.Render()
	fmt.Fprintf(c.out, "  %s listings in total\n\n", humanize.Comma(int64(tr.TotalListings)))
	return nil
}

// ReportHistory imprime evaluaciones pasadas, más recientes primero.
func (c *Console) ReportHistory(_ context.Context, evs []domain.Evaluation) error {
	if len(evs) == 0 {
		fmt.Fprintln(c.out, "\n  No evaluations in range.")
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("When", "Cat", "Car", "Km", "Price", "Score", "Verdict", "ID")
	for _, ev := range evs {
		r := ev.Result
		table.Append(
			humanize.Time(ev.EvaluatedAt),
			r.Category.Icon(),
			truncate(ev.Query.Brand+" "+ev.Query.Model, 28),
			humanize.Comma(int64(ev.Query.Mileage)),
			humanize.Comma(int64(r.Price)),
			fmt.Sprintf("%.1f", r.Score),
			r.Category.String(),
			shortID(ev.ID),
		)
	}
	table.Render()
	return nil
}

// --- helpers ---

// shareTable imprime una distribución categórica con su porcentaje.
func (c *Console) shareTable(title string, shares []domain.CountShare) {
	if len(shares) == 0 {
		return
	}
	fmt.Fprintf(c.out, "\n  %s\n", title)
	table := tablewriter.NewWriter(c.out)
	table.Header("Label", "Listings", "Share")
	for _, s := range shares {
		table.Append(truncate(s.Label, 30), humanize.Comma(int64(s.Count)), fmt.Sprintf("%.1f%%", s.Percent))
	}
	table.Render()
}

func cheapMark(r domain.FairnessResult) string {
	if r.SuspiciouslyCheap {
		return "(!) suspiciously cheap"
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
