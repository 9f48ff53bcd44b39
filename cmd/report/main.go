// Command report renders an offline summary of the disposal event database:
// an HTML dashboard with category, label, and daily breakdowns, plus a PNG
// histogram of detection confidences.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sortacle/sortacle/internal/events"
	"github.com/sortacle/sortacle/internal/security"
)

var (
	dbFile  = flag.String("db", "disposal_events.db", "Path to the SQLite event database")
	outDir  = flag.String("out", "report", "Output directory for the generated files")
	days    = flag.Int("days", 30, "Number of days to include in the daily chart")
	csvName = flag.String("csv", "", "Also export all events to this CSV file inside the output directory")
)

func main() {
	flag.Parse()

	store, err := events.NewStore(*dbFile)
	if err != nil {
		log.Fatalf("failed to open event database: %v", err)
	}
	defer store.Close()

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("failed to create output dir: %v", err)
	}

	stats, err := store.QueryStats()
	if err != nil {
		log.Fatalf("failed to query stats: %v", err)
	}
	if stats.TotalDisposals == 0 {
		log.Fatal("no disposal events recorded yet")
	}

	daily, err := store.DailyCounts(*days)
	if err != nil {
		log.Fatalf("failed to query daily counts: %v", err)
	}

	htmlPath := filepath.Join(*outDir, "dashboard.html")
	if err := renderDashboard(htmlPath, stats, daily); err != nil {
		log.Fatalf("failed to render dashboard: %v", err)
	}
	log.Printf("wrote %s", htmlPath)

	confidences, err := store.Confidences()
	if err != nil {
		log.Fatalf("failed to query confidences: %v", err)
	}
	pngPath := filepath.Join(*outDir, "confidence_hist.png")
	if err := renderConfidenceHistogram(pngPath, confidences); err != nil {
		log.Fatalf("failed to render histogram: %v", err)
	}
	log.Printf("wrote %s", pngPath)

	if *csvName != "" {
		csvPath := filepath.Join(*outDir, *csvName)
		if err := security.ValidatePathWithinDirectory(csvPath, *outDir); err != nil {
			log.Fatalf("refusing CSV path: %v", err)
		}
		if err := exportCSV(csvPath, store); err != nil {
			log.Fatalf("failed to export CSV: %v", err)
		}
		log.Printf("wrote %s", csvPath)
	}

	log.Printf("%d disposals, %.1f%% recycled, avg confidence %.2f",
		stats.TotalDisposals, stats.RecyclingRate*100, stats.AvgConfidence)
}

func exportCSV(path string, store *events.Store) error {
	evs, err := store.QuerySince(time.Time{})
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "timestamp", "label", "category", "confidence", "recyclable", "bin_id", "location"}); err != nil {
		return err
	}
	for _, ev := range evs {
		record := []string{
			strconv.FormatInt(ev.ID, 10),
			ev.Timestamp.Format(time.RFC3339),
			ev.Label,
			string(ev.Category),
			strconv.FormatFloat(ev.Confidence, 'f', 4, 64),
			strconv.FormatBool(ev.Recyclable),
			ev.BinID,
			ev.Location,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func renderDashboard(path string, stats *events.Stats, daily []events.DailyCount) error {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Disposals by material category"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pieData := make([]opts.PieData, 0, len(stats.CategoryBreakdown))
	for _, c := range stats.CategoryBreakdown {
		pieData = append(pieData, opts.PieData{Name: c.Category, Value: c.Count})
	}
	pie.AddSeries("categories", pieData)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Most disposed items",
			Subtitle: fmt.Sprintf("%d disposals total, %.1f%% recycled", stats.TotalDisposals, stats.RecyclingRate*100),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	labels := make([]string, 0, len(stats.TopLabels))
	counts := make([]opts.BarData, 0, len(stats.TopLabels))
	for _, l := range stats.TopLabels {
		labels = append(labels, l.Label)
		counts = append(counts, opts.BarData{Value: l.Count})
	}
	bar.SetXAxis(labels).AddSeries("disposals", counts)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Daily disposal volume"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	dates := make([]string, 0, len(daily))
	values := make([]opts.LineData, 0, len(daily))
	for _, d := range daily {
		dates = append(dates, d.Date)
		values = append(values, opts.LineData{Value: d.Count})
	}
	line.SetXAxis(dates).AddSeries("disposals", values)

	page := components.NewPage()
	page.SetPageTitle("Sortacle report")
	page.AddCharts(pie, bar, line)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

func renderConfidenceHistogram(path string, confidences []float64) error {
	if len(confidences) == 0 {
		return fmt.Errorf("no confidence values to plot")
	}

	p := plot.New()
	p.Title.Text = "Detection confidence distribution"
	p.X.Label.Text = "confidence"
	p.Y.Label.Text = "events"
	p.X.Min = 0
	p.X.Max = 1

	hist, err := plotter.NewHist(plotter.Values(confidences), 20)
	if err != nil {
		return err
	}
	p.Add(hist)

	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
