package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"mfDealFlow/config"
	"mfDealFlow/internal/adapters/logger"
	"mfDealFlow/internal/analytics"
	"mfDealFlow/internal/app"
	"mfDealFlow/internal/bootstrap"
	"mfDealFlow/internal/domain"
	"mfDealFlow/internal/ports"
	"mfDealFlow/internal/utils"
)

func main() {
	start := flag.String("start", "", "first trade date, YYYY-MM-DD (default: earliest in store)")
	end := flag.String("end", "", "last trade date, YYYY-MM-DD (default: latest in store)")
	symbol := flag.String("symbol", "", "only this symbol")
	all := flag.Bool("all", false, "include IGNORE rows in the export")
	export := flag.String("export", "", "write the classified rows to this CSV file")
	daily := flag.Bool("daily", false, "also print net flow per trade date")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	// Keep stdout for the report itself.
	cfg.LogLevel = logger.LevelWarn

	opts, err := parseOptions(*start, *end, *symbol)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	opts.ActionableOnly = !*all

	pipeline, err := bootstrap.Build(cfg, logger.New(cfg.LogFormat, cfg.LogLevel))
	if err != nil {
		log.Fatalf("Error initializing pipeline: %v", err)
	}
	defer pipeline.Close()

	ctx := context.Background()
	res, err := pipeline.Service.Query(ctx, opts)
	if errors.Is(err, ports.ErrStoreNotFound) {
		fmt.Println("No data yet: the ingestion pipeline has not run. Run the ingest binary first.")
		pipeline.Close()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("Error querying store: %v", err)
	}

	printReport(os.Stdout, res, *daily)

	if *export != "" {
		if err := utils.WriteDealsToCSV(res.Deals, *export); err != nil {
			log.Fatalf("Error exporting CSV: %v", err)
		}
		fmt.Printf("\nExported %d rows to %s\n", len(res.Deals), *export)
	}
}

func parseOptions(start, end, symbol string) (app.QueryOptions, error) {
	var opts app.QueryOptions
	if start != "" {
		t, err := time.Parse(domain.DateLayout, start)
		if err != nil {
			return opts, fmt.Errorf("invalid -start %q: %w", start, err)
		}
		opts.Range.Start = t
	}
	if end != "" {
		t, err := time.Parse(domain.DateLayout, end)
		if err != nil {
			return opts, fmt.Errorf("invalid -end %q: %w", end, err)
		}
		opts.Range.End = t
	}
	opts.Symbol = symbol
	return opts, nil
}

func printReport(out io.Writer, res *domain.QueryResult, daily bool) {
	fmt.Fprintf(out, "## Mutual fund flow %s .. %s\n\n",
		res.Range.Start.Format(domain.DateLayout), res.Range.End.Format(domain.DateLayout))

	if res.Outcome == domain.OutcomeNoData {
		fmt.Fprintln(out, "No deals match the selected range.")
		return
	}

	summary := analytics.AnalyzeFlow(res.Deals)
	fmt.Fprintf(out, "Accumulation trades: %d\nExit trades: %d\nRows: %d\n\n",
		summary.Accumulation, summary.Exit, summary.Total)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "Symbol\tSignal\tQuantity\tTrades\t")
	for _, f := range summary.BySymbol {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t\n", f.Symbol, f.Signal, f.Quantity, f.Trades)
	}
	w.Flush()

	if daily {
		fmt.Fprintln(out, "\n## Net flow by trade date")
		w = tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
		fmt.Fprintln(w, "Date\tAccumulated\tExited\tNet\t")
		for _, d := range analytics.GetDailyFlow(res.Deals) {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t\n", d.Date.Format(domain.DateLayout), d.Accumulated, d.Exited, d.Net)
		}
		w.Flush()
	}
}
