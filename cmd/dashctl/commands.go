package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/analytics"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
	storesvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset/service"
	importsvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/sheet"
)

// filterFlags holds the view flags shared by query, summary and export.
type filterFlags struct {
	start, end, month, search, sku, sortKey string
	descriptions                            []string
	asc                                     bool
}

func (ff *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ff.start, "start", "", "first month to include, e.g. Jan-25")
	cmd.Flags().StringVar(&ff.end, "end", "", "last month to include")
	cmd.Flags().StringVar(&ff.month, "month", "", "drill down into a single month")
	cmd.Flags().StringVar(&ff.search, "search", "", "case-insensitive text search")
	cmd.Flags().StringVar(&ff.sku, "sku", "", "filter by product code")
	cmd.Flags().StringArrayVar(&ff.descriptions, "select", nil, "select an entity by name (repeatable)")
	cmd.Flags().StringVar(&ff.sortKey, "sort", string(analytics.SortByDate), "sort key (date, total, quantity, description, sku, supplier)")
	cmd.Flags().BoolVar(&ff.asc, "asc", false, "sort ascending")
}

func (ff *filterFlags) state() (analytics.FilterState, error) {
	if len(ff.descriptions) > 0 && ff.sku != "" {
		return analytics.FilterState{}, errors.New("--select and --sku cannot be combined")
	}
	f := analytics.NewFilterState()
	f.Start, f.End, f.DrillMonth, f.Search = ff.start, ff.end, ff.month, ff.search
	f.SortKey = analytics.SortKey(ff.sortKey)
	f.SortDesc = !ff.asc
	f.SetDescriptions(ff.descriptions)
	f.SetSKU(ff.sku)
	return f, nil
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <files...>",
		Short: "Import CSV, XLSX or XLS documents into the snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sources := make([]importsvc.Source, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				sources = append(sources, importsvc.Source{Name: filepath.Base(path), Data: data})
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}

			result, err := importsvc.NewImportService(store, a.logger).ImportDocuments(ctx, sources)
			if err != nil {
				return err
			}

			rows := make([][]string, len(result.Files))
			for i, f := range result.Files {
				note := ""
				switch {
				case f.Error != "":
					note = warnStyle.Render(f.Error)
				case f.Degraded:
					note = warnStyle.Render("no header matched")
				}
				rows[i] = []string{f.FileName, string(f.Type), strconv.Itoa(f.Rows), strconv.Itoa(f.Imported), strconv.Itoa(f.Dropped), note}
			}
			out := cmd.OutOrStdout()
			if err := writeTable(out, []string{"File", "Dataset", "Rows", "Imported", "Dropped", "Note"}, rows); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(out, "\n%d records imported, %d files failed\n", result.Imported, result.Failed); err != nil {
				return err
			}
			return persistWarning(store)
		},
	}
}

func (a *app) queryCmd() *cobra.Command {
	var (
		ff      filterFlags
		rawType string
		metric  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Show KPIs, top entities and matching records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := dataset.ParseType(rawType)
			if err != nil {
				return err
			}
			m, err := analytics.ParseMetric(metric)
			if err != nil {
				return err
			}
			f, err := ff.state()
			if err != nil {
				return err
			}

			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			view := analytics.Derive(store.Records(t), t, f, m)
			return writeView(cmd, view, t, limit)
		},
	}

	ff.register(cmd)
	cmd.Flags().StringVarP(&rawType, "dataset", "d", string(dataset.Sales), "dataset to query (sales, suppliers)")
	cmd.Flags().StringVar(&metric, "metric", string(analytics.MetricTotal), "ranking metric (total, quantity)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "records to print, 0 for all")
	return cmd
}

func writeView(cmd *cobra.Command, view analytics.View, t dataset.Type, limit int) error {
	out := cmd.OutOrStdout()
	k := view.KPIs

	if err := writeTitle(out, fmt.Sprintf("%s: %d records", t, len(view.Records))); err != nil {
		return err
	}
	if err := writeTable(out, []string{"Total", "Quantity", "Entities", "Months", "Avg/month", "Trend"}, [][]string{{
		money(k.TotalAmount), quantity(k.TotalQuantity), strconv.Itoa(k.DistinctEntities),
		strconv.Itoa(k.MonthSpan), money(k.AvgAmount), percent(k.Trend),
	}}); err != nil {
		return err
	}

	if len(view.Top) > 0 {
		if err := writeTitle(out, "\nTop"); err != nil {
			return err
		}
		rows := make([][]string, len(view.Top))
		for i, e := range view.Top {
			rows[i] = []string{e.Name, money(e.Total), quantity(e.Quantity)}
		}
		if err := writeTable(out, []string{"Name", "Total", "Quantity"}, rows); err != nil {
			return err
		}
	}

	records := view.Records
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	if len(records) == 0 {
		return nil
	}
	if err := writeTitle(out, "\nRecords"); err != nil {
		return err
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{r.Date, r.SKU, r.Description, quantity(r.Quantity), money(r.Total), r.EntityName(t)}
	}
	return writeTable(out, []string{"Date", "SKU", "Description", "Quantity", "Total", "Entity"}, rows)
}

func (a *app) summaryCmd() *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Monthly income, expense, profit and margin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := ff.state()
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}

			summary := analytics.Cross(store.Records(dataset.Sales), store.Records(dataset.Suppliers), f)
			rows := make([][]string, 0, len(summary.Rows)+1)
			for _, r := range summary.Rows {
				rows = append(rows, crossRow(r.Month, r))
			}
			rows = append(rows, crossRow("Total", summary.Totals))
			return writeTable(cmd.OutOrStdout(), []string{"Month", "Income", "Expense", "Profit", "Margin"}, rows)
		},
	}

	ff.register(cmd)
	return cmd
}

func crossRow(label string, r analytics.CrossRow) []string {
	return []string{label, money(r.Income), money(r.Expense), money(r.Profit), percent(r.Margin)}
}

func (a *app) exportCmd() *cobra.Command {
	var (
		ff      filterFlags
		rawType string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered records or the cross summary to an .xlsx file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := ff.state()
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}

			var table dataset.Table
			if rawType == "cross" {
				table = analytics.ExportCrossSummary(analytics.Cross(store.Records(dataset.Sales), store.Records(dataset.Suppliers), f))
			} else {
				t, err := dataset.ParseType(rawType)
				if err != nil {
					return err
				}
				table = analytics.ExportRecords(analytics.Filter(store.Records(t), t, f), t)
				rawType = string(t)
			}

			data, err := sheet.WriteXLSX(table, rawType)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = rawType + ".xlsx"
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d rows written to %s\n", len(table.Rows), outPath)
			return err
		},
	}

	ff.register(cmd)
	cmd.Flags().StringVarP(&rawType, "dataset", "d", string(dataset.Sales), "what to export (sales, suppliers, cross)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file, defaults to <dataset>.xlsx")
	return cmd
}

func (a *app) clearCmd() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove imported data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := storesvc.ParseScope(scope)
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Clear(cmd.Context(), s); err != nil {
				return err
			}
			st := store.Status()
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "cleared %s: %d sales and %d supplier records remain\n",
				s, st.SalesRecords, st.SupplierRecords); err != nil {
				return err
			}
			return persistWarning(store)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", string(storesvc.ScopeAll), "what to clear (sales, suppliers, all)")
	return cmd
}
