package main

import (
	"fmt"
	"io"
	"os"

	"finance-mcp/internal/domain"
	"finance-mcp/internal/indicator"
	"finance-mcp/internal/render"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "indicators",
		Short:        "Compute technical indicators over daily bars offline",
		SilenceUsage: true,
	}
	root.AddCommand(newComputeCmd())
	root.AddCommand(newLookbackCmd())
	return root
}

func newComputeCmd() *cobra.Command {
	var file, start, end, ind, code, market string

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Render a CSV of date,open,high,low,close,volume with indicator columns",
		Long: `Reads daily bars from a CSV file (or - for stdin), computes the requested
indicators over every bar and prints the rows inside [start, end] as markdown.
Example: indicators compute --file bars.csv --start 20240101 --ind "macd(12,26,9) rsi(14)"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeFn, err := openInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			defer closeFn()

			m, err := domain.ParseMarket(market)
			if err != nil {
				return err
			}
			out, err := compute(in, code, m, start, end, ind)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "CSV file with date,open,high,low,close,volume rows, - for stdin")
	cmd.Flags().StringVar(&start, "start", "", "first date to print, YYYYMMDD (default first bar)")
	cmd.Flags().StringVar(&end, "end", "", "last date to print, YYYYMMDD (default last bar)")
	cmd.Flags().StringVar(&ind, "ind", "", `space separated indicators, e.g. "macd(12,26,9) boll(20,2)"`)
	cmd.Flags().StringVar(&code, "code", "CSV", "code shown in the report heading")
	cmd.Flags().StringVar(&market, "market", string(domain.MarketUS), "market shown in the report heading")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newLookbackCmd() *cobra.Command {
	var ind, start string

	cmd := &cobra.Command{
		Use:   "lookback",
		Short: "Print the history bars an indicator list needs and the extended fetch start",
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := indicator.ParseAll(indicator.SplitExprs(ind))
			if err != nil {
				return err
			}
			bars := indicator.RequiredBars(specs...)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "required bars: %d\n", bars)
			if start == "" {
				return nil
			}
			extended, err := indicator.ExtendedStartDate(start, bars)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "extended start: %s\n", extended)
			return nil
		},
	}
	cmd.Flags().StringVar(&ind, "ind", "", "space separated indicators")
	cmd.Flags().StringVar(&start, "start", "", "requested start date, YYYYMMDD")
	_ = cmd.MarkFlagRequired("ind")
	return cmd
}

func openInput(stdin io.Reader, file string) (io.Reader, func(), error) {
	if file == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func compute(in io.Reader, code string, market domain.Market, start, end, ind string) (string, error) {
	bars, err := readBars(in)
	if err != nil {
		return "", err
	}
	specs, err := indicator.ParseAll(indicator.SplitExprs(ind))
	if err != nil {
		return "", err
	}
	table, err := indicator.Compute(bars, specs)
	if err != nil {
		return "", err
	}

	if len(bars) > 0 {
		if start == "" {
			start = bars[0].Date
		}
		if end == "" {
			end = bars[len(bars)-1].Date
		}
	}
	if start != "" && end != "" {
		r := domain.DateRange{Start: start, End: end}
		if err := r.Validate(); err != nil {
			return "", err
		}
		table = indicator.FilterToRange(table, start, end)
	}
	return render.StockReport(code, market, table), nil
}
