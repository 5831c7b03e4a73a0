package main

import (
	"fmt"
	"strings"

	"github.com/rgehrsitz/paytax/internal/calculation"
	"github.com/rgehrsitz/paytax/internal/domain"
	"github.com/rgehrsitz/paytax/internal/output"
	"github.com/rgehrsitz/paytax/internal/payroll"
	"github.com/rgehrsitz/paytax/internal/report"
	"github.com/spf13/cobra"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded calculations for a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, _ := cmd.Flags().GetString("tenant")
			if tenantID == "" {
				return fmt.Errorf("--tenant is required")
			}

			var filter domain.CalculationFilter
			filter.EmployeeID, _ = cmd.Flags().GetString("employee")
			filter.Limit, _ = cmd.Flags().GetInt("limit")
			if regime, _ := cmd.Flags().GetString("regime"); regime != "" {
				r, err := domain.ParseRegime(regime)
				if err != nil {
					return err
				}
				filter.Regime = r
			}

			dbPath, _ := cmd.Flags().GetString("db")
			st, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			svc := payroll.NewService(st.repo, st.cache, calculation.DefaultPolicy(), st.cfg.Cache.TTL)
			records, err := svc.History(cmd.Context(), tenantID, filter)
			if err != nil {
				return err
			}

			format, _ := cmd.Flags().GetString("format")
			var data []byte
			switch format {
			case "csv":
				data, err = output.HistoryCSV(records)
			case "json":
				data, err = output.JSONFormatter{Pretty: true}.FormatHistory(records)
			case "console":
				data = []byte(historyTable(records))
			default:
				return fmt.Errorf("unsupported format %q (available: console, csv, json)", format)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	addStoreFlags(cmd)
	cmd.Flags().String("employee", "", "Only this employee's calculations")
	cmd.Flags().String("regime", "", "Only calculations under this regime (old, new)")
	cmd.Flags().Int("limit", 0, "Maximum number of calculations (0 for all)")
	cmd.Flags().StringP("format", "f", "console", "Output format (console, csv, json)")

	return cmd
}

func historyTable(records []*domain.CalculationRecord) string {
	if len(records) == 0 {
		return "No calculations recorded\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-20s %-12s %-9s %16s %16s\n", "DATE", "EMPLOYEE", "REGIME", "TAXABLE", "TAX")
	for _, rec := range records {
		_, _, taxable, tax := rec.Summary()
		fmt.Fprintf(&sb, "%-20s %-12s %-9s %16s %16s\n",
			rec.CalculatedAt.UTC().Format("2006-01-02 15:04:05"),
			rec.EmployeeID,
			rec.RegimeLabel(),
			calculation.FormatINR(taxable),
			calculation.FormatINR(tax),
		)
	}
	return sb.String()
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a tenant's calculations over recent days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, _ := cmd.Flags().GetString("tenant")
			if tenantID == "" {
				return fmt.Errorf("--tenant is required")
			}
			days, _ := cmd.Flags().GetInt("days")
			if days < 0 {
				return &domain.ValidationError{Field: "days", Constraint: "must be non-negative", Value: fmt.Sprint(days)}
			}

			dbPath, _ := cmd.Flags().GetString("db")
			st, err := openStore(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			svc := payroll.NewService(st.repo, st.cache, calculation.DefaultPolicy(), st.cfg.Cache.TTL)
			r, err := svc.ReportLastDays(cmd.Context(), tenantID, days)
			if err != nil {
				return err
			}

			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "json":
				data, err := output.JSONFormatter{Pretty: true}.FormatReport(r)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			case "console":
				_, err = fmt.Fprint(cmd.OutOrStdout(), output.FormatReportConsole(r))
				return err
			default:
				return fmt.Errorf("unsupported format %q (available: console, json)", format)
			}
		},
	}

	addStoreFlags(cmd)
	cmd.Flags().Int("days", report.DefaultWindowDays, "Number of days to summarize, ending today")
	cmd.Flags().StringP("format", "f", "console", "Output format (console, json)")

	return cmd
}
